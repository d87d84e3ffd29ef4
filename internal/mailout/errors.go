package mailout

import "errors"

// ErrNoConfirmedSubscribers indicates a send was requested against a list
// that has no confirmed subscribers on the requested channel.
var ErrNoConfirmedSubscribers = errors.New("list with confirmed subscribers not found")
