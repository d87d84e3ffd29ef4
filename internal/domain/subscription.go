package domain

import (
	"errors"
	"strings"
	"time"
)

// Channel selects which contact field and which templates apply.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// ErrInvalidChannel is returned for any channel selector other than
// email or phone.
var ErrInvalidChannel = errors.New("must be either email or phone")

// ParseChannel parses a channel selector, case-insensitively.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToLower(s)) {
	case ChannelEmail:
		return ChannelEmail, nil
	case ChannelPhone:
		return ChannelPhone, nil
	default:
		return "", ErrInvalidChannel
	}
}

// Column returns the subscriptions column holding the channel value.
// Callers interpolating it into SQL rely on Channel being produced by
// ParseChannel.
func (c Channel) Column() string {
	return string(c)
}

// Subscription is one contact's membership in a List. It is created
// unconfirmed, confirmed by an explicit confirm call, and removed by a
// hard delete; there is no transition out of removed.
type Subscription struct {
	ID        string     `json:"id"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Confirmed bool       `json:"confirmed"`
	ListID    string     `json:"list_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
