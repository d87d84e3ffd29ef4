package mailout

import (
	"context"

	"github.com/cds-snc/list-manager/internal/domain"
)

// Recipient is a single confirmed destination together with the
// subscription id it belongs to.
type Recipient struct {
	Value string
	ID    string
}

// Repository reads confirmed recipients for bulk sends.
type Repository interface {
	// Recipients returns confirmed subscribers of a list on one channel.
	// With unique set, duplicate values collapse to a single recipient.
	Recipients(ctx context.Context, listID string, channel domain.Channel, unique bool) ([]Recipient, error)
}
