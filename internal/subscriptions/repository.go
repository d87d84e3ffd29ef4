package subscriptions

import (
	"context"
	"errors"

	"github.com/cds-snc/list-manager/internal/domain"
)

// Repository errors.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Repository defines the interface for subscription data operations.
type Repository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)

	// Find looks up a subscription by its exact (list, email, phone) triple;
	// nil email/phone match NULL columns. Returns ErrSubscriptionNotFound
	// when no row matches.
	Find(ctx context.Context, listID string, email, phone *string) (*domain.Subscription, error)

	// Confirm flips the confirmed flag.
	Confirm(ctx context.Context, id string) error

	// Delete hard-deletes one subscription.
	Delete(ctx context.Context, id string) error

	// DeleteByListID hard-deletes every subscription under a list and
	// returns the number of removed rows.
	DeleteByListID(ctx context.Context, listID string) (int64, error)

	// ChannelValues returns the existing values of one channel column for a
	// list (confirmed or not), for import set-difference computation.
	ChannelValues(ctx context.Context, listID string, channel domain.Channel) ([]string, error)

	// BulkCreateConfirmed inserts pre-confirmed subscriptions for each value
	// on the given channel.
	BulkCreateConfirmed(ctx context.Context, listID string, channel domain.Channel, values []string) error
}
