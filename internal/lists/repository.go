package lists

import (
	"context"
	"errors"

	"github.com/cds-snc/list-manager/internal/domain"
)

// Repository errors.
var ErrListNotFound = errors.New("list not found")

// UpdateFields carries a partial update: nil fields are left untouched.
// For optional columns an empty string clears the stored value.
type UpdateFields struct {
	Name      *string
	Language  *string
	ServiceID *string

	SubscribeEmailTemplateID   *string
	UnsubscribeEmailTemplateID *string
	SubscribePhoneTemplateID   *string
	UnsubscribePhoneTemplateID *string

	SubscribeRedirectURL   *string
	ConfirmRedirectURL     *string
	UnsubscribeRedirectURL *string
}

// SubscriberCount is one list's confirmed subscriber count.
type SubscriberCount struct {
	ListID          string `json:"list_id"`
	SubscriberCount int    `json:"subscriber_count"`
}

// Repository defines the interface for list data operations.
type Repository interface {
	Create(ctx context.Context, list *domain.List) error
	GetByID(ctx context.Context, id string) (*domain.List, error)
	Update(ctx context.Context, id string, fields UpdateFields) error

	// Delete removes the list and all its subscriptions in one transaction,
	// children first.
	Delete(ctx context.Context, id string) error

	// ListWithCounts returns lists joined with their confirmed subscriber
	// counts; lists without subscribers appear with count 0. A nil serviceID
	// returns every list.
	ListWithCounts(ctx context.Context, serviceID *string) ([]domain.ListWithCount, error)

	// SubscriberCounts returns per-list confirmed counts for a service,
	// deduplicated by channel value when unique is set.
	SubscriberCounts(ctx context.Context, serviceID string, unique bool) ([]SubscriberCount, error)
}
