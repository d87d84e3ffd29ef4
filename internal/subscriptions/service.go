// Package subscriptions implements the subscription lifecycle: a contact is
// created unconfirmed, confirmed by an explicit call, and removed by a hard
// delete. Notification side effects never roll back the committed write.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cds-snc/list-manager/internal/domain"
	"github.com/cds-snc/list-manager/internal/notify"
	"github.com/cds-snc/list-manager/internal/pkg/ctxlog"
	"github.com/cds-snc/list-manager/internal/pkg/metrics"
	"github.com/google/uuid"
)

// MaxImportEntries bounds one bulk import call.
const MaxImportEntries = 10000

// Lifecycle validation errors.
var (
	ErrNoChannel      = errors.New("email and phone can not be empty")
	ErrBothChannels   = errors.New("must be one of email or phone")
	ErrImportEmpty    = errors.New("payload must include one of: phone, email")
	ErrImportBoth     = errors.New("payload may only include one of: phone, email")
	ErrImportTooLarge = fmt.Errorf("payload may include at most %d entries", MaxImportEntries)
)

// ListGetter resolves the owning list of a subscription.
type ListGetter interface {
	GetByID(ctx context.Context, id string) (*domain.List, error)
}

// Notifier sends single notifications through the provider.
type Notifier interface {
	SendEmail(ctx context.Context, in notify.Email) error
	SendSMS(ctx context.Context, in notify.SMS) error
}

// Service provides the subscription lifecycle business logic.
type Service struct {
	repo     Repository
	lists    ListGetter
	notifier Notifier
	baseURL  string
}

// NewService creates a new subscriptions service. baseURL is the public base
// used to build confirm links.
func NewService(repo Repository, lists ListGetter, notifier Notifier, baseURL string) *Service {
	return &Service{
		repo:     repo,
		lists:    lists,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// SubscribeInput carries one subscribe call.
type SubscribeInput struct {
	ListID        string
	Email         *string
	Phone         *string
	ServiceAPIKey string // optional provider key override
}

// SubscribeResult is the outcome of a successful subscribe. RedirectURL is
// non-empty when the list configures a subscribe redirect; the handler then
// responds with a redirect instead of a JSON body.
type SubscribeResult struct {
	ID          string
	RedirectURL string
}

// Subscribe creates (or reuses) an unconfirmed subscription and sends the
// channel's confirmation notification when the list configures a template.
// Exactly one of email or phone must be present. A provider failure after
// the row is committed surfaces as a dispatch error; the row stays.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (*SubscribeResult, error) {
	list, err := s.lists.GetByID(ctx, in.ListID)
	if err != nil {
		return nil, err
	}

	if in.Email == nil && in.Phone == nil {
		return nil, ErrNoChannel
	}
	if in.Email != nil && in.Phone != nil {
		return nil, ErrBothChannels
	}

	// Duplicate subscribes reuse the existing row so repeated form posts do
	// not inflate the list.
	sub, err := s.repo.Find(ctx, list.ID, in.Email, in.Phone)
	if errors.Is(err, ErrSubscriptionNotFound) {
		sub = &domain.Subscription{
			Email:  in.Email,
			Phone:  in.Phone,
			ListID: list.ID,
		}
		if err := s.repo.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("save subscription: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}

	if in.Email != nil && domain.TemplateConfigured(list.SubscribeEmailTemplateID) {
		err := s.notifier.SendEmail(ctx, notify.Email{
			To:         *in.Email,
			TemplateID: *list.SubscribeEmailTemplateID,
			Personalisation: map[string]interface{}{
				"name":         list.Name,
				"confirm_link": s.confirmLink(sub.ID),
			},
			APIKey: in.ServiceAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("send subscribe notification: %w", err)
		}
		metrics.SubscriptionEvents.WithLabelValues("subscribe", "email").Inc()
	}

	if in.Phone != nil && domain.TemplateConfigured(list.SubscribePhoneTemplateID) {
		err := s.notifier.SendSMS(ctx, notify.SMS{
			To:         *in.Phone,
			TemplateID: *list.SubscribePhoneTemplateID,
			Personalisation: map[string]interface{}{
				"name": list.Name,
			},
			APIKey: in.ServiceAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("send subscribe notification: %w", err)
		}
		metrics.SubscriptionEvents.WithLabelValues("subscribe", "sms").Inc()
	}

	result := &SubscribeResult{ID: sub.ID}
	if list.SubscribeRedirectURL != nil {
		result.RedirectURL = *list.SubscribeRedirectURL
	}
	return result, nil
}

// Confirm marks a subscription confirmed. Returns the list's confirm
// redirect URL, or "" when none is configured.
func (s *Service) Confirm(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrSubscriptionNotFound
	}

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if err := s.repo.Confirm(ctx, sub.ID); err != nil {
		return "", fmt.Errorf("confirm subscription: %w", err)
	}
	metrics.SubscriptionEvents.WithLabelValues("confirm", target(sub)).Inc()

	list, err := s.lists.GetByID(ctx, sub.ListID)
	if err != nil {
		return "", fmt.Errorf("resolve owning list: %w", err)
	}
	if list.ConfirmRedirectURL != nil {
		return *list.ConfirmRedirectURL, nil
	}
	return "", nil
}

// Unsubscribe hard-deletes a subscription and sends the configured
// unsubscribe notification for each channel the row carried. The delete is
// committed before delivery; a provider failure does not resurrect the row.
func (s *Service) Unsubscribe(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrSubscriptionNotFound
	}

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	list, err := s.lists.GetByID(ctx, sub.ListID)
	if err != nil {
		return "", fmt.Errorf("resolve owning list: %w", err)
	}

	// Capture channel values before the row is gone.
	email, phone := sub.Email, sub.Phone

	if err := s.repo.Delete(ctx, sub.ID); err != nil {
		return "", fmt.Errorf("delete subscription: %w", err)
	}

	if email != nil && domain.TemplateConfigured(list.UnsubscribeEmailTemplateID) {
		err := s.notifier.SendEmail(ctx, notify.Email{
			To:         *email,
			TemplateID: *list.UnsubscribeEmailTemplateID,
			Personalisation: map[string]interface{}{
				"email_address": *email,
				"name":          list.Name,
			},
		})
		if err != nil {
			return "", fmt.Errorf("send unsubscribe notification: %w", err)
		}
		metrics.SubscriptionEvents.WithLabelValues("unsubscribe", "email").Inc()
	}

	if phone != nil && domain.TemplateConfigured(list.UnsubscribePhoneTemplateID) {
		err := s.notifier.SendSMS(ctx, notify.SMS{
			To:         *phone,
			TemplateID: *list.UnsubscribePhoneTemplateID,
			Personalisation: map[string]interface{}{
				"phone_number": *phone,
				"name":         list.Name,
			},
		})
		if err != nil {
			return "", fmt.Errorf("send unsubscribe notification: %w", err)
		}
		metrics.SubscriptionEvents.WithLabelValues("unsubscribe", "sms").Inc()
	}

	if list.UnsubscribeRedirectURL != nil {
		return *list.UnsubscribeRedirectURL, nil
	}
	return "", nil
}

// Reset hard-deletes every subscription under a list, keeping the list.
func (s *Service) Reset(ctx context.Context, listID string) error {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return err
	}

	removed, err := s.repo.DeleteByListID(ctx, list.ID)
	if err != nil {
		return fmt.Errorf("reset list: %w", err)
	}

	ctxlog.FromContext(ctx).Info("list reset", "list_id", list.ID, "removed", removed)
	return nil
}

// ImportInput carries one bulk import call. Exactly one of Email or Phone
// must be non-empty, with at most MaxImportEntries entries.
type ImportInput struct {
	Email []string
	Phone []string
}

// Import inserts pre-confirmed subscriptions for the values not already
// present on the list. No notifications are sent.
func (s *Service) Import(ctx context.Context, listID string, in ImportInput) error {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return err
	}

	if len(in.Email) == 0 && len(in.Phone) == 0 {
		return ErrImportEmpty
	}
	if len(in.Email) > 0 && len(in.Phone) > 0 {
		return ErrImportBoth
	}

	channel := domain.ChannelEmail
	values := in.Email
	if len(in.Phone) > 0 {
		channel = domain.ChannelPhone
		values = in.Phone
	}
	if len(values) > MaxImportEntries {
		return ErrImportTooLarge
	}

	existing, err := s.repo.ChannelValues(ctx, list.ID, channel)
	if err != nil {
		return fmt.Errorf("load existing %s values: %w", channel, err)
	}

	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}

	fresh := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			fresh = append(fresh, v)
		}
	}

	if len(fresh) == 0 {
		return nil
	}

	if err := s.repo.BulkCreateConfirmed(ctx, list.ID, channel, fresh); err != nil {
		return fmt.Errorf("import %s list: %w", channel, err)
	}

	ctxlog.FromContext(ctx).Info("list import",
		"list_id", list.ID,
		"channel", channel,
		"imported", len(fresh),
		"skipped", len(values)-len(fresh),
	)
	return nil
}

func (s *Service) confirmLink(subscriptionID string) string {
	return fmt.Sprintf("%s/subscription/%s/confirm", s.baseURL, subscriptionID)
}

func target(sub *domain.Subscription) string {
	if sub.Phone != nil && sub.Email == nil {
		return "sms"
	}
	return "email"
}
