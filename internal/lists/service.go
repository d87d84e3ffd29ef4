// Package lists provides HTTP handlers and business logic for subscriber lists.
package lists

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cds-snc/list-manager/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// Validation errors.
var (
	ErrRedirectNotAllowed = errors.New("redirect url host must be in the allow list")
	ErrInvalidRedirectURL = errors.New("redirect url is not a valid http url")
	ErrInvalidTemplateID  = errors.New("template id must be a 36 character identifier")
)

// CreateInput holds the fields accepted at list creation. Optional fields
// arrive as empty strings and are stored as NULL.
type CreateInput struct {
	Name      string
	Language  string
	ServiceID string

	SubscribeEmailTemplateID   string
	UnsubscribeEmailTemplateID string
	SubscribePhoneTemplateID   string
	UnsubscribePhoneTemplateID string

	SubscribeRedirectURL   string
	ConfirmRedirectURL     string
	UnsubscribeRedirectURL string
}

// Service provides lists business logic.
type Service struct {
	repo              Repository
	redirectAllowList map[string]bool
}

// NewService creates a new lists service. redirectAllowList is the fixed set
// of hosts that redirect URLs may target; it is checked at write time only.
func NewService(repo Repository, redirectAllowList []string) *Service {
	allowed := make(map[string]bool, len(redirectAllowList))
	for _, host := range redirectAllowList {
		allowed[strings.ToLower(host)] = true
	}
	return &Service{repo: repo, redirectAllowList: allowed}
}

// Create validates and persists a new list. Language and service id are
// stored lowercased; language tags are canonicalised when they parse.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.List, error) {
	for _, tmpl := range []string{
		in.SubscribeEmailTemplateID,
		in.UnsubscribeEmailTemplateID,
		in.SubscribePhoneTemplateID,
		in.UnsubscribePhoneTemplateID,
	} {
		if err := s.validateTemplateID(tmpl); err != nil {
			return nil, err
		}
	}

	for _, redirect := range []string{
		in.SubscribeRedirectURL,
		in.ConfirmRedirectURL,
		in.UnsubscribeRedirectURL,
	} {
		if err := s.validateRedirectURL(redirect); err != nil {
			return nil, err
		}
	}

	list := &domain.List{
		Name:                       in.Name,
		Language:                   normalizeLanguage(in.Language),
		ServiceID:                  strings.ToLower(in.ServiceID),
		Active:                     true,
		SubscribeEmailTemplateID:   optional(in.SubscribeEmailTemplateID),
		UnsubscribeEmailTemplateID: optional(in.UnsubscribeEmailTemplateID),
		SubscribePhoneTemplateID:   optional(in.SubscribePhoneTemplateID),
		UnsubscribePhoneTemplateID: optional(in.UnsubscribePhoneTemplateID),
		SubscribeRedirectURL:       optional(in.SubscribeRedirectURL),
		ConfirmRedirectURL:         optional(in.ConfirmRedirectURL),
		UnsubscribeRedirectURL:     optional(in.UnsubscribeRedirectURL),
	}

	if err := s.repo.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("save list: %w", err)
	}

	return list, nil
}

// GetByID looks up a list. A malformed id is reported as not found, the same
// as a missing row.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.List, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrListNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Update applies a partial update: only supplied fields change.
func (s *Service) Update(ctx context.Context, id string, fields UpdateFields) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrListNotFound
	}

	if fields.Name != nil && *fields.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidUpdate)
	}
	if fields.Language != nil {
		if *fields.Language == "" {
			return fmt.Errorf("%w: language must not be empty", ErrInvalidUpdate)
		}
		lang := normalizeLanguage(*fields.Language)
		fields.Language = &lang
	}
	if fields.ServiceID != nil {
		if *fields.ServiceID == "" {
			return fmt.Errorf("%w: service_id must not be empty", ErrInvalidUpdate)
		}
		sid := strings.ToLower(*fields.ServiceID)
		fields.ServiceID = &sid
	}

	for _, tmpl := range []*string{
		fields.SubscribeEmailTemplateID,
		fields.UnsubscribeEmailTemplateID,
		fields.SubscribePhoneTemplateID,
		fields.UnsubscribePhoneTemplateID,
	} {
		if tmpl != nil {
			if err := s.validateTemplateID(*tmpl); err != nil {
				return err
			}
		}
	}

	for _, redirect := range []*string{
		fields.SubscribeRedirectURL,
		fields.ConfirmRedirectURL,
		fields.UnsubscribeRedirectURL,
	} {
		if redirect != nil {
			if err := s.validateRedirectURL(*redirect); err != nil {
				return err
			}
		}
	}

	return s.repo.Update(ctx, id, fields)
}

// ErrInvalidUpdate marks a partial update carrying an empty required field.
var ErrInvalidUpdate = errors.New("invalid list update")

// Delete removes a list and all its subscriptions.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrListNotFound
	}
	return s.repo.Delete(ctx, id)
}

// ListWithCounts returns lists with confirmed subscriber counts, optionally
// filtered by owning service.
func (s *Service) ListWithCounts(ctx context.Context, serviceID *string) ([]domain.ListWithCount, error) {
	if serviceID != nil {
		sid := strings.ToLower(*serviceID)
		serviceID = &sid
	}
	return s.repo.ListWithCounts(ctx, serviceID)
}

// SubscriberCounts returns per-list confirmed counts for every list the
// service owns.
func (s *Service) SubscriberCounts(ctx context.Context, serviceID string, unique bool) ([]SubscriberCount, error) {
	return s.repo.SubscriberCounts(ctx, strings.ToLower(serviceID), unique)
}

func (s *Service) validateTemplateID(id string) error {
	if id != "" && len(id) != domain.TemplateIDLength {
		return ErrInvalidTemplateID
	}
	return nil
}

func (s *Service) validateRedirectURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return ErrInvalidRedirectURL
	}

	if !s.redirectAllowList[strings.ToLower(u.Hostname())] {
		return ErrRedirectNotAllowed
	}
	return nil
}

// normalizeLanguage canonicalises a language tag when it parses ("EN_ca" ->
// "en-ca") and falls back to plain lowercasing otherwise. The store always
// receives a lowercased value.
func normalizeLanguage(lang string) string {
	if tag, err := language.Parse(lang); err == nil {
		return strings.ToLower(tag.String())
	}
	return strings.ToLower(lang)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
