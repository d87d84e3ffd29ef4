// Package domain contains the core types shared across modules.
package domain

import "time"

// TemplateIDLength is the length of a well-formed notification template id.
// A template field shorter than this is treated as not configured.
const TemplateIDLength = 36

// List is a named subscriber collection owned by an external service.
// Template ids reference messages inside the notification provider;
// redirect URLs, when set, replace the JSON response of the matching
// subscription action.
type List struct {
	ID                         string     `json:"id"`
	Name                       string     `json:"name"`
	Language                   string     `json:"language"`
	ServiceID                  string     `json:"service_id"`
	Active                     bool       `json:"active"`
	SubscribeEmailTemplateID   *string    `json:"subscribe_email_template_id,omitempty"`
	UnsubscribeEmailTemplateID *string    `json:"unsubscribe_email_template_id,omitempty"`
	SubscribePhoneTemplateID   *string    `json:"subscribe_phone_template_id,omitempty"`
	UnsubscribePhoneTemplateID *string    `json:"unsubscribe_phone_template_id,omitempty"`
	SubscribeRedirectURL       *string    `json:"subscribe_redirect_url,omitempty"`
	ConfirmRedirectURL         *string    `json:"confirm_redirect_url,omitempty"`
	UnsubscribeRedirectURL     *string    `json:"unsubscribe_redirect_url,omitempty"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  *time.Time `json:"updated_at,omitempty"`
}

// ListWithCount is a list joined with its confirmed subscriber count.
// Lists without subscribers carry a count of zero.
type ListWithCount struct {
	List
	SubscriberCount int `json:"subscriber_count"`
}

// TemplateConfigured reports whether a template id field gates a send:
// present and exactly TemplateIDLength characters.
func TemplateConfigured(id *string) bool {
	return id != nil && len(*id) == TemplateIDLength
}
