// Package mailout builds and dispatches bulk notification jobs to every
// confirmed subscriber of a list.
package mailout

import (
	"context"
	"fmt"

	"github.com/cds-snc/list-manager/internal/domain"
	"github.com/cds-snc/list-manager/internal/notify"
	"github.com/cds-snc/list-manager/internal/pkg/ctxlog"
	"github.com/cds-snc/list-manager/internal/pkg/metrics"
	"github.com/google/uuid"
)

// BulkSender submits one bulk job to the notification provider.
type BulkSender interface {
	SendBulk(ctx context.Context, in notify.Bulk) error
}

// SendInput describes one bulk send against a list.
type SendInput struct {
	ListID          string
	TemplateID      string
	TemplateType    string
	JobName         string
	Unique          bool
	Personalisation map[string]interface{}
	APIKey          string // optional provider key override
}

// Service coordinates recipient selection, batching and dispatch.
type Service struct {
	repo           Repository
	sender         BulkSender
	baseURL        string
	recipientLimit int
}

// NewService creates a mailout service. recipientLimit caps the number of
// data rows per bulk job.
func NewService(repo Repository, sender BulkSender, baseURL string, recipientLimit int) *Service {
	return &Service{
		repo:           repo,
		sender:         sender,
		baseURL:        baseURL,
		recipientLimit: recipientLimit,
	}
}

// Send dispatches the template to every confirmed subscriber of the list on
// the requested channel and returns how many rows were submitted. Batches go
// out sequentially; the first provider failure aborts the remainder.
func (s *Service) Send(ctx context.Context, in SendInput) (int, error) {
	if _, err := uuid.Parse(in.ListID); err != nil {
		return 0, ErrNoConfirmedSubscribers
	}

	channel, err := domain.ParseChannel(in.TemplateType)
	if err != nil {
		return 0, err
	}

	recipients, err := s.repo.Recipients(ctx, in.ListID, channel, in.Unique)
	if err != nil {
		return 0, fmt.Errorf("load recipients: %w", err)
	}
	if len(recipients) == 0 {
		return 0, ErrNoConfirmedSubscribers
	}

	batches := BuildBatches(recipients, channel, s.baseURL, in.Personalisation, s.recipientLimit)

	sent := 0
	for _, batch := range batches {
		err := s.sender.SendBulk(ctx, notify.Bulk{
			JobName:    in.JobName,
			TemplateID: in.TemplateID,
			Rows:       batch,
			APIKey:     in.APIKey,
		})
		if err != nil {
			return sent, err
		}
		sent += len(batch) - 1
	}

	metrics.BulkRowsSent.Add(float64(sent))
	ctxlog.FromContext(ctx).Info("bulk send dispatched",
		"list_id", in.ListID,
		"template_type", string(channel),
		"batches", len(batches),
		"sent", sent,
	)

	return sent, nil
}
