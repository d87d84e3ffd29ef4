// Package postgres provides the PostgreSQL implementation of the
// subscriptions repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cds-snc/list-manager/internal/domain"
	"github.com/cds-snc/list-manager/internal/subscriptions"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the subscriptions.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const subscriptionColumns = `id, email, phone, confirmed, list_id, created_at, updated_at`

// Create inserts a new unconfirmed subscription.
func (r *Repository) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (email, phone, confirmed, list_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		sub.Email,
		sub.Phone,
		sub.Confirmed,
		sub.ListID,
	).Scan(&sub.ID, &sub.CreatedAt)

	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// GetByID retrieves a subscription by its id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	var sub domain.Subscription
	err := r.db.QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.Email,
		&sub.Phone,
		&sub.Confirmed,
		&sub.ListID,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscriptions.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription by id: %w", err)
	}

	return &sub, nil
}

// Find looks up a subscription by its exact (list, email, phone) triple.
func (r *Repository) Find(ctx context.Context, listID string, email, phone *string) (*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE list_id = $1
		  AND email IS NOT DISTINCT FROM $2
		  AND phone IS NOT DISTINCT FROM $3
		LIMIT 1
	`

	var sub domain.Subscription
	err := r.db.QueryRow(ctx, query, listID, email, phone).Scan(
		&sub.ID,
		&sub.Email,
		&sub.Phone,
		&sub.Confirmed,
		&sub.ListID,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscriptions.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}

	return &sub, nil
}

// Confirm flips the confirmed flag.
func (r *Repository) Confirm(ctx context.Context, id string) error {
	query := `UPDATE subscriptions SET confirmed = true, updated_at = now() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("confirm subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return subscriptions.ErrSubscriptionNotFound
	}
	return nil
}

// Delete hard-deletes one subscription.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return subscriptions.ErrSubscriptionNotFound
	}
	return nil
}

// DeleteByListID hard-deletes every subscription under a list.
func (r *Repository) DeleteByListID(ctx context.Context, listID string) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE list_id = $1`, listID)
	if err != nil {
		return 0, fmt.Errorf("delete subscriptions by list: %w", err)
	}
	return result.RowsAffected(), nil
}

// ChannelValues returns the existing values of one channel column for a list.
func (r *Repository) ChannelValues(ctx context.Context, listID string, channel domain.Channel) ([]string, error) {
	col := channel.Column()
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE list_id = $1 AND %s IS NOT NULL`, col, col)

	rows, err := r.db.Query(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("list %s values: %w", col, err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s value: %w", col, err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s values: %w", col, err)
	}

	return values, nil
}

// BulkCreateConfirmed inserts pre-confirmed subscriptions for each value in
// one statement.
func (r *Repository) BulkCreateConfirmed(ctx context.Context, listID string, channel domain.Channel, values []string) error {
	query := fmt.Sprintf(`
		INSERT INTO subscriptions (%s, confirmed, list_id)
		SELECT v, true, $1 FROM unnest($2::text[]) AS v
	`, channel.Column())

	if _, err := r.db.Exec(ctx, query, listID, values); err != nil {
		return fmt.Errorf("bulk create subscriptions: %w", err)
	}
	return nil
}
