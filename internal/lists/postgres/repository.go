// Package postgres provides the PostgreSQL implementation of the lists repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cds-snc/list-manager/internal/domain"
	"github.com/cds-snc/list-manager/internal/lists"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the lists.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const listColumns = `
	id, name, language, service_id, active,
	subscribe_email_template_id, unsubscribe_email_template_id,
	subscribe_phone_template_id, unsubscribe_phone_template_id,
	subscribe_redirect_url, confirm_redirect_url, unsubscribe_redirect_url,
	created_at, updated_at
`

// Create inserts a new list.
func (r *Repository) Create(ctx context.Context, list *domain.List) error {
	query := `
		INSERT INTO lists (
			name, language, service_id, active,
			subscribe_email_template_id, unsubscribe_email_template_id,
			subscribe_phone_template_id, unsubscribe_phone_template_id,
			subscribe_redirect_url, confirm_redirect_url, unsubscribe_redirect_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		list.Name,
		list.Language,
		list.ServiceID,
		list.Active,
		list.SubscribeEmailTemplateID,
		list.UnsubscribeEmailTemplateID,
		list.SubscribePhoneTemplateID,
		list.UnsubscribePhoneTemplateID,
		list.SubscribeRedirectURL,
		list.ConfirmRedirectURL,
		list.UnsubscribeRedirectURL,
	).Scan(&list.ID, &list.CreatedAt)

	if err != nil {
		return fmt.Errorf("create list: %w", err)
	}
	return nil
}

// GetByID retrieves a list by its id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists WHERE id = $1`

	var list domain.List
	err := r.db.QueryRow(ctx, query, id).Scan(
		&list.ID,
		&list.Name,
		&list.Language,
		&list.ServiceID,
		&list.Active,
		&list.SubscribeEmailTemplateID,
		&list.UnsubscribeEmailTemplateID,
		&list.SubscribePhoneTemplateID,
		&list.UnsubscribePhoneTemplateID,
		&list.SubscribeRedirectURL,
		&list.ConfirmRedirectURL,
		&list.UnsubscribeRedirectURL,
		&list.CreatedAt,
		&list.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lists.ErrListNotFound
		}
		return nil, fmt.Errorf("get list by id: %w", err)
	}

	return &list, nil
}

// Update applies a partial update; only non-nil fields change. An empty
// string on an optional column stores NULL.
func (r *Repository) Update(ctx context.Context, id string, fields lists.UpdateFields) error {
	set := make([]string, 0, 11)
	args := []interface{}{id}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addOptional := func(column string, value *string) {
		if value == nil {
			return
		}
		if *value == "" {
			add(column, nil)
			return
		}
		add(column, *value)
	}

	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.Language != nil {
		add("language", *fields.Language)
	}
	if fields.ServiceID != nil {
		add("service_id", *fields.ServiceID)
	}
	addOptional("subscribe_email_template_id", fields.SubscribeEmailTemplateID)
	addOptional("unsubscribe_email_template_id", fields.UnsubscribeEmailTemplateID)
	addOptional("subscribe_phone_template_id", fields.SubscribePhoneTemplateID)
	addOptional("unsubscribe_phone_template_id", fields.UnsubscribePhoneTemplateID)
	addOptional("subscribe_redirect_url", fields.SubscribeRedirectURL)
	addOptional("confirm_redirect_url", fields.ConfirmRedirectURL)
	addOptional("unsubscribe_redirect_url", fields.UnsubscribeRedirectURL)

	if len(set) == 0 {
		// Nothing supplied; still verify the list exists.
		_, err := r.GetByID(ctx, id)
		return err
	}

	set = append(set, "updated_at = now()")
	query := "UPDATE lists SET " + strings.Join(set, ", ") + " WHERE id = $1"

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	if result.RowsAffected() == 0 {
		return lists.ErrListNotFound
	}
	return nil
}

// Delete removes the list's subscriptions and then the list itself inside a
// single transaction, keeping the cascade's cost and ordering explicit.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete list: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM subscriptions WHERE list_id = $1`, id); err != nil {
		return fmt.Errorf("delete list subscriptions: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	if result.RowsAffected() == 0 {
		return lists.ErrListNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete list: %w", err)
	}
	return nil
}

// ListWithCounts joins lists with confirmed subscriber counts. The outer join
// keeps lists without subscribers at count 0.
func (r *Repository) ListWithCounts(ctx context.Context, serviceID *string) ([]domain.ListWithCount, error) {
	query := `
		SELECT
			l.id, l.name, l.language, l.service_id, l.active,
			l.subscribe_email_template_id, l.unsubscribe_email_template_id,
			l.subscribe_phone_template_id, l.unsubscribe_phone_template_id,
			l.subscribe_redirect_url, l.confirm_redirect_url, l.unsubscribe_redirect_url,
			l.created_at, l.updated_at,
			COALESCE(s.subscriber_count, 0)
		FROM lists l
		LEFT JOIN (
			SELECT list_id, COUNT(id) AS subscriber_count
			FROM subscriptions
			WHERE confirmed
			GROUP BY list_id
		) s ON s.list_id = l.id
	`
	args := make([]interface{}, 0, 1)
	if serviceID != nil {
		query += ` WHERE l.service_id = $1`
		args = append(args, *serviceID)
	}
	query += ` ORDER BY l.created_at, l.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lists with counts: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ListWithCount, 0)
	for rows.Next() {
		var item domain.ListWithCount
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Language,
			&item.ServiceID,
			&item.Active,
			&item.SubscribeEmailTemplateID,
			&item.UnsubscribeEmailTemplateID,
			&item.SubscribePhoneTemplateID,
			&item.UnsubscribePhoneTemplateID,
			&item.SubscribeRedirectURL,
			&item.ConfirmRedirectURL,
			&item.UnsubscribeRedirectURL,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.SubscriberCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}

	return result, nil
}

// SubscriberCounts returns per-list confirmed counts for a service. With
// unique set, rows sharing a channel value count once. The outer join keeps
// lists without confirmed subscribers in the result at count 0; COUNT over
// the all-NULL group an unmatched list produces yields 0 for both variants.
func (r *Repository) SubscriberCounts(ctx context.Context, serviceID string, unique bool) ([]lists.SubscriberCount, error) {
	countExpr := "COUNT(s.id)"
	if unique {
		countExpr = "COUNT(DISTINCT COALESCE(s.email, s.phone))"
	}

	query := fmt.Sprintf(`
		SELECT l.id, %s
		FROM lists l
		LEFT JOIN subscriptions s ON s.list_id = l.id AND s.confirmed
		WHERE l.service_id = $1
		GROUP BY l.id
		ORDER BY l.id
	`, countExpr)

	rows, err := r.db.Query(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("subscriber counts: %w", err)
	}
	defer rows.Close()

	counts := make([]lists.SubscriberCount, 0)
	for rows.Next() {
		var c lists.SubscriberCount
		if err := rows.Scan(&c.ListID, &c.SubscriberCount); err != nil {
			return nil, fmt.Errorf("scan subscriber count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriber counts: %w", err)
	}

	return counts, nil
}
