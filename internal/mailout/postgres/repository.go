// Package postgres provides the PostgreSQL implementation of the mailout
// repository.
package postgres

import (
	"context"
	"fmt"

	"github.com/cds-snc/list-manager/internal/domain"
	"github.com/cds-snc/list-manager/internal/mailout"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the mailout.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Recipients returns confirmed subscribers of a list on one channel. With
// unique set, rows sharing the same destination collapse to one recipient
// keeping an arbitrary subscription id.
func (r *Repository) Recipients(ctx context.Context, listID string, channel domain.Channel, unique bool) ([]mailout.Recipient, error) {
	col := channel.Column()

	var query string
	if unique {
		query = fmt.Sprintf(`
			SELECT COALESCE(s.%s, ''), MAX(s.id::text)
			FROM subscriptions s
			WHERE s.list_id = $1 AND s.confirmed AND s.%s IS NOT NULL
			GROUP BY s.%s
			ORDER BY 1
		`, col, col, col)
	} else {
		query = fmt.Sprintf(`
			SELECT COALESCE(s.%s, ''), s.id::text
			FROM subscriptions s
			WHERE s.list_id = $1 AND s.confirmed AND s.%s IS NOT NULL
			ORDER BY s.created_at, s.id
		`, col, col)
	}

	rows, err := r.db.Query(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	recipients := make([]mailout.Recipient, 0)
	for rows.Next() {
		var rec mailout.Recipient
		if err := rows.Scan(&rec.Value, &rec.ID); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}

	return recipients, nil
}
