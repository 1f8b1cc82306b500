package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/course-portal/portal/internal/platform/db"
	"github.com/course-portal/portal/internal/shared"
)

// Repository defines persistence operations for the session audit trail.
type Repository interface {
	RecordLogin(ctx context.Context, record SessionRecord) error
	EndSession(ctx context.Context, id string, at time.Time) error
	PruneExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const recordLoginSQL = `
INSERT INTO portal_sessions (id, user_id, role, created_at, expires_at, ip, ua)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    role = EXCLUDED.role,
    expires_at = EXCLUDED.expires_at,
    ended_at = NULL`

// RecordLogin persists a login session for auditing.
func (r *PGRepository) RecordLogin(ctx context.Context, record SessionRecord) error {
	_, err := r.pool.Exec(ctx, recordLoginSQL,
		record.ID,
		record.UserID,
		string(record.Role),
		pgtype.Timestamptz{Time: record.CreatedAt.UTC(), Valid: true},
		pgtype.Timestamptz{Time: record.ExpiresAt.UTC(), Valid: true},
		pgtype.Text{String: record.IP, Valid: record.IP != ""},
		pgtype.Text{String: record.UserAgent, Valid: record.UserAgent != ""},
	)
	return err
}

// EndSession stamps ended_at on an open session record.
func (r *PGRepository) EndSession(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE portal_sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`,
		id, pgtype.Timestamptz{Time: at.UTC(), Valid: true})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PruneExpired deletes records whose expiry or logout is older than cutoff.
func (r *PGRepository) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		ts := pgtype.Timestamptz{Time: cutoff.UTC(), Valid: true}
		tag, err := tx.Exec(ctx, `DELETE FROM portal_sessions WHERE expires_at < $1`, ts)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		tag, err = tx.Exec(ctx, `DELETE FROM portal_sessions WHERE ended_at IS NOT NULL AND ended_at < $1`, ts)
		if err != nil {
			return err
		}
		deleted += tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

var _ Repository = (*PGRepository)(nil)
