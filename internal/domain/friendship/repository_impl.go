package friendship

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
)

const pairConstraint = "friendships_pair_key"

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new friendship repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, f *Friendship) error {
	query := `
		INSERT INTO friendships (id, requester_id, recipient_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		f.ID, f.RequesterID, f.RecipientID, f.Status, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, pairConstraint) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("friendship repository create: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Friendship, error) {
	var f Friendship
	err := database.Conn(ctx, r.db).GetContext(ctx, &f, `SELECT * FROM friendships WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *repository) ExistsBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE LEAST(requester_id, recipient_id) = LEAST($1::uuid, $2::uuid)
			  AND GREATEST(requester_id, recipient_id) = GREATEST($1::uuid, $2::uuid)
		)
	`
	var exists bool
	err := database.Conn(ctx, r.db).GetContext(ctx, &exists, query, a, b)
	return exists, err
}

func (r *repository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status Status) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE friendships SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`, id, status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Friendship, error) {
	rows := []*Friendship{}
	err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, `
		SELECT * FROM friendships
		WHERE requester_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC
	`, userID)
	return rows, err
}

func (r *repository) FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := database.Conn(ctx, r.db).SelectContext(ctx, &ids, `
		SELECT CASE WHEN requester_id = $1 THEN recipient_id ELSE requester_id END
		FROM friendships
		WHERE (requester_id = $1 OR recipient_id = $1) AND status = 'ACCEPTED'
	`, userID)
	return ids, err
}

func (r *repository) CountAccepted(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).GetContext(ctx, &n, `
		SELECT COUNT(*) FROM friendships
		WHERE (requester_id = $1 OR recipient_id = $1) AND status = 'ACCEPTED'
	`, userID)
	return n, err
}
