package birdicon

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
)

// Repository defines icon submission data access
type Repository interface {
	Create(ctx context.Context, s *Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	// List returns submissions newest first; an empty status matches all.
	List(ctx context.Context, status Status, limit, offset int) ([]*Submission, int, error)
	// SetStatusIfPending reports whether a PENDING row was updated.
	SetStatusIfPending(ctx context.Context, id uuid.UUID, status Status, reviewer uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new icon submission repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Submission) error {
	query := `
		INSERT INTO bird_icon_submissions (id, user_id, bird_species, storage_key, url, content_type, status, created_at)
		VALUES (:id, :user_id, :bird_species, :storage_key, :url, :content_type, :status, :created_at)
	`
	_, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, s)
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	var s Submission
	err := database.Conn(ctx, r.db).GetContext(ctx, &s, `SELECT * FROM bird_icon_submissions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context, status Status, limit, offset int) ([]*Submission, int, error) {
	conn := database.Conn(ctx, r.db)

	var total int
	if err := conn.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM bird_icon_submissions WHERE $1 = '' OR status = $1
	`, status); err != nil {
		return nil, 0, err
	}

	subs := []*Submission{}
	err := conn.SelectContext(ctx, &subs, `
		SELECT * FROM bird_icon_submissions
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *repository) SetStatusIfPending(ctx context.Context, id uuid.UUID, status Status, reviewer uuid.UUID, at time.Time) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE bird_icon_submissions
		SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`, id, status, reviewer, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
