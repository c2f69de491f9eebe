package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

const (
	flagUniqueConstraint    = "flagged_posts_post_reporter_key"
	requestUniqueConstraint = "moderator_requests_user_id_key"
)

const queueColumns = `
	f.*,
	p.author_id   AS post_author_id,
	p.description AS post_description,
	p.species     AS post_species,
	p.latitude    AS post_latitude,
	p.longitude   AS post_longitude
`

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new moderation repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateFlag(ctx context.Context, f *Flag) error {
	query := `
		INSERT INTO flagged_posts (id, post_id, reporter_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		f.ID, f.PostID, f.ReporterID, f.Reason, f.Status, f.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, flagUniqueConstraint) {
			return ErrAlreadyFlagged
		}
		return fmt.Errorf("moderation repository create flag: %w", err)
	}
	return nil
}

func (r *repository) GetFlag(ctx context.Context, id uuid.UUID) (*Flag, error) {
	var f Flag
	err := database.Conn(ctx, r.db).GetContext(ctx, &f, `SELECT * FROM flagged_posts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *repository) SetFlagStatus(ctx context.Context, id uuid.UUID, status FlagStatus, reviewer uuid.UUID, at time.Time) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE flagged_posts SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`, id, status, reviewer, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *repository) ResolveSiblings(ctx context.Context, postID uuid.UUID, reviewer uuid.UUID, at time.Time) (int64, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE flagged_posts SET status = 'RESOLVED', reviewed_by = $2, reviewed_at = $3
		WHERE post_id = $1 AND status = 'PENDING'
	`, postID, reviewer, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) PendingFlags(ctx context.Context, limit, offset int) ([]*QueueEntry, int, error) {
	conn := database.Conn(ctx, r.db)

	var total int
	if err := conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM flagged_posts WHERE status = 'PENDING'`); err != nil {
		return nil, 0, err
	}

	entries := []*QueueEntry{}
	err := conn.SelectContext(ctx, &entries, `
		SELECT `+queueColumns+`
		FROM flagged_posts f
		LEFT JOIN posts p ON p.id = f.post_id
		WHERE f.status = 'PENDING'
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) PendingFlagsInBox(ctx context.Context, box geo.Box) ([]*QueueEntry, error) {
	entries := []*QueueEntry{}
	err := database.Conn(ctx, r.db).SelectContext(ctx, &entries, `
		SELECT `+queueColumns+`
		FROM flagged_posts f
		JOIN posts p ON p.id = f.post_id
		WHERE f.status = 'PENDING'
		  AND p.latitude BETWEEN $1 AND $2
		  AND p.longitude BETWEEN $3 AND $4
	`, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	return entries, err
}

func (r *repository) CreateRequest(ctx context.Context, req *ModeratorRequest) error {
	query := `
		INSERT INTO moderator_requests (id, user_id, latitude, longitude, location_name, description, qualifications, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		req.ID, req.UserID, req.Latitude, req.Longitude, req.LocationName,
		req.Description, req.Qualifications, req.Status, req.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, requestUniqueConstraint) {
			return ErrRequestExists
		}
		return fmt.Errorf("moderation repository create request: %w", err)
	}
	return nil
}

func (r *repository) getRequest(ctx context.Context, column string, arg uuid.UUID) (*ModeratorRequest, error) {
	var req ModeratorRequest
	err := database.Conn(ctx, r.db).GetContext(ctx, &req, `SELECT * FROM moderator_requests WHERE `+column+` = $1`, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *repository) GetRequest(ctx context.Context, id uuid.UUID) (*ModeratorRequest, error) {
	return r.getRequest(ctx, "id", id)
}

func (r *repository) GetRequestByUser(ctx context.Context, userID uuid.UUID) (*ModeratorRequest, error) {
	return r.getRequest(ctx, "user_id", userID)
}

func (r *repository) SetRequestStatus(ctx context.Context, id uuid.UUID, status RequestStatus, reviewer uuid.UUID, at time.Time) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE moderator_requests SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`, id, status, reviewer, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *repository) ListRequests(ctx context.Context, status RequestStatus, limit, offset int) ([]*ModeratorRequest, int, error) {
	conn := database.Conn(ctx, r.db)

	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM moderator_requests `+where, args...); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT * FROM moderator_requests %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, n+1, n+2)
	reqs := []*ModeratorRequest{}
	if err := conn.SelectContext(ctx, &reqs, query, append(args, limit, offset)...); err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}
