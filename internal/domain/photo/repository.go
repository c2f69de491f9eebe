package photo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
)

// Repository defines post photo data access
type Repository interface {
	Create(ctx context.Context, photos []*Photo) error
	ListByPosts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]*Photo, error)
	KeysByPost(ctx context.Context, postID uuid.UUID) ([]string, error)
	KeysByAuthor(ctx context.Context, authorID uuid.UUID) ([]string, error)

	// ClaimNext moves one pending or failed photo with fewer than
	// maxAttempts attempts to processing. Returns nil when none is ready.
	ClaimNext(ctx context.Context, maxAttempts int) (*Job, error)
	MarkDone(ctx context.Context, id uuid.UUID, thumbKey, contentType string) error
	MarkFailed(ctx context.Context, id uuid.UUID, msg string) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new photo repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, photos []*Photo) error {
	conn := database.Conn(ctx, r.db)
	query := `
		INSERT INTO post_photos (id, post_id, position, storage_key, content_type, process_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, p := range photos {
		if _, err := conn.ExecContext(ctx, query,
			p.ID, p.PostID, p.Position, p.StorageKey, p.ContentType, p.ProcessStatus, p.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) ListByPosts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]*Photo, error) {
	out := make(map[uuid.UUID][]*Photo, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var photos []*Photo
	err := database.Conn(ctx, r.db).SelectContext(ctx, &photos, `
		SELECT * FROM post_photos
		WHERE post_id = ANY($1::uuid[])
		ORDER BY post_id, position
	`, database.UUIDArray(postIDs))
	if err != nil {
		return nil, err
	}
	for _, p := range photos {
		out[p.PostID] = append(out[p.PostID], p)
	}
	return out, nil
}

func (r *repository) keys(ctx context.Context, query string, arg interface{}) ([]string, error) {
	var photos []*Photo
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &photos, query, arg); err != nil {
		return nil, err
	}
	keys := []string{}
	for _, p := range photos {
		keys = append(keys, p.Keys()...)
	}
	return keys, nil
}

func (r *repository) KeysByPost(ctx context.Context, postID uuid.UUID) ([]string, error) {
	return r.keys(ctx, `SELECT * FROM post_photos WHERE post_id = $1`, postID)
}

func (r *repository) KeysByAuthor(ctx context.Context, authorID uuid.UUID) ([]string, error) {
	return r.keys(ctx, `
		SELECT pp.* FROM post_photos pp
		JOIN posts p ON p.id = pp.post_id
		WHERE p.author_id = $1
	`, authorID)
}

// ClaimNext is safe with several workers: SKIP LOCKED hands each row to
// one claimer.
func (r *repository) ClaimNext(ctx context.Context, maxAttempts int) (*Job, error) {
	var job Job
	err := database.Conn(ctx, r.db).GetContext(ctx, &job, `
		UPDATE post_photos pp
		SET process_status = 'processing',
		    process_attempts = pp.process_attempts + 1,
		    process_error = NULL
		FROM posts p
		WHERE pp.id = (
			SELECT id FROM post_photos
			WHERE process_status IN ('pending', 'failed')
			  AND process_attempts < $1
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		  AND p.id = pp.post_id
		RETURNING pp.id, pp.post_id, p.author_id, pp.storage_key, pp.content_type
	`, maxAttempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *repository) MarkDone(ctx context.Context, id uuid.UUID, thumbKey, contentType string) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE post_photos
		SET process_status = 'done',
		    thumb_key = $2,
		    content_type = $3,
		    processed_at = NOW(),
		    process_error = NULL
		WHERE id = $1
	`, id, thumbKey, contentType)
	return err
}

// MarkFailed keeps attempts as incremented by the claim.
func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, msg string) error {
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE post_photos
		SET process_status = 'failed',
		    process_error = $2
		WHERE id = $1
	`, id, msg)
	return err
}
