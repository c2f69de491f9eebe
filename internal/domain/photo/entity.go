package photo

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the post-processing state of an uploaded photo.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// MaxPerPost bounds the photos attached to one post.
const MaxPerPost = 5

// Photo is a sighting photo (metadata only, bytes in object storage).
type Photo struct {
	ID              uuid.UUID      `db:"id"`
	PostID          uuid.UUID      `db:"post_id"`
	Position        int            `db:"position"`
	StorageKey      string         `db:"storage_key"`
	ThumbKey        sql.NullString `db:"thumb_key"`
	ContentType     string         `db:"content_type"`
	ProcessStatus   Status         `db:"process_status"`
	ProcessAttempts int            `db:"process_attempts"`
	ProcessError    sql.NullString `db:"process_error"`
	ProcessedAt     sql.NullTime   `db:"processed_at"`
	CreatedAt       time.Time      `db:"created_at"`
}

// Keys returns every storage object owned by the photo.
func (p *Photo) Keys() []string {
	keys := []string{p.StorageKey}
	if p.ThumbKey.Valid && p.ThumbKey.String != "" {
		keys = append(keys, p.ThumbKey.String)
	}
	return keys
}

// Job is a claimed photo awaiting processing.
type Job struct {
	ID          uuid.UUID `db:"id"`
	PostID      uuid.UUID `db:"post_id"`
	AuthorID    uuid.UUID `db:"author_id"`
	StorageKey  string    `db:"storage_key"`
	ContentType string    `db:"content_type"`
}

// BlobDeletion is an outbox row naming a storage object to remove.
type BlobDeletion struct {
	ID         int64     `db:"id"`
	StorageKey string    `db:"storage_key"`
	Attempts   int       `db:"attempts"`
	CreatedAt  time.Time `db:"created_at"`
}
