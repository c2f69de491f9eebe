package photo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
)

// MaxDeletionAttempts is how often the worker retries removing an object.
const MaxDeletionAttempts = 5

// Outbox records storage objects to delete once the transaction that
// orphaned them commits.
type Outbox interface {
	Enqueue(ctx context.Context, keys ...string) error
	Claim(ctx context.Context, limit int) ([]*BlobDeletion, error)
	Complete(ctx context.Context, ids []int64) error
	Fail(ctx context.Context, ids []int64) error
}

type outbox struct {
	db *sqlx.DB
}

// NewOutbox creates the blob deletion outbox
func NewOutbox(db *sqlx.DB) Outbox {
	return &outbox{db: db}
}

// Enqueue joins the caller's transaction when there is one.
func (o *outbox) Enqueue(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := database.Conn(ctx, o.db).ExecContext(ctx,
		`INSERT INTO blob_deletions (storage_key) SELECT unnest($1::text[])`, pq.StringArray(keys))
	return err
}

func (o *outbox) Claim(ctx context.Context, limit int) ([]*BlobDeletion, error) {
	rows := []*BlobDeletion{}
	err := database.Conn(ctx, o.db).SelectContext(ctx, &rows, `
		SELECT id, storage_key, attempts, created_at
		FROM blob_deletions
		WHERE attempts < $1
		ORDER BY id
		LIMIT $2
	`, MaxDeletionAttempts, limit)
	return rows, err
}

func (o *outbox) Complete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := database.Conn(ctx, o.db).ExecContext(ctx,
		`DELETE FROM blob_deletions WHERE id = ANY($1)`, pq.Int64Array(ids))
	return err
}

func (o *outbox) Fail(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := database.Conn(ctx, o.db).ExecContext(ctx,
		`UPDATE blob_deletions SET attempts = attempts + 1 WHERE id = ANY($1)`, pq.Int64Array(ids))
	return err
}
