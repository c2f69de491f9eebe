package photo

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/birdwatch/birdwatch-api/internal/pkg/imaging"
	"github.com/birdwatch/birdwatch-api/internal/pkg/realtime"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
)

const (
	defaultMaxAttempts = 3
	defaultBatchSize   = 50
)

// Processor resizes uploaded photos, writes thumbnails and drains the
// blob deletion outbox.
type Processor struct {
	repo     Repository
	outbox   Outbox
	storage  storage.Storage
	images   *imaging.Processor
	notifier realtime.Notifier

	MaxAttempts int
	BatchSize   int
}

// NewProcessor creates photo processor
func NewProcessor(repo Repository, outbox Outbox, st storage.Storage, images *imaging.Processor, notifier realtime.Notifier) *Processor {
	if notifier == nil {
		notifier = realtime.Nop{}
	}
	return &Processor{
		repo:        repo,
		outbox:      outbox,
		storage:     st,
		images:      images,
		notifier:    notifier,
		MaxAttempts: defaultMaxAttempts,
		BatchSize:   defaultBatchSize,
	}
}

// ProcessNext handles one pending photo. It reports false when the queue
// is empty. Processing failures are recorded on the row, not returned.
func (p *Processor) ProcessNext(ctx context.Context) (bool, error) {
	job, err := p.repo.ClaimNext(ctx, p.MaxAttempts)
	if err != nil {
		return false, fmt.Errorf("claim photo: %w", err)
	}
	if job == nil {
		return false, nil
	}

	start := time.Now()
	l := log.With().Str("photo_id", job.ID.String()).Str("key", job.StorageKey).Logger()
	l.Info().Msg("Processing photo")

	thumbKey, contentType, err := p.process(ctx, job)
	if err != nil {
		l.Error().Err(err).Msg("Processing failed")
		if err2 := p.repo.MarkFailed(ctx, job.ID, err.Error()); err2 != nil {
			l.Error().Err(err2).Msg("Failed to update DB status=failed")
		}
		return true, nil
	}

	if err := p.repo.MarkDone(ctx, job.ID, thumbKey, contentType); err != nil {
		return true, fmt.Errorf("mark photo done: %w", err)
	}

	p.notifier.Notify(ctx, job.AuthorID, realtime.Event{
		Type: realtime.EventPhotosProcessed,
		Data: map[string]string{
			"post_id":   job.PostID.String(),
			"photo_id":  job.ID.String(),
			"thumb_url": p.storage.URL(thumbKey),
		},
	})
	l.Info().Dur("took", time.Since(start)).Msg("Processing done")
	return true, nil
}

func (p *Processor) process(ctx context.Context, job *Job) (string, string, error) {
	rc, err := p.storage.Get(ctx, job.StorageKey)
	if err != nil {
		return "", "", fmt.Errorf("download: %w", err)
	}
	defer rc.Close()

	original, thumb, err := p.images.Photo(rc)
	if err != nil {
		return "", "", err
	}

	// the original is rewritten in place; only its content type may change
	if err := p.storage.Put(ctx, job.StorageKey, bytes.NewReader(original.Data), original.ContentType); err != nil {
		return "", "", fmt.Errorf("upload optimized: %w", err)
	}

	base := strings.TrimSuffix(job.StorageKey, path.Ext(job.StorageKey))
	thumbKey := base + "_thumb" + imaging.Extension(thumb.ContentType)
	if err := p.storage.Put(ctx, thumbKey, bytes.NewReader(thumb.Data), thumb.ContentType); err != nil {
		return "", "", fmt.Errorf("upload thumb: %w", err)
	}
	return thumbKey, original.ContentType, nil
}

// DrainDeletions removes up to BatchSize queued objects from storage and
// returns how many were removed.
func (p *Processor) DrainDeletions(ctx context.Context) (int, error) {
	rows, err := p.outbox.Claim(ctx, p.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim deletions: %w", err)
	}

	var done, failed []int64
	for _, row := range rows {
		if err := p.storage.Delete(ctx, row.StorageKey); err != nil {
			log.Warn().Err(err).Str("key", row.StorageKey).Int("attempts", row.Attempts+1).Msg("Blob deletion failed")
			failed = append(failed, row.ID)
			continue
		}
		done = append(done, row.ID)
	}

	if err := p.outbox.Complete(ctx, done); err != nil {
		return 0, fmt.Errorf("complete deletions: %w", err)
	}
	if err := p.outbox.Fail(ctx, failed); err != nil {
		return len(done), fmt.Errorf("record failed deletions: %w", err)
	}
	return len(done), nil
}

// Run polls every interval, or immediately on wake, until ctx is done.
func (p *Processor) Run(ctx context.Context, interval time.Duration, wake <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastIdleLog := time.Time{}
	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
		case <-ticker.C:
		}

		processed := 0
		for ctx.Err() == nil {
			ok, err := p.ProcessNext(ctx)
			if err != nil {
				log.Error().Err(err).Msg("DB error while processing photos")
				break
			}
			if !ok {
				break
			}
			processed++
		}

		removed, err := p.DrainDeletions(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Blob deletion drain failed")
		}

		if processed == 0 && removed == 0 {
			if now := time.Now(); now.Sub(lastIdleLog) >= time.Minute {
				log.Info().Msg("Idle: nothing to process")
				lastIdleLog = now
			}
		}
	}
}
