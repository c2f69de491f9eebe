package photo

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// UploadedChannel carries wake-ups for the photo worker. Polling remains
// the source of truth; a lost message only delays processing.
const UploadedChannel = "photos:uploaded"

// Signal announces newly uploaded photos.
type Signal struct {
	redis *redis.Client
}

// NewSignal creates a signal. A nil client makes Uploaded a no-op.
func NewSignal(rdb *redis.Client) *Signal {
	return &Signal{redis: rdb}
}

func (s *Signal) Uploaded(ctx context.Context) error {
	if s == nil || s.redis == nil {
		return nil
	}
	return s.redis.Publish(ctx, UploadedChannel, "1").Err()
}

// SubscribeUploads forwards wake-ups to wake without blocking until ctx
// is done.
func SubscribeUploads(ctx context.Context, rdb *redis.Client, wake chan<- struct{}) {
	sub := rdb.Subscribe(ctx, UploadedChannel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}
