package bird

import "github.com/birdwatch/birdwatch-api/internal/pkg/apperr"

var (
	ErrBirdNotFound = apperr.New(apperr.KindNotFound, "bird not found")
	ErrQueryLength  = apperr.Invalid("invalid search query", map[string]string{"query": "must be 1 to 100 characters"})
)
