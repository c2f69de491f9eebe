package admin

import "github.com/birdwatch/birdwatch-api/internal/pkg/apperr"

var ErrSelfDelete = apperr.Invalid("cannot delete yourself", map[string]string{"id": "must not be your own account"})
