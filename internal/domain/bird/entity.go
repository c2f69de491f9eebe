package bird

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Bird is a catalog entry. Name is unique.
type Bird struct {
	ID        uuid.UUID      `db:"id"`
	Name      string         `db:"name"`
	Species   string         `db:"species"`
	IconURL   sql.NullString `db:"icon_url"`
	CreatedAt time.Time      `db:"created_at"`
}
