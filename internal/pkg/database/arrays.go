package database

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UUIDArray converts ids into a text array parameter; cast it in SQL,
// e.g. `id = ANY($1::uuid[])`.
func UUIDArray(ids []uuid.UUID) interface{} {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
