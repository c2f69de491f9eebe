package bird

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
)

// Repository defines bird catalog data access
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Bird, error)
	List(ctx context.Context, limit, offset int) ([]*Bird, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Bird, int, error)

	// SetIcon sets the icon of the bird named name, creating the entry
	// when it does not exist yet.
	SetIcon(ctx context.Context, name, iconURL string) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new bird repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Bird, error) {
	var b Bird
	err := database.Conn(ctx, r.db).GetContext(ctx, &b, `SELECT * FROM birds WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) page(ctx context.Context, where string, limit, offset int, args ...interface{}) ([]*Bird, int, error) {
	conn := database.Conn(ctx, r.db)

	var total int
	if err := conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM birds `+where, args...); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT * FROM birds %s ORDER BY name ASC LIMIT $%d OFFSET $%d`, where, n+1, n+2)
	birds := []*Bird{}
	if err := conn.SelectContext(ctx, &birds, query, append(args, limit, offset)...); err != nil {
		return nil, 0, err
	}
	return birds, total, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]*Bird, int, error) {
	return r.page(ctx, "", limit, offset)
}

func (r *repository) Search(ctx context.Context, query string, limit, offset int) ([]*Bird, int, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.page(ctx, `WHERE name ILIKE $1 OR species ILIKE $1`, limit, offset, pattern)
}

func (r *repository) SetIcon(ctx context.Context, name, iconURL string) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO birds (id, name, species, icon_url, created_at)
		VALUES ($1, $2, '', $3, $4)
		ON CONFLICT (name) DO UPDATE SET icon_url = EXCLUDED.icon_url
	`, uuid.New(), name, iconURL, time.Now().UTC())
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
