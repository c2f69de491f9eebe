package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new post repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Post) error {
	query := `
		INSERT INTO posts (id, author_id, species, description, latitude, longitude, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.AuthorID, p.Species, p.Description, p.Latitude, p.Longitude, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	var p Post
	err := database.Conn(ctx, r.db).GetContext(ctx, &p, `SELECT * FROM posts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) Update(ctx context.Context, p *Post) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE posts SET species = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, p.ID, p.Species, p.Description, p.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// page runs a filtered, newest-first listing. where may reference $1..$n
// for the n args.
func (r *repository) page(ctx context.Context, where string, limit, offset int, args ...interface{}) ([]*Post, int, error) {
	conn := database.Conn(ctx, r.db)

	var total int
	if err := conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM posts `+where, args...); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*Post{}, 0, nil
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT * FROM posts %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, where, n+1, n+2)
	posts := []*Post{}
	if err := conn.SelectContext(ctx, &posts, query, append(args, limit, offset)...); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]*Post, int, error) {
	return r.page(ctx, "", limit, offset)
}

func (r *repository) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Post, int, error) {
	return r.page(ctx, `WHERE author_id = $1`, limit, offset, authorID)
}

func (r *repository) ListByAuthors(ctx context.Context, authorIDs []uuid.UUID, limit, offset int) ([]*Post, int, error) {
	if len(authorIDs) == 0 {
		return []*Post{}, 0, nil
	}
	return r.page(ctx, `WHERE author_id = ANY($1::uuid[])`, limit, offset, database.UUIDArray(authorIDs))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *repository) Search(ctx context.Context, query string, limit, offset int) ([]*Post, int, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	where := `WHERE description ILIKE $1 OR EXISTS (SELECT 1 FROM unnest(species) s WHERE s ILIKE $1)`
	return r.page(ctx, where, limit, offset, pattern)
}

func (r *repository) WithinBox(ctx context.Context, box geo.Box, species []string, limit int) ([]*Post, error) {
	query := `
		SELECT * FROM posts
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
	`
	args := []interface{}{box.MinLat, box.MaxLat, box.MinLon, box.MaxLon}
	if len(species) > 0 {
		query += ` AND EXISTS (SELECT 1 FROM unnest(species) s WHERE lower(s) = ANY($5::text[]))`
		args = append(args, pq.StringArray(species))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	posts := []*Post{}
	err := database.Conn(ctx, r.db).SelectContext(ctx, &posts, query, args...)
	return posts, err
}

func (r *repository) GetReaction(ctx context.Context, postID, userID uuid.UUID) (*Reaction, error) {
	var rc Reaction
	err := database.Conn(ctx, r.db).GetContext(ctx, &rc,
		`SELECT * FROM post_reactions WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rc, nil
}

func (r *repository) UpsertReaction(ctx context.Context, rc *Reaction) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO post_reactions (post_id, user_id, kind, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, user_id) DO UPDATE SET kind = EXCLUDED.kind, created_at = EXCLUDED.created_at
	`, rc.PostID, rc.UserID, rc.Kind, rc.CreatedAt)
	if err != nil && database.IsForeignKeyViolation(err) {
		return ErrPostNotFound
	}
	return err
}

func (r *repository) DeleteReaction(ctx context.Context, postID, userID uuid.UUID, kind ReactionKind) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM post_reactions WHERE post_id = $1 AND user_id = $2 AND kind = $3`, postID, userID, kind)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *repository) CountReactions(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]ReactionCounts, error) {
	out := make(map[uuid.UUID]ReactionCounts, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		PostID uuid.UUID `db:"post_id"`
		ReactionCounts
	}
	err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, `
		SELECT post_id,
		       COUNT(*) FILTER (WHERE kind = 'LIKE')    AS likes,
		       COUNT(*) FILTER (WHERE kind = 'DISLIKE') AS dislikes
		FROM post_reactions
		WHERE post_id = ANY($1::uuid[])
		GROUP BY post_id
	`, database.UUIDArray(postIDs))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = row.ReactionCounts
	}
	return out, nil
}

func (r *repository) UserReactions(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]ReactionKind, error) {
	out := make(map[uuid.UUID]ReactionKind, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var rows []Reaction
	err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, `
		SELECT * FROM post_reactions WHERE user_id = $1 AND post_id = ANY($2::uuid[])
	`, userID, database.UUIDArray(postIDs))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = row.Kind
	}
	return out, nil
}
