package admin

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
)

// Repository reads dashboard aggregates
type Repository interface {
	Analytics(ctx context.Context, since time.Time) (*Analytics, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates admin repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Analytics(ctx context.Context, since time.Time) (*Analytics, error) {
	conn := database.Conn(ctx, r.db)
	a := &Analytics{}

	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&a.TotalUsers, `SELECT COUNT(*) FROM users`, nil},
		{&a.NewUsers7d, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, []interface{}{since}},
		{&a.TotalPosts, `SELECT COUNT(*) FROM posts`, nil},
		{&a.NewPosts7d, `SELECT COUNT(*) FROM posts WHERE created_at >= $1`, []interface{}{since}},
		{&a.PendingFlags, `SELECT COUNT(*) FROM flagged_posts WHERE status = 'PENDING'`, nil},
		{&a.PendingIcons, `SELECT COUNT(*) FROM bird_icon_submissions WHERE status = 'PENDING'`, nil},
		{&a.ModeratorReqs, `SELECT COUNT(*) FROM moderator_requests WHERE status = 'PENDING'`, nil},
	}
	for _, c := range counts {
		if err := conn.GetContext(ctx, c.dest, c.query, c.args...); err != nil {
			return nil, err
		}
	}

	a.TopSpecies = []SpeciesCount{}
	if err := conn.SelectContext(ctx, &a.TopSpecies, `
		SELECT lower(s) AS species, COUNT(*) AS posts
		FROM posts, unnest(species) AS s
		GROUP BY lower(s)
		ORDER BY posts DESC, species ASC
		LIMIT $1
	`, TopN); err != nil {
		return nil, err
	}

	a.TopPosters = []PosterCount{}
	if err := conn.SelectContext(ctx, &a.TopPosters, `
		SELECT u.id AS user_id, u.username, COUNT(p.id) AS posts
		FROM posts p
		JOIN users u ON u.id = p.author_id
		GROUP BY u.id, u.username
		ORDER BY posts DESC, u.username ASC
		LIMIT $1
	`, TopN); err != nil {
		return nil, err
	}

	return a, nil
}
