package post

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
)

const (
	MaxSpecies           = 5
	MaxSpeciesLength     = 100
	MaxDescriptionLength = 1000

	// DefaultMapRadiusKm applies to map requests without radius_km.
	DefaultMapRadiusKm = 10.0

	// MaxAreaCandidates bounds the rows a radius query loads before exact
	// distance filtering.
	MaxAreaCandidates = 5000
)

// Post is a geotagged bird sighting.
type Post struct {
	ID          uuid.UUID      `db:"id"`
	AuthorID    uuid.UUID      `db:"author_id"`
	Species     pq.StringArray `db:"species"`
	Description string         `db:"description"`
	Latitude    float64        `db:"latitude"`
	Longitude   float64        `db:"longitude"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (p *Post) Coordinates() geo.Coordinates {
	return geo.Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}

func (p *Post) candidate() geo.Candidate[*Post] {
	return geo.Candidate[*Post]{
		ID:        p.ID,
		Coords:    p.Coordinates(),
		CreatedAt: p.CreatedAt,
		Species:   p.Species,
		Item:      p,
	}
}

// ReactionKind is LIKE or DISLIKE. A user holds at most one reaction per
// post.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "LIKE"
	ReactionDislike ReactionKind = "DISLIKE"
)

func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// Reaction is one user's reaction to a post.
type Reaction struct {
	PostID    uuid.UUID    `db:"post_id"`
	UserID    uuid.UUID    `db:"user_id"`
	Kind      ReactionKind `db:"kind"`
	CreatedAt time.Time    `db:"created_at"`
}

// ReactionCounts aggregates reactions on a post.
type ReactionCounts struct {
	Likes    int `db:"likes" json:"likes"`
	Dislikes int `db:"dislikes" json:"dislikes"`
}
