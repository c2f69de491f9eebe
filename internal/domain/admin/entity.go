package admin

import "github.com/google/uuid"

// TopN bounds the leaderboards in Analytics.
const TopN = 5

// Analytics is the admin dashboard snapshot.
type Analytics struct {
	TotalUsers    int            `json:"total_users"`
	NewUsers7d    int            `json:"new_users_7d"`
	TotalPosts    int            `json:"total_posts"`
	NewPosts7d    int            `json:"new_posts_7d"`
	PendingFlags  int            `json:"pending_flags"`
	PendingIcons  int            `json:"pending_bird_icons"`
	TopSpecies    []SpeciesCount `json:"top_species"`
	TopPosters    []PosterCount  `json:"top_posters"`
	ModeratorReqs int            `json:"pending_moderator_requests"`
}

// SpeciesCount is the number of posts mentioning a species.
type SpeciesCount struct {
	Species string `db:"species" json:"species"`
	Posts   int    `db:"posts" json:"posts"`
}

// PosterCount is the number of posts by a user.
type PosterCount struct {
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	Username string    `db:"username" json:"username"`
	Posts    int       `db:"posts" json:"posts"`
}
