// Package pool holds the per-request value types produced by a pool search.
package pool

import "github.com/kailas-cloud/thepool/internal/domain/profile"

// Mode tells how a result list was produced.
type Mode string

const (
	// ModeRanked is a relevance-ordered list with at least one non-zero signal.
	ModeRanked Mode = "ranked"
	// ModeDiscovery is a random sample returned when nothing matched.
	ModeDiscovery Mode = "discovery"
	// ModeEmpty means there is nothing to show.
	ModeEmpty Mode = "empty"
)

// Position is a point in the layout plane.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Match is one nearest-neighbour hit of a vector search.
// Similarity is 1 - cosine distance, within [0,1].
type Match struct {
	ProfileID  string
	Similarity float64
}

// ScoredCandidate is one profile's scores within a single search.
type ScoredCandidate struct {
	Profile           profile.Profile
	SemanticScore     float64
	HasSemantic       bool
	LexicalScore      float64
	LexicalNormalized float64
	FinalScore        float64
}

// ID returns the candidate profile identifier.
func (c *ScoredCandidate) ID() string { return c.Profile.ID }

// User is a profile as shown in the bubble visualization.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Bio       *string  `json:"bio"`
	IsReady   bool     `json:"isReady"`
	Score     float64  `json:"score"`
	Position  Position `json:"position"`
	AvatarURL *string  `json:"avatarUrl,omitempty"`
	// Size and Color are bubble presentation hints derived from Score.
	Size  float64 `json:"size"`
	Color string  `json:"color"`
}

// UserFromCandidate builds a User with a zero position.
func UserFromCandidate(c *ScoredCandidate) User {
	u := User{
		ID:      c.Profile.ID,
		Name:    c.Profile.Name,
		IsReady: c.Profile.IsReadyToChat(),
		Score:   c.FinalScore,
	}
	if c.Profile.Bio != "" {
		bio := c.Profile.Bio
		u.Bio = &bio
	}
	if c.Profile.AvatarURL != "" {
		avatar := c.Profile.AvatarURL
		u.AvatarURL = &avatar
	}
	return u
}
