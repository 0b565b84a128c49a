package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/thepool/internal/domain"
	"github.com/kailas-cloud/thepool/internal/domain/profile"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in runes.
	MaxQueryLength = 512
	// MaxLimit caps the number of users returned by one search.
	MaxLimit = 500
)

// Request is a validated pool search query.
type Request struct {
	query     string
	excludeID string
	limit     int
}

// New validates and normalizes search parameters.
// The query is trimmed and must be non-empty. excludeID is optional.
// limit <= 0 means "every candidate"; larger values are clamped to MaxLimit.
func New(query, excludeID string, limit int) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if excludeID != "" {
		if err := profile.ValidateID(excludeID); err != nil {
			return Request{}, fmt.Errorf("%w: exclude: %w", domain.ErrInvalidQuery, err)
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{query: query, excludeID: excludeID, limit: limit}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// ExcludeID returns the profile that must not appear in results (empty when unknown).
func (r *Request) ExcludeID() string { return r.excludeID }

// Limit returns the maximum number of users to return, 0 for no limit.
func (r *Request) Limit() int { return r.limit }
