// Package filter models tag pre-filters for profile vector search.
package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a conjunction of tag conditions with must/must_not semantics.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// ExcludeID returns an expression that drops the profile with the given id.
// An empty id yields the empty expression.
func ExcludeID(id string) Expression {
	if id == "" {
		return Expression{}
	}
	return Expression{mustNot: []Condition{{key: "id", match: id}}}
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.mustNot) == 0
}

// Matches evaluates the expression against a document's tag values.
// Stores without server-side filtering use it to drop rows in process.
func (e Expression) Matches(tags map[string]string) bool {
	for _, c := range e.must {
		if !c.matches(tags) {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.matches(tags) {
			return false
		}
	}
	return true
}

// Condition is an exact tag match.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

func (c Condition) matches(tags map[string]string) bool {
	v, ok := tags[c.key]
	return ok && v == c.match
}
