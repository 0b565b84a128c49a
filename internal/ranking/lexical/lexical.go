// Package lexical scores a profile against a text query using weighted substring and
// whole-word matches over the profile's text fields.
package lexical

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/thepool/internal/domain/profile"
	"github.com/kailas-cloud/thepool/internal/ranking/synonym"
)

// MinTermLength is the exclusive lower bound (in runes) for a term to be scored.
const MinTermLength = 2

// Per-term multipliers, applied to the field weight.
const (
	originalSubstring = 2.0
	originalWord      = 1.0 // on top of originalSubstring
	synonymSubstring  = 0.5
	synonymWord       = 1.0 // on top of synonymSubstring
)

// Multi-term bonuses. Three or more matched query terms replace the two-term bonus.
const (
	TwoTermBonus   = 1.5
	ThreeTermBonus = 1.3
)

// Field is one weighted text source of a profile.
type Field struct {
	Name   string
	Weight float64
	Text   func(p *profile.Profile) string
}

// DefaultFields are the profile fields searched by default.
var DefaultFields = []Field{
	{Name: "bio", Weight: 3.0, Text: func(p *profile.Profile) string { return p.Bio }},
	{Name: "skills", Weight: 3.0, Text: func(p *profile.Profile) string { return strings.Join(p.Skills, ", ") }},
	{Name: "name", Weight: 1.5, Text: func(p *profile.Profile) string { return p.Name }},
	{Name: "can_help", Weight: 2.0, Text: func(p *profile.Profile) string { return p.CanHelp }},
	{Name: "needs_help", Weight: 2.0, Text: func(p *profile.Profile) string { return p.NeedsHelp }},
	{Name: "looking_for", Weight: 1.5, Text: func(p *profile.Profile) string { return strings.Join(p.LookingFor, ", ") }},
	{Name: "startup_description", Weight: 1.5, Text: func(p *profile.Profile) string { return p.StartupDescription }},
}

// Query is a prepared lexical query, reusable across candidates.
type Query struct {
	original []string      // scoreable query words, in order, deduplicated
	all      synonym.Terms // every query word, scoreable or not
	synonyms []string      // expanded terms not in all, sorted
}

// NewQuery lower-cases and splits text, then prepares the original and expanded term lists.
func NewQuery(text string) Query {
	expanded := synonym.Expand(text)
	words := strings.Fields(strings.ToLower(text))

	q := Query{all: make(synonym.Terms, len(words))}
	for _, w := range words {
		if q.all.Contains(w) {
			continue
		}
		q.all[w] = struct{}{}
		if scoreable(w) {
			q.original = append(q.original, w)
		}
	}

	for _, term := range expanded.Slice() {
		if q.all.Contains(term) || !scoreable(term) {
			continue
		}
		q.synonyms = append(q.synonyms, term)
	}
	return q
}

// Terms returns the scoreable original query words.
func (q Query) Terms() []string { return q.original }

// Synonyms returns the scoreable expanded terms that are not query words.
func (q Query) Synonyms() []string { return q.synonyms }

// Empty reports whether nothing in the query can ever score.
func (q Query) Empty() bool { return len(q.original) == 0 && len(q.synonyms) == 0 }

// Scorer computes raw lexical scores. The zero value is not usable; use New.
type Scorer struct {
	fields []Field
}

// New creates a Scorer over fields, or DefaultFields when none are given.
func New(fields ...Field) *Scorer {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return &Scorer{fields: fields}
}

// Score returns the raw, unbounded lexical score of p for q. Zero means no match.
func (s *Scorer) Score(p *profile.Profile, q Query) float64 {
	if q.Empty() {
		return 0
	}

	var score float64
	matched := make(map[string]struct{}, len(q.original))

	for _, f := range s.fields {
		text := f.Text(p)
		if text == "" {
			continue
		}
		text = strings.ToLower(text)

		for _, term := range q.original {
			if !strings.Contains(text, term) {
				continue
			}
			score += f.Weight * originalSubstring
			if containsWord(text, term) {
				score += f.Weight * originalWord
			}
			matched[term] = struct{}{}
		}

		for _, term := range q.synonyms {
			if !strings.Contains(text, term) {
				continue
			}
			score += f.Weight * synonymSubstring
			if containsWord(text, term) {
				score += f.Weight * synonymWord
			}
		}
	}

	switch {
	case len(matched) >= 3:
		score *= ThreeTermBonus
	case len(matched) == 2:
		score *= TwoTermBonus
	}
	return score
}

// Score is a convenience wrapper using DefaultFields.
func Score(p *profile.Profile, query string) float64 {
	return New().Score(p, NewQuery(query))
}

func scoreable(term string) bool {
	return utf8.RuneCountInString(term) > MinTermLength
}

// containsWord reports whether term occurs in text bounded by non-word runes or the text edges.
// Letters and digits of any script count as word runes.
func containsWord(text, term string) bool {
	for off := 0; off <= len(text)-len(term); {
		i := strings.Index(text[off:], term)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(term)

		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		off = start + size
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
