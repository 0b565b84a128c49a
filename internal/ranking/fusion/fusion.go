// Package fusion merges semantic and lexical signals into a single bounded relevance score.
package fusion

import (
	"math"
	"sort"

	"github.com/kailas-cloud/thepool/internal/domain/pool"
)

// Weights controls how signals are blended.
type Weights struct {
	Semantic    float64 // semantic share when a semantic score exists
	Lexical     float64 // lexical share when a semantic score exists
	LexicalOnly float64 // lexical share when no semantic score exists
}

// DefaultWeights returns 0.7/0.3 for hybrid and 0.5 for lexical-only candidates.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Lexical: 0.3, LexicalOnly: 0.5}
}

// Fuse combines one candidate's signals. The result is finite and within [0,1].
func (w Weights) Fuse(semantic float64, hasSemantic bool, lexicalNormalized float64) float64 {
	lex := Clamp(lexicalNormalized)
	if hasSemantic {
		return Clamp(w.Semantic*Clamp(semantic) + w.Lexical*lex)
	}
	return Clamp(w.LexicalOnly * lex)
}

// Clamp bounds v to [0,1] and maps NaN to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 1:
		return 1
	default:
		return v
	}
}

// Normalize divides each candidate's raw lexical score by the maximum raw score.
// When the maximum is zero (or negative) the divisor is 1 so scores stay at zero.
func Normalize(cands []pool.ScoredCandidate) {
	var maxRaw float64
	for i := range cands {
		if raw := cands[i].LexicalScore; raw > maxRaw && !math.IsInf(raw, 1) {
			maxRaw = raw
		}
	}
	if maxRaw <= 0 {
		maxRaw = 1
	}
	for i := range cands {
		cands[i].LexicalNormalized = Clamp(cands[i].LexicalScore / maxRaw)
	}
}

// Rank normalizes lexical scores, fuses every candidate and stable-sorts by FinalScore
// descending. Ties keep their input order.
func Rank(cands []pool.ScoredCandidate, w Weights) {
	Normalize(cands)
	for i := range cands {
		c := &cands[i]
		c.FinalScore = w.Fuse(c.SemanticScore, c.HasSemantic, c.LexicalNormalized)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].FinalScore > cands[j].FinalScore
	})
}

// HasSignal reports whether any candidate has a non-zero lexical or semantic score.
func HasSignal(cands []pool.ScoredCandidate) bool {
	for i := range cands {
		if cands[i].LexicalScore > 0 {
			return true
		}
		if cands[i].HasSemantic && cands[i].SemanticScore > 0 {
			return true
		}
	}
	return false
}
