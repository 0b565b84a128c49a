// Package synonym expands a free-text query into a broader term set using a static
// bilingual synonym table.
package synonym

import (
	"sort"
	"strings"
)

// Terms is an unordered set of lower-cased search terms.
type Terms map[string]struct{}

// Contains reports whether term is in the set.
func (t Terms) Contains(term string) bool {
	_, ok := t[term]
	return ok
}

// Slice returns the terms in lexical order so callers iterate deterministically.
func (t Terms) Slice() []string {
	out := make([]string, 0, len(t))
	for term := range t {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// Expand lower-cases query, splits it on whitespace and returns the full query, every word
// and every synonym of every word found in the table.
// An empty query yields a set containing only the empty string.
func Expand(query string) Terms {
	q := strings.ToLower(query)
	words := strings.Fields(q)

	out := make(Terms, 1+len(words))
	out[q] = struct{}{}

	for _, w := range words {
		out[w] = struct{}{}
		for _, syn := range table[w] {
			out[syn] = struct{}{}
		}
	}
	return out
}

// Lookup returns a copy of the synonyms registered for term (lower-cased), or nil.
func Lookup(term string) []string {
	syns := table[strings.ToLower(term)]
	if len(syns) == 0 {
		return nil
	}
	out := make([]string, len(syns))
	copy(out, syns)
	return out
}
