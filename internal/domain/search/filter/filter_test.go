package filter

import (
	"strings"
	"testing"
)

func TestNewMatch_Valid(t *testing.T) {
	c, err := NewMatch("id", "anna")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Key() != "id" {
		t.Errorf("Key() = %q", c.Key())
	}
	if c.Match() != "anna" {
		t.Errorf("Match() = %q", c.Match())
	}
}

func TestNewMatch_EmptyKey(t *testing.T) {
	_, err := NewMatch("", "anna")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "key is required") {
		t.Errorf("error = %q", err)
	}
}

func TestNewMatch_EmptyValue(t *testing.T) {
	_, err := NewMatch("id", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "match value") {
		t.Errorf("error = %q", err)
	}
}

func TestNewExpression_TooManyConditions(t *testing.T) {
	c, _ := NewMatch("id", "x")
	many := make([]Condition, MaxConditionsPerGroup+1)
	for i := range many {
		many[i] = c
	}

	if _, err := NewExpression(many, nil); err == nil || !strings.Contains(err.Error(), "must conditions") {
		t.Errorf("must overflow: err = %v", err)
	}
	if _, err := NewExpression(nil, many); err == nil || !strings.Contains(err.Error(), "must_not") {
		t.Errorf("must_not overflow: err = %v", err)
	}
}

func TestExcludeID(t *testing.T) {
	if !ExcludeID("").IsEmpty() {
		t.Error("ExcludeID(\"\") should be empty")
	}

	e := ExcludeID("me")
	if e.IsEmpty() {
		t.Fatal("expected a condition")
	}
	if len(e.Must()) != 0 || len(e.MustNot()) != 1 {
		t.Fatalf("must=%d must_not=%d", len(e.Must()), len(e.MustNot()))
	}
	if c := e.MustNot()[0]; c.Key() != "id" || c.Match() != "me" {
		t.Errorf("condition = %s:%s", c.Key(), c.Match())
	}
}

func TestMatches(t *testing.T) {
	lang, _ := NewMatch("lang", "go")
	me, _ := NewMatch("id", "me")
	expr, err := NewExpression([]Condition{lang}, []Condition{me})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{"must and not excluded", map[string]string{"id": "anna", "lang": "go"}, true},
		{"excluded id", map[string]string{"id": "me", "lang": "go"}, false},
		{"must missing", map[string]string{"id": "anna"}, false},
		{"must differs", map[string]string{"id": "anna", "lang": "rust"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expr.Matches(tt.tags); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.tags, got, tt.want)
			}
		})
	}

	if !(Expression{}).Matches(map[string]string{"id": "me"}) {
		t.Error("empty expression should match everything")
	}
}
