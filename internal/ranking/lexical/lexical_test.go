package lexical

import (
	"math"
	"slices"
	"testing"

	"github.com/kailas-cloud/thepool/internal/domain/profile"
)

func assertScore(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("score = %v, want %v", got, want)
	}
}

func TestNewQuery_SplitsAndFilters(t *testing.T) {
	q := NewQuery("React   UI react")

	if !slices.Equal(q.Terms(), []string{"react"}) {
		t.Errorf("Terms() = %v, want [react] (short and duplicate words dropped)", q.Terms())
	}
	if !slices.Contains(q.Synonyms(), "реакт") {
		t.Errorf("Synonyms() = %v, missing реакт", q.Synonyms())
	}
	if slices.Contains(q.Synonyms(), "react") {
		t.Error("original term repeated among synonyms")
	}
	if q.Empty() {
		t.Error("Empty() = true")
	}
}

func TestNewQuery_ShortTermsOnly(t *testing.T) {
	q := NewQuery("ab")
	if len(q.Terms()) != 0 || !q.Empty() {
		t.Errorf("terms = %v empty = %v", q.Terms(), q.Empty())
	}
}

func TestNewQuery_ShortWordStillExpands(t *testing.T) {
	q := NewQuery("ml")

	if len(q.Terms()) != 0 {
		t.Errorf("Terms() = %v, want none", q.Terms())
	}
	for _, want := range []string{"machine learning", "машинное обучение"} {
		if !slices.Contains(q.Synonyms(), want) {
			t.Errorf("Synonyms() missing %q", want)
		}
	}
}

func TestScore_WholeWordOriginal(t *testing.T) {
	p := &profile.Profile{Bio: "I write React daily"}
	// bio weight 3: substring 3*2 + whole word 3*1.
	assertScore(t, Score(p, "react"), 9)
}

func TestScore_SubstringOnly(t *testing.T) {
	p := &profile.Profile{Bio: "building reactive systems"}
	assertScore(t, Score(p, "react"), 6)
}

func TestScore_SynonymWholeWord(t *testing.T) {
	p := &profile.Profile{Bio: "пишу на реакт"}
	// bio weight 3: synonym substring 3*0.5 + whole word 3*1.
	assertScore(t, Score(p, "react"), 4.5)
}

func TestScore_WholeWordBeatsSynonymOnly(t *testing.T) {
	direct := &profile.Profile{Skills: []string{"React"}}
	viaSynonym := &profile.Profile{Skills: []string{"реакт"}}

	if d, s := Score(direct, "react"), Score(viaSynonym, "react"); d <= s {
		t.Errorf("direct %v should beat synonym %v", d, s)
	}
}

func TestScore_CyrillicWordBoundaries(t *testing.T) {
	word := &profile.Profile{Bio: "делаю дизайн"}
	prefix := &profile.Profile{Bio: "дизайнер интерфейсов"}

	assertScore(t, Score(word, "дизайн"), 9)
	assertScore(t, Score(prefix, "дизайн"), 6)
}

func TestScore_FieldWeights(t *testing.T) {
	tests := []struct {
		name string
		p    profile.Profile
		want float64
	}{
		{"bio", profile.Profile{Bio: "rust"}, 9.0},
		{"skills", profile.Profile{Skills: []string{"Go", "Rust"}}, 9.0},
		{"name", profile.Profile{Name: "Rust"}, 4.5},
		{"can_help", profile.Profile{CanHelp: "rust reviews"}, 6.0},
		{"needs_help", profile.Profile{NeedsHelp: "learning rust"}, 6.0},
		{"looking_for", profile.Profile{LookingFor: []string{"rust mentor"}}, 4.5},
		{"startup_description", profile.Profile{StartupDescription: "rust tooling"}, 4.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertScore(t, Score(&tt.p, "rust"), tt.want)
		})
	}
}

func TestScore_TwoTermBonus(t *testing.T) {
	p := &profile.Profile{Skills: []string{"Python", "Docker"}}
	// (9 + 9) * 1.5
	assertScore(t, Score(p, "python docker"), 27)
}

func TestScore_ThreeTermBonusReplacesTwoTerm(t *testing.T) {
	p := &profile.Profile{Skills: []string{"Python", "Docker", "Kubernetes"}}
	// (9 + 9 + 9) * 1.3, not * 1.5 * 1.3
	assertScore(t, Score(p, "python docker kubernetes"), 35.1)
}

func TestScore_BonusCountsDistinctTermsAcrossFields(t *testing.T) {
	p := &profile.Profile{Name: "Rust", Bio: "rust and more rust"}
	// One distinct term, no bonus: bio 9 + name 4.5.
	assertScore(t, Score(p, "rust"), 13.5)
}

func TestScore_NoMatch(t *testing.T) {
	p := &profile.Profile{Name: "Bob", Bio: "Vue.js developer", Skills: []string{"Vue.js"}}
	if got := Score(p, "react"); got != 0 {
		t.Errorf("Score = %v, want 0", got)
	}
	if got := Score(&profile.Profile{}, "react"); got != 0 {
		t.Errorf("empty profile score = %v, want 0", got)
	}
}

func TestScore_CaseInsensitive(t *testing.T) {
	p := &profile.Profile{Bio: "KUBERNETES operator"}
	if a, b := Score(p, "kubernetes"), Score(p, "Kubernetes"); a != b {
		t.Errorf("case changed score: %v vs %v", a, b)
	}
}

func TestScorer_CustomFields(t *testing.T) {
	s := New(Field{Name: "bio", Weight: 1, Text: func(p *profile.Profile) string { return p.Bio }})
	p := &profile.Profile{Name: "rust", Bio: "rust"}

	assertScore(t, s.Score(p, NewQuery("rust")), 3)
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text, term string
		want       bool
	}{
		{"react", "react", true},
		{"react, vue", "react", true},
		{"(react)", "react", true},
		{"reactive", "react", false},
		{"preact", "react", false},
		{"preact and react", "react", true},
		{"vue.js dev", "vue.js", true},
		{"vue.jsx", "vue.js", false},
		{"go_lang", "go", false},
		{"node2", "node", false},
		{"привет мир", "мир", true},
		{"мирный", "мир", false},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.term, func(t *testing.T) {
			if got := containsWord(tt.text, tt.term); got != tt.want {
				t.Errorf("containsWord(%q, %q) = %v, want %v", tt.text, tt.term, got, tt.want)
			}
		})
	}
}
