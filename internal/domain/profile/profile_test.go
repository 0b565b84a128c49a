package profile

import (
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"user-1", false},
		{"3f2b8c1e-0d4a-4b7e-9a55-2f7f1c9e8d10", false},
		{"under_score", false},
		{"", true},
		{"has space", true},
		{"colon:id", true},
		{strings.Repeat("a", MaxIDLength+1), true},
	}
	for _, tc := range tests {
		err := ValidateID(tc.id)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateID(%q) error = %v, wantErr %v", tc.id, err, tc.wantErr)
		}
	}
}

func TestIsReadyToChat_DefaultsToTrue(t *testing.T) {
	p := Profile{ID: "a"}
	if !p.IsReadyToChat() {
		t.Error("unset readiness should default to true")
	}

	no := false
	p.ReadyToChat = &no
	if p.IsReadyToChat() {
		t.Error("explicit false should be respected")
	}
}

func TestHasEmbedding(t *testing.T) {
	p := Profile{ID: "a"}
	if p.HasEmbedding() {
		t.Error("nil embedding should report false")
	}
	p.Embedding = []float32{0.1}
	if !p.HasEmbedding() {
		t.Error("non-empty embedding should report true")
	}
}

func TestEmbeddingText_AllFields(t *testing.T) {
	p := Profile{
		Name:               "Alice",
		Bio:                "Frontend developer",
		Skills:             []string{"React", "TypeScript"},
		CanHelp:            "code review",
		NeedsHelp:          "fundraising",
		StartupDescription: "dev tools",
	}

	want := "Имя: Alice\n" +
		"О себе: Frontend developer\n" +
		"Навыки: React, TypeScript\n" +
		"Могу помочь: code review\n" +
		"Нужна помощь: fundraising\n" +
		"Стартап: dev tools"

	if got := p.EmbeddingText(); got != want {
		t.Errorf("EmbeddingText() =\n%q\nwant\n%q", got, want)
	}
}

func TestEmbeddingText_SkipsEmpty(t *testing.T) {
	p := Profile{Name: "Bob"}
	if got := p.EmbeddingText(); got != "Имя: Bob" {
		t.Errorf("unexpected text %q", got)
	}

	empty := Profile{}
	if got := empty.EmbeddingText(); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}
