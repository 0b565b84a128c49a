package profile

import (
	"fmt"
	"regexp"
	"strings"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxIDLength is the maximum profile identifier length.
const MaxIDLength = 256

// Profile is a participant of the pool as read by the search core.
// Embedding is nil when the profile was never indexed.
type Profile struct {
	ID                 string    `json:"id" yaml:"id"`
	Name               string    `json:"name" yaml:"name"`
	Bio                string    `json:"bio,omitempty" yaml:"bio"`
	Skills             []string  `json:"skills,omitempty" yaml:"skills"`
	CanHelp            string    `json:"can_help,omitempty" yaml:"can_help"`
	NeedsHelp          string    `json:"needs_help,omitempty" yaml:"needs_help"`
	LookingFor         []string  `json:"looking_for,omitempty" yaml:"looking_for"`
	StartupDescription string    `json:"startup_description,omitempty" yaml:"startup_description"`
	ReadyToChat        *bool     `json:"is_ready_to_chat,omitempty" yaml:"is_ready_to_chat"`
	AvatarURL          string    `json:"avatar_url,omitempty" yaml:"avatar_url"`
	Embedding          []float32 `json:"embedding,omitempty" yaml:"-"`
}

// ValidateID checks that id is usable as a storage key suffix.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("profile ID is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("profile ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("profile ID must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// IsReadyToChat reports the chat readiness flag. Unset means ready.
func (p *Profile) IsReadyToChat() bool {
	if p.ReadyToChat == nil {
		return true
	}
	return *p.ReadyToChat
}

// HasEmbedding reports whether the profile carries a stored vector.
func (p *Profile) HasEmbedding() bool { return len(p.Embedding) > 0 }

// EmbeddingText builds the text sent to the embedding provider.
// Empty parts are skipped; labels match the ones used when the index was first built.
func (p *Profile) EmbeddingText() string {
	parts := make([]string, 0, 6)

	if p.Name != "" {
		parts = append(parts, "Имя: "+p.Name)
	}
	if p.Bio != "" {
		parts = append(parts, "О себе: "+p.Bio)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "Навыки: "+strings.Join(p.Skills, ", "))
	}
	if p.CanHelp != "" {
		parts = append(parts, "Могу помочь: "+p.CanHelp)
	}
	if p.NeedsHelp != "" {
		parts = append(parts, "Нужна помощь: "+p.NeedsHelp)
	}
	if p.StartupDescription != "" {
		parts = append(parts, "Стартап: "+p.StartupDescription)
	}

	return strings.Join(parts, "\n")
}
