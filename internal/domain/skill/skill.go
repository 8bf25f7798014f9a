package skill

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("skill not found")

// Skill is a reusable capability attached to agents at spawn time.
type Skill struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Icon                 string    `json:"icon,omitempty"`
	SystemPromptAddition string    `json:"system_prompt_addition,omitempty"`
	Tools                []string  `json:"tools,omitempty"`
	Tags                 []string  `json:"tags,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// New creates a skill with a fresh id.
func New(name, description string) *Skill {
	return &Skill{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// HasTag reports whether the skill carries the given tag.
func (s *Skill) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Matches reports whether the query appears in the skill name or description.
func (s *Skill) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(s.Name), q) ||
		strings.Contains(strings.ToLower(s.Description), q)
}
