package skills

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/domain/skill"
)

// Service manages the skill library.
type Service struct {
	repo   skill.Repository
	logger zerolog.Logger
}

func NewService(repo skill.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "skills").Logger(),
	}
}

// CreateRequest carries the fields accepted when defining a skill.
type CreateRequest struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Icon                 string   `json:"icon"`
	SystemPromptAddition string   `json:"system_prompt_addition"`
	Tools                []string `json:"tools"`
	Tags                 []string `json:"tags"`
}

// List returns skills, optionally filtered by tag and a free-text query.
func (s *Service) List(tag, query string) ([]*skill.Skill, error) {
	all, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	out := make([]*skill.Skill, 0, len(all))
	for _, sk := range all {
		if tag != "" && !sk.HasTag(tag) {
			continue
		}
		if query != "" && !sk.Matches(query) {
			continue
		}
		out = append(out, sk)
	}
	return out, nil
}

func (s *Service) Get(id string) (*skill.Skill, error) {
	return s.repo.Get(id)
}

// Create validates and stores a new skill definition.
func (s *Service) Create(req CreateRequest) (*skill.Skill, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: skill name is required", agent.ErrValidation)
	}
	sk := skill.New(strings.TrimSpace(req.Name), req.Description)
	sk.Icon = req.Icon
	sk.SystemPromptAddition = req.SystemPromptAddition
	sk.Tools = req.Tools
	sk.Tags = req.Tags
	if err := s.repo.Create(sk); err != nil {
		return nil, fmt.Errorf("create skill: %w", err)
	}
	s.logger.Info().Str("skill_id", sk.ID).Str("name", sk.Name).Msg("skill created")
	return sk, nil
}

// Update replaces the mutable fields of an existing skill.
func (s *Service) Update(id string, req CreateRequest) (*skill.Skill, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: skill name is required", agent.ErrValidation)
	}
	sk, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	sk.Name = strings.TrimSpace(req.Name)
	sk.Description = req.Description
	sk.Icon = req.Icon
	sk.SystemPromptAddition = req.SystemPromptAddition
	sk.Tools = req.Tools
	sk.Tags = req.Tags
	if err := s.repo.Update(sk); err != nil {
		return nil, fmt.Errorf("update skill: %w", err)
	}
	s.logger.Info().Str("skill_id", sk.ID).Msg("skill updated")
	return sk, nil
}

func (s *Service) Delete(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.logger.Info().Str("skill_id", id).Msg("skill deleted")
	return nil
}

// Tags returns the sorted set of distinct tags across the library.
func (s *Service) Tags() ([]string, error) {
	all, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, sk := range all {
		for _, tag := range sk.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags, nil
}
