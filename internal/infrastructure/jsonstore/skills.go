package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/home-hub/home-hub/internal/domain/skill"
)

const skillsFile = "skills.json"

// SkillRepository stores skills in <dataDir>/skills.json. First load seeds
// the file with a default skill set.
type SkillRepository struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewSkillRepository(dataDir string, logger zerolog.Logger) (*SkillRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &SkillRepository{
		path:   filepath.Join(dataDir, skillsFile),
		logger: logger.With().Str("service", "skills").Logger(),
	}, nil
}

func defaultSkills() []*skill.Skill {
	seeds := []struct {
		name, description, icon, prompt string
		tools, tags                     []string
	}{
		{
			name:        "Code Reviewer",
			description: "Code quality review, refactoring proposals, best practices",
			icon:        "🔍",
			prompt:      "You are a code reviewer. Check code quality, propose refactorings, look for security issues, and recommend best practices.",
			tools:       []string{"filesystem", "git", "vscode"},
			tags:        []string{"code", "quality"},
		},
		{
			name:        "Git Operations",
			description: "Repository management, branching strategy, CI/CD",
			icon:        "🔧",
			prompt:      "You are a git workflow expert. You handle branching strategies, merge/rebase, CI/CD pipelines, and code review processes.",
			tools:       []string{"git", "filesystem"},
			tags:        []string{"git", "devops"},
		},
		{
			name:        "Research Analyst",
			description: "Documentation search, source analysis, report synthesis",
			icon:        "📚",
			prompt:      "You are a research analyst. Search documentation, analyze sources, and synthesize clear findings with references.",
			tools:       []string{"filesystem"},
			tags:        []string{"research"},
		},
		{
			name:        "Test Engineer",
			description: "Test case design, coverage analysis, regression hunting",
			icon:        "🧪",
			prompt:      "You are a test engineer. Identify test cases, analyze coverage gaps, and write focused regression tests.",
			tools:       []string{"filesystem", "git"},
			tags:        []string{"testing", "quality"},
		},
	}

	out := make([]*skill.Skill, 0, len(seeds))
	for _, sp := range seeds {
		s := skill.New(sp.name, sp.description)
		s.Icon = sp.icon
		s.SystemPromptAddition = sp.prompt
		s.Tools = sp.tools
		s.Tags = sp.tags
		out = append(out, s)
	}
	return out
}

func (r *SkillRepository) read() ([]*skill.Skill, error) {
	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		seeds := defaultSkills()
		if err := r.write(seeds); err != nil {
			return nil, err
		}
		r.logger.Info().Int("count", len(seeds)).Msg("seeded default skills")
		return seeds, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skills: %w", err)
	}
	var skills []*skill.Skill
	if err := json.Unmarshal(raw, &skills); err != nil {
		return nil, fmt.Errorf("parse skills: %w", err)
	}
	return skills, nil
}

func (r *SkillRepository) write(skills []*skill.Skill) error {
	raw, err := json.MarshalIndent(skills, "", "  ")
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write skills: %w", err)
	}
	return os.Rename(tmp, r.path)
}

// List returns all stored skills.
func (r *SkillRepository) List() ([]*skill.Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

// Get returns one skill by id.
func (r *SkillRepository) Get(id string) (*skill.Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	skills, err := r.read()
	if err != nil {
		return nil, err
	}
	for _, s := range skills {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, skill.ErrNotFound
}

// Create appends a new skill.
func (r *SkillRepository) Create(s *skill.Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	skills, err := r.read()
	if err != nil {
		return err
	}
	return r.write(append(skills, s))
}

// Update replaces a stored skill by id.
func (r *SkillRepository) Update(s *skill.Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	skills, err := r.read()
	if err != nil {
		return err
	}
	for i, existing := range skills {
		if existing.ID == s.ID {
			skills[i] = s
			return r.write(skills)
		}
	}
	return skill.ErrNotFound
}

// Delete removes a skill by id.
func (r *SkillRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	skills, err := r.read()
	if err != nil {
		return err
	}
	for i, existing := range skills {
		if existing.ID == id {
			return r.write(append(skills[:i], skills[i+1:]...))
		}
	}
	return skill.ErrNotFound
}
