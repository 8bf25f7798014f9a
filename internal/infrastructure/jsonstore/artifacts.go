package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is an opaque output produced by an executing task body.
// artifact_type: plan | task_breakdown | test_results | screenshot | report.
type Artifact struct {
	ArtifactID   string      `json:"artifact_id"`
	AgentID      string      `json:"agent_id"`
	ArtifactType string      `json:"artifact_type"`
	Content      interface{} `json:"content"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ArtifactStore persists artifacts as <dataDir>/artifacts/<id>.json.
type ArtifactStore struct {
	dir    string
	logger zerolog.Logger
}

func NewArtifactStore(dataDir string, logger zerolog.Logger) (*ArtifactStore, error) {
	dir := filepath.Join(dataDir, "artifacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	return &ArtifactStore{
		dir:    dir,
		logger: logger.With().Str("service", "artifacts").Logger(),
	}, nil
}

// Save persists a new artifact and returns its id.
func (s *ArtifactStore) Save(agentID, artifactType string, content interface{}) (string, error) {
	art := &Artifact{
		ArtifactID:   uuid.New().String(),
		AgentID:      agentID,
		ArtifactType: artifactType,
		Content:      content,
		CreatedAt:    time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(s.pathFor(art.ArtifactID), raw, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	s.logger.Info().
		Str("artifact_id", art.ArtifactID).
		Str("artifact_type", artifactType).
		Str("agent_id", agentID).
		Msg("artifact created")
	return art.ArtifactID, nil
}

// Get loads an artifact by id.
func (s *ArtifactStore) Get(id string) (*Artifact, error) {
	// Ids are uuids we issued; anything else never names a stored file.
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrArtifactNotFound
	}
	raw, err := os.ReadFile(s.pathFor(id))
	if os.IsNotExist(err) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var art Artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	return &art, nil
}

func (s *ArtifactStore) pathFor(id string) string {
	return filepath.Join(s.dir, id+".json")
}
