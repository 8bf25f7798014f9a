package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/domain/skill"
)

// Job is the work handed to a task body.
type Job struct {
	AgentID   uuid.UUID
	AgentType agent.Type
	Goal      string
	Workspace string
	Skills    []*skill.Skill
}

// Reporter is how a task body feeds progress back to the supervisor.
// Implementations must be safe to call after the agent turned terminal;
// such late calls are silently discarded.
type Reporter interface {
	Progress(progress int, message string)
	Artifact(artifactID string)
}

// Executor is a pluggable task body. Execute runs to completion, reporting
// progress through report, and must return promptly once ctx is cancelled.
// Implementations are registered per agent type; the supervisor treats
// them opaquely.
type Executor interface {
	Execute(ctx context.Context, job Job, report Reporter) error
}

// ArtifactWriter persists executor outputs.
type ArtifactWriter interface {
	Save(agentID, artifactType string, content interface{}) (string, error)
}
