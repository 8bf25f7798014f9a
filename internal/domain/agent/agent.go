package agent

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents agent lifecycle status.
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Type represents the kind of task body an agent runs.
type Type string

const (
	TypeGeneral  Type = "general"
	TypeCode     Type = "code"
	TypeResearch Type = "research"
	TypeTesting  Type = "testing"
	TypeDevOps   Type = "devops"
)

var (
	ErrInvalidTransition = errors.New("invalid agent status transition")
	ErrNotFound          = errors.New("agent not found")
	ErrCapacityExceeded  = errors.New("maximum concurrent agents reached")
	ErrStillRunning      = errors.New("agent is still running")
	ErrNotInterruptible  = errors.New("agent is not interruptible")
	ErrValidation        = errors.New("invalid agent request")
	ErrTerminal          = errors.New("agent is in a terminal state")
)

// ParseType validates an agent type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeGeneral, TypeCode, TypeResearch, TypeTesting, TypeDevOps:
		return Type(s), nil
	}
	return "", ErrValidation
}

// Task is the goal handed to an agent. The orchestrator treats it opaquely.
type Task struct {
	Goal    string          `json:"goal"`
	Context json.RawMessage `json:"context,omitempty"`
}

// Agent represents a supervised background task instance.
type Agent struct {
	AgentID   uuid.UUID `json:"agent_id"`
	AgentType Type      `json:"agent_type"`
	Status    Status    `json:"status"`
	Task      Task      `json:"task"`
	Workspace string    `json:"workspace,omitempty"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Artifacts []string  `json:"artifacts"`
	SkillIDs  []string  `json:"skill_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a pending agent record.
func New(agentType Type, task Task, workspace string, skillIDs []string) *Agent {
	now := time.Now().UTC()
	return &Agent{
		AgentID:   uuid.New(),
		AgentType: agentType,
		Status:    StatusPending,
		Task:      task,
		Workspace: workspace,
		Artifacts: []string{},
		SkillIDs:  skillIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransitionTo validates an agent status transition.
func (a *Agent) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending:     {StatusRunning, StatusFailed, StatusInterrupted},
		StatusRunning:     {StatusCompleted, StatusFailed, StatusInterrupted},
		StatusCompleted:   {},
		StatusFailed:      {},
		StatusInterrupted: {},
	}
	for _, s := range transitions[a.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the agent reached a sink state.
func (a *Agent) IsTerminal() bool {
	switch a.Status {
	case StatusCompleted, StatusFailed, StatusInterrupted:
		return true
	}
	return false
}

// IsActive reports whether the agent counts against the concurrency cap.
func (a *Agent) IsActive() bool {
	return a.Status == StatusPending || a.Status == StatusRunning
}

// Start sets the agent to running.
func (a *Agent) Start(message string) error {
	if !a.CanTransitionTo(StatusRunning) {
		return ErrInvalidTransition
	}
	a.Status = StatusRunning
	a.Message = message
	return nil
}

// Complete sets the agent to completed with full progress.
func (a *Agent) Complete(message string) error {
	if !a.CanTransitionTo(StatusCompleted) {
		return ErrInvalidTransition
	}
	a.Status = StatusCompleted
	a.Progress = 100
	a.Message = message
	return nil
}

// Fail sets the agent to failed.
func (a *Agent) Fail(message string) error {
	if !a.CanTransitionTo(StatusFailed) {
		return ErrInvalidTransition
	}
	a.Status = StatusFailed
	a.Message = message
	return nil
}

// Interrupt sets the agent to interrupted.
func (a *Agent) Interrupt(message string) error {
	if !a.CanTransitionTo(StatusInterrupted) {
		return ErrInvalidTransition
	}
	a.Status = StatusInterrupted
	a.Message = message
	return nil
}

// ApplyProgress updates progress and message while the agent is live.
// Progress is monotone: a lower value than the current one is ignored.
func (a *Agent) ApplyProgress(progress int, message string) error {
	if a.IsTerminal() {
		return ErrTerminal
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if progress > a.Progress {
		a.Progress = progress
	}
	a.Message = message
	return nil
}

// AppendArtifact records an artifact reference produced by the task body.
func (a *Agent) AppendArtifact(artifactID string) error {
	if a.IsTerminal() {
		return ErrTerminal
	}
	a.Artifacts = append(a.Artifacts, artifactID)
	return nil
}

// Clone returns a deep copy safe to hand to observers.
func (a *Agent) Clone() *Agent {
	c := *a
	c.Artifacts = append(make([]string, 0, len(a.Artifacts)), a.Artifacts...)
	c.SkillIDs = append([]string(nil), a.SkillIDs...)
	if a.Task.Context != nil {
		c.Task.Context = append(json.RawMessage(nil), a.Task.Context...)
	}
	return &c
}
