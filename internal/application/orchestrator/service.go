package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/domain/skill"
)

// DefaultInterruptGrace bounds how long an interrupt waits for the task
// body to acknowledge cancellation before the record is forced terminal.
const DefaultInterruptGrace = 5 * time.Second

// Limits supplies the concurrency cap and per-agent timeout. Both are
// captured at admission; in-flight agents keep the limits that were in
// force when they were admitted.
type Limits interface {
	AgentLimits() (maxConcurrent int, timeout time.Duration)
}

// Notifier is told about agents reaching a terminal state.
type Notifier interface {
	AgentFinished(a *agent.Agent)
}

// SpawnRequest carries the parameters of a spawn call.
type SpawnRequest struct {
	AgentType string
	Goal      string
	Context   json.RawMessage
	Workspace string
	SkillIDs  []string
}

// execution tracks one live task body.
type execution struct {
	cancel      context.CancelFunc
	done        chan struct{}
	timedOut    atomic.Bool
	interrupted atomic.Bool
	notified    atomic.Bool
}

// Service is the orchestrator supervisor: it admits spawn requests under
// the concurrency cap, runs each accepted task body on its own goroutine,
// enforces the per-agent timeout, and relays interruption.
type Service struct {
	repo      agent.Repository
	skills    skill.Repository
	limits    Limits
	executors map[agent.Type]Executor
	notifier  Notifier
	grace     time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	running map[uuid.UUID]*execution
}

func NewService(
	repo agent.Repository,
	skills skill.Repository,
	limits Limits,
	executors map[agent.Type]Executor,
	notifier Notifier,
	grace time.Duration,
	logger zerolog.Logger,
) *Service {
	if grace <= 0 {
		grace = DefaultInterruptGrace
	}
	return &Service{
		repo:      repo,
		skills:    skills,
		limits:    limits,
		executors: executors,
		notifier:  notifier,
		grace:     grace,
		running:   make(map[uuid.UUID]*execution),
		logger:    logger.With().Str("service", "orchestrator").Logger(),
	}
}

// Spawn validates and admits a new agent, then starts its task body
// asynchronously. Admission failures are synchronous; execution failures
// surface only on the record and through the event hub.
func (s *Service) Spawn(req SpawnRequest) (uuid.UUID, error) {
	agentType, err := agent.ParseType(req.AgentType)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: unknown agent type %q", agent.ErrValidation, req.AgentType)
	}
	if strings.TrimSpace(req.Goal) == "" {
		return uuid.Nil, fmt.Errorf("%w: task goal is required", agent.ErrValidation)
	}

	skills := make([]*skill.Skill, 0, len(req.SkillIDs))
	for _, id := range req.SkillIDs {
		sk, err := s.skills.Get(id)
		if err != nil {
			if errors.Is(err, skill.ErrNotFound) {
				return uuid.Nil, fmt.Errorf("%w: unknown skill %q", agent.ErrValidation, id)
			}
			return uuid.Nil, err
		}
		skills = append(skills, sk)
	}

	maxConcurrent, timeout := s.limits.AgentLimits()
	rec := agent.New(agentType, agent.Task{Goal: req.Goal, Context: req.Context}, req.Workspace, req.SkillIDs)
	if err := s.repo.CreateAdmitted(rec, maxConcurrent); err != nil {
		return uuid.Nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	ex := &execution{cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.running[rec.AgentID] = ex
	s.mu.Unlock()

	job := Job{
		AgentID:   rec.AgentID,
		AgentType: agentType,
		Goal:      req.Goal,
		Workspace: req.Workspace,
		Skills:    skills,
	}
	go s.run(runCtx, ex, job, timeout)

	s.logger.Info().
		Str("agent_id", rec.AgentID.String()).
		Str("agent_type", string(agentType)).
		Msg("agent spawned")
	return rec.AgentID, nil
}

// run drives one agent through its lifecycle. It owns all status writes on
// behalf of the task body.
func (s *Service) run(ctx context.Context, ex *execution, job Job, timeout time.Duration) {
	defer close(ex.done)
	defer ex.cancel()
	defer func() {
		s.mu.Lock()
		delete(s.running, job.AgentID)
		s.mu.Unlock()
	}()

	executor, ok := s.executors[job.AgentType]
	if !ok {
		// Admission succeeded but the body cannot start.
		_, _ = s.repo.Update(job.AgentID, func(a *agent.Agent) error {
			return a.Fail(fmt.Sprintf("no executor registered for agent type %q", job.AgentType))
		})
		s.notifyTerminal(ex, job.AgentID)
		return
	}

	if _, err := s.repo.Update(job.AgentID, func(a *agent.Agent) error {
		return a.Start("Agent started")
	}); err != nil {
		// Interrupted before the body ever ran.
		s.notifyTerminal(ex, job.AgentID)
		return
	}

	// Deadline armed at the pending->running transition; expiry both fails
	// the record and cancels the body.
	timer := time.AfterFunc(timeout, func() {
		ex.timedOut.Store(true)
		_, _ = s.repo.Update(job.AgentID, func(a *agent.Agent) error {
			return a.Fail(fmt.Sprintf("Agent timed out after %s", timeout))
		})
		s.logger.Warn().Str("agent_id", job.AgentID.String()).Msg("agent timed out")
		ex.cancel()
	})
	defer timer.Stop()

	err := executor.Execute(ctx, job, &reporter{svc: s, agentID: job.AgentID})

	switch {
	case ex.timedOut.Load():
		// Already failed by the deadline timer.
	case ex.interrupted.Load() || errors.Is(err, context.Canceled):
		_, _ = s.repo.Update(job.AgentID, func(a *agent.Agent) error {
			return a.Interrupt("Agent was interrupted")
		})
		s.logger.Info().Str("agent_id", job.AgentID.String()).Msg("agent interrupted")
	case err != nil:
		_, _ = s.repo.Update(job.AgentID, func(a *agent.Agent) error {
			return a.Fail("Agent failed: " + err.Error())
		})
		s.logger.Error().Err(err).Str("agent_id", job.AgentID.String()).Msg("agent failed")
	default:
		_, _ = s.repo.Update(job.AgentID, func(a *agent.Agent) error {
			return a.Complete("Agent completed successfully")
		})
	}
	s.notifyTerminal(ex, job.AgentID)
}

func (s *Service) notifyTerminal(ex *execution, id uuid.UUID) {
	if s.notifier == nil || !ex.notified.CompareAndSwap(false, true) {
		return
	}
	snap, err := s.repo.Get(id)
	if err != nil || !snap.IsTerminal() {
		return
	}
	s.notifier.AgentFinished(snap)
}

// Interrupt requests cooperative cancellation of a pending or running
// agent. If the task body does not acknowledge within the grace period the
// record is forced to interrupted; the abandoned goroutine's late writes
// are rejected by the terminal guard.
func (s *Service) Interrupt(id uuid.UUID) error {
	snap, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if snap.IsTerminal() {
		return agent.ErrNotInterruptible
	}

	s.mu.Lock()
	ex := s.running[id]
	s.mu.Unlock()

	if ex == nil {
		// The runner already unregistered; finalize the record directly.
		_, err := s.repo.Update(id, func(a *agent.Agent) error {
			return a.Interrupt("Agent was interrupted")
		})
		if errors.Is(err, agent.ErrInvalidTransition) {
			return agent.ErrNotInterruptible
		}
		return err
	}

	ex.interrupted.Store(true)
	ex.cancel()

	select {
	case <-ex.done:
		// Cooperative acknowledgment; the run loop wrote the terminal state.
	case <-time.After(s.grace):
		_, _ = s.repo.Update(id, func(a *agent.Agent) error {
			if a.IsTerminal() {
				return agent.ErrInvalidTransition
			}
			return a.Interrupt("Agent was interrupted (no acknowledgment within grace period)")
		})
		s.logger.Warn().Str("agent_id", id.String()).Msg("interrupt grace period elapsed; agent abandoned")
		s.notifyTerminal(ex, id)
	}
	return nil
}

// Delete removes a terminal agent. Running agents must be interrupted
// first so no orphaned task body writes to a removed record.
func (s *Service) Delete(id uuid.UUID) error {
	return s.repo.DeleteTerminal(id)
}

// Cleanup removes every terminal agent and returns the count.
func (s *Service) Cleanup() int {
	return s.repo.SweepTerminal()
}

// List returns snapshots of all agent records.
func (s *Service) List() []*agent.Agent {
	return s.repo.List()
}

// Status returns a snapshot of one agent record.
func (s *Service) Status(id uuid.UUID) (*agent.Agent, error) {
	return s.repo.Get(id)
}

// Artifacts returns the ordered artifact references of one agent.
func (s *Service) Artifacts(id uuid.UUID) ([]string, error) {
	snap, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	return snap.Artifacts, nil
}

// Shutdown cancels all live agents and waits for them to settle, bounded
// by ctx.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	executions := make([]*execution, 0, len(s.running))
	for _, ex := range s.running {
		ex.interrupted.Store(true)
		ex.cancel()
		executions = append(executions, ex)
	}
	s.mu.Unlock()

	for _, ex := range executions {
		select {
		case <-ex.done:
		case <-ctx.Done():
			return
		}
	}
}

// reporter relays task body progress into the registry. Late calls after a
// terminal transition fail the terminal guard and are dropped.
type reporter struct {
	svc     *Service
	agentID uuid.UUID
}

func (r *reporter) Progress(progress int, message string) {
	_, err := r.svc.repo.Update(r.agentID, func(a *agent.Agent) error {
		return a.ApplyProgress(progress, message)
	})
	if err != nil {
		r.svc.logger.Debug().Err(err).Str("agent_id", r.agentID.String()).Msg("progress update dropped")
	}
}

func (r *reporter) Artifact(artifactID string) {
	_, err := r.svc.repo.Update(r.agentID, func(a *agent.Agent) error {
		return a.AppendArtifact(artifactID)
	})
	if err != nil {
		r.svc.logger.Debug().Err(err).Str("agent_id", r.agentID.String()).Msg("artifact append dropped")
	}
}
