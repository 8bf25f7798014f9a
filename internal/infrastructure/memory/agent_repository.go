package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/domain/event"
)

// entry guards one agent record. Holding entry.mu serializes mutations of
// that record without blocking writers to other records.
type entry struct {
	mu  sync.Mutex
	rec *agent.Agent
}

// AgentRepository is the in-memory agent registry. Every mutation that
// changes externally visible state publishes an agent_update snapshot
// inside the same guarded section, so observers never see registry state
// newer than the last event emitted for it.
type AgentRepository struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]*entry
	publisher event.Publisher
	logger    zerolog.Logger
}

func NewAgentRepository(publisher event.Publisher, logger zerolog.Logger) *AgentRepository {
	return &AgentRepository{
		entries:   make(map[uuid.UUID]*entry),
		publisher: publisher,
		logger:    logger.With().Str("service", "registry").Logger(),
	}
}

// CreateAdmitted admits and inserts in a single atomic step. The capacity
// check and the insert happen under the same lock so racing spawns cannot
// oversubscribe the cap.
func (r *AgentRepository) CreateAdmitted(a *agent.Agent, maxActive int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := 0
	for _, e := range r.entries {
		e.mu.Lock()
		if e.rec.IsActive() {
			active++
		}
		e.mu.Unlock()
	}
	if active >= maxActive {
		return agent.ErrCapacityExceeded
	}

	r.entries[a.AgentID] = &entry{rec: a.Clone()}
	r.publisher.Publish(event.NewAgentUpdate(a.Clone()))
	return nil
}

// Update applies mutate under the record's entry lock and publishes the
// resulting snapshot. The lock is never held across anything that blocks.
func (r *AgentRepository) Update(id uuid.UUID, mutate func(*agent.Agent) error) (*agent.Agent, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, agent.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := mutate(e.rec); err != nil {
		return nil, err
	}
	e.rec.UpdatedAt = time.Now().UTC()
	snapshot := e.rec.Clone()
	r.publisher.Publish(event.NewAgentUpdate(snapshot))
	return snapshot, nil
}

// Get returns a snapshot of one record.
func (r *AgentRepository) Get(id uuid.UUID) (*agent.Agent, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, agent.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), nil
}

// List returns snapshots of all records.
func (r *AgentRepository) List() []*agent.Agent {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]*agent.Agent, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.rec.Clone())
		e.mu.Unlock()
	}
	return out
}

// ActiveCount returns the number of pending/running agents.
func (r *AgentRepository) ActiveCount() int {
	count := 0
	for _, a := range r.List() {
		if a.IsActive() {
			count++
		}
	}
	return count
}

// DeleteTerminal removes a terminal record. Live records are rejected so an
// executing task body never writes to a removed record.
func (r *AgentRepository) DeleteTerminal(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return agent.ErrNotFound
	}
	e.mu.Lock()
	terminal := e.rec.IsTerminal()
	e.mu.Unlock()
	if !terminal {
		return agent.ErrStillRunning
	}
	delete(r.entries, id)
	r.logger.Info().Str("agent_id", id.String()).Msg("agent deleted")
	return nil
}

// SweepTerminal removes every terminal record present at call time.
// Concurrent spawns are unaffected.
func (r *AgentRepository) SweepTerminal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.entries {
		e.mu.Lock()
		terminal := e.rec.IsTerminal()
		e.mu.Unlock()
		if terminal {
			delete(r.entries, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info().Int("removed", removed).Msg("terminal agents swept")
	}
	return removed
}
