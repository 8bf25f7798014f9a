package memory

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/domain/event"
)

// collectingPublisher records every published event.
type collectingPublisher struct {
	mu     sync.Mutex
	events []event.Message
}

func (p *collectingPublisher) Publish(msg event.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
}

func (p *collectingPublisher) all() []event.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Message(nil), p.events...)
}

func newRepo() (*AgentRepository, *collectingPublisher) {
	pub := &collectingPublisher{}
	return NewAgentRepository(pub, zerolog.Nop()), pub
}

func newAgent(goal string) *agent.Agent {
	return agent.New(agent.TypeGeneral, agent.Task{Goal: goal}, "", nil)
}

func TestCreateAdmittedEnforcesCap(t *testing.T) {
	repo, _ := newRepo()

	require.NoError(t, repo.CreateAdmitted(newAgent("a"), 2))
	require.NoError(t, repo.CreateAdmitted(newAgent("b"), 2))
	err := repo.CreateAdmitted(newAgent("c"), 2)
	assert.ErrorIs(t, err, agent.ErrCapacityExceeded)
	assert.Len(t, repo.List(), 2, "rejected spawn must not create a record")
}

func TestCreateAdmittedIgnoresTerminalAgents(t *testing.T) {
	repo, _ := newRepo()
	a := newAgent("a")
	require.NoError(t, repo.CreateAdmitted(a, 1))

	_, err := repo.Update(a.AgentID, func(rec *agent.Agent) error {
		_ = rec.Start("")
		return rec.Complete("done")
	})
	require.NoError(t, err)

	assert.NoError(t, repo.CreateAdmitted(newAgent("d"), 1),
		"finished agents must not count against the cap")
}

func TestConcurrentAdmissionNeverOversubscribes(t *testing.T) {
	repo, _ := newRepo()
	const limit = 3
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.CreateAdmitted(newAgent("burst"), limit)
		}()
	}
	wg.Wait()
	assert.Equal(t, limit, repo.ActiveCount())
}

func TestUpdatePublishesSnapshot(t *testing.T) {
	repo, pub := newRepo()
	a := newAgent("a")
	require.NoError(t, repo.CreateAdmitted(a, 5))

	_, err := repo.Update(a.AgentID, func(rec *agent.Agent) error {
		return rec.Start("agent started")
	})
	require.NoError(t, err)

	events := pub.all()
	require.Len(t, events, 2) // create + start
	last := events[len(events)-1]
	assert.Equal(t, event.TypeAgentUpdate, last.Type)
	assert.Equal(t, agent.StatusRunning, last.Agent.Status)

	// The published snapshot is decoupled from the stored record.
	last.Agent.Message = "tampered"
	got, err := repo.Get(a.AgentID)
	require.NoError(t, err)
	assert.Equal(t, "agent started", got.Message)
}

func TestUpdateFailedMutationPublishesNothing(t *testing.T) {
	repo, pub := newRepo()
	a := newAgent("a")
	require.NoError(t, repo.CreateAdmitted(a, 5))
	before := len(pub.all())

	_, err := repo.Update(a.AgentID, func(rec *agent.Agent) error {
		return rec.Complete("not running yet")
	})
	assert.ErrorIs(t, err, agent.ErrInvalidTransition)
	assert.Len(t, pub.all(), before)
}

func TestDeleteTerminalOnly(t *testing.T) {
	repo, _ := newRepo()
	a := newAgent("a")
	require.NoError(t, repo.CreateAdmitted(a, 5))

	assert.ErrorIs(t, repo.DeleteTerminal(a.AgentID), agent.ErrStillRunning)

	_, err := repo.Update(a.AgentID, func(rec *agent.Agent) error {
		return rec.Interrupt("stop")
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTerminal(a.AgentID))
	_, err = repo.Get(a.AgentID)
	assert.ErrorIs(t, err, agent.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTerminal(a.AgentID), agent.ErrNotFound)
}

func TestSweepTerminal(t *testing.T) {
	repo, _ := newRepo()
	live := newAgent("live")
	doneA := newAgent("done-a")
	doneB := newAgent("done-b")
	for _, a := range []*agent.Agent{live, doneA, doneB} {
		require.NoError(t, repo.CreateAdmitted(a, 10))
	}
	for _, a := range []*agent.Agent{doneA, doneB} {
		_, err := repo.Update(a.AgentID, func(rec *agent.Agent) error {
			return rec.Fail("boom")
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, repo.SweepTerminal())
	assert.Len(t, repo.List(), 1)
	assert.Equal(t, 0, repo.SweepTerminal())
}

func TestWritersToDifferentRecordsDoNotSerialize(t *testing.T) {
	repo, _ := newRepo()
	a := newAgent("a")
	b := newAgent("b")
	require.NoError(t, repo.CreateAdmitted(a, 5))
	require.NoError(t, repo.CreateAdmitted(b, 5))
	for _, rec := range []*agent.Agent{a, b} {
		_, err := repo.Update(rec.AgentID, func(r *agent.Agent) error { return r.Start("") })
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		p := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Update(a.AgentID, func(rec *agent.Agent) error {
				return rec.ApplyProgress(p, "tick")
			})
			_, _ = repo.Update(b.AgentID, func(rec *agent.Agent) error {
				return rec.ApplyProgress(p, "tick")
			})
		}()
	}
	wg.Wait()

	for _, rec := range []*agent.Agent{a, b} {
		got, err := repo.Get(rec.AgentID)
		require.NoError(t, err)
		assert.Equal(t, 50, got.Progress, "progress must be the max applied value")
	}
}
