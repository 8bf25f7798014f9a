package agent

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"github.com/google/uuid"
)

// Repository defines the interface for the agent registry. Implementations
// must serialize mutations of the same record, keep mutations of different
// records independent, and publish an agent_update event for every mutation
// that changes externally visible state.
type Repository interface {
	// CreateAdmitted inserts a new record iff the number of pending/running
	// agents is below maxActive. Admission and insertion are a single atomic
	// step. Returns ErrCapacityExceeded otherwise.
	CreateAdmitted(a *Agent, maxActive int) error

	// Update applies mutate to the record under its entry lock and publishes
	// the resulting snapshot. If mutate returns an error nothing is published.
	Update(id uuid.UUID, mutate func(*Agent) error) (*Agent, error)

	// Get returns a snapshot of a single record.
	Get(id uuid.UUID) (*Agent, error)

	// List returns snapshots of all records.
	List() []*Agent

	// ActiveCount returns the number of pending/running agents.
	ActiveCount() int

	// DeleteTerminal removes a record iff it is in a terminal state.
	// Returns ErrStillRunning for live records.
	DeleteTerminal(id uuid.UUID) error

	// SweepTerminal removes every terminal record and returns the count.
	SweepTerminal() int
}
