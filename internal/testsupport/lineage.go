package testsupport

import (
	"context"
	"sort"
	"sync"

	"darkroom/internal/event"
	"darkroom/internal/lineage"
)

// MemoryLineage is an in-memory lineage.Store for tests. It mirrors the
// graph store's observable behavior: idempotent workflow creation with a
// settable-once email, monotonically accumulating events, and best-effort
// causal edges.
type MemoryLineage struct {
	mu        sync.Mutex
	emails    map[string]string
	workflows map[string]bool
	events    map[string][]lineage.Event
	edges     map[string]string // event id -> predecessor event id

	FailWith error // when set, every operation fails with this error
}

// NewMemoryLineage builds an empty in-memory store.
func NewMemoryLineage() *MemoryLineage {
	return &MemoryLineage{
		emails:    make(map[string]string),
		workflows: make(map[string]bool),
		events:    make(map[string][]lineage.Event),
		edges:     make(map[string]string),
	}
}

func (m *MemoryLineage) CreateWorkflow(_ context.Context, workflowID, email string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.workflows[workflowID] {
		m.workflows[workflowID] = true
		if email != "" {
			m.emails[workflowID] = email
		}
	}
	return nil
}

func (m *MemoryLineage) RecordEvent(_ context.Context, env event.Envelope, causedBy string) (bool, error) {
	if m.FailWith != nil {
		return false, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workflows[env.WorkflowID] = true
	recorded := lineage.Event{
		ID:        env.EventID,
		Type:      env.EventType,
		Timestamp: env.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	edgeCreated := false
	if causedBy != "" {
		for i := len(m.events[env.WorkflowID]) - 1; i >= 0; i-- {
			prev := m.events[env.WorkflowID][i]
			if prev.Type == causedBy {
				m.edges[env.EventID] = prev.ID
				edgeCreated = true
				break
			}
		}
	}

	m.events[env.WorkflowID] = append(m.events[env.WorkflowID], recorded)
	return edgeCreated, nil
}

func (m *MemoryLineage) WorkflowEmail(_ context.Context, workflowID string) (string, bool, error) {
	if m.FailWith != nil {
		return "", false, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	email, ok := m.emails[workflowID]
	return email, ok && email != "", nil
}

func (m *MemoryLineage) WorkflowEvents(_ context.Context, workflowID string) ([]lineage.Event, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	events := append([]lineage.Event{}, m.events[workflowID]...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })
	return events, nil
}

// Events returns every event recorded for the workflow, in record order.
func (m *MemoryLineage) Events(workflowID string) []lineage.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]lineage.Event{}, m.events[workflowID]...)
}

// Email returns the stored notification address.
func (m *MemoryLineage) Email(workflowID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emails[workflowID]
}

// Predecessor returns the causal predecessor recorded for an event id.
func (m *MemoryLineage) Predecessor(eventID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.edges[eventID]
	return id, ok
}
