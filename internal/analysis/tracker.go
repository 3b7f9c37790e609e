package analysis

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle of one kind's analysis.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// State is what a consumer may observe for one kind. Content is set only
// when completed and Error only on error.
type State struct {
	Status    Status    `json:"status"`
	Content   string    `json:"content,omitempty"`
	Error     string    `json:"error,omitempty"`
	RunID     string    `json:"runId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ChangeFunc observes state transitions. It runs outside the tracker lock.
type ChangeFunc func(kind Kind, state State)

// Tracker holds one State per kind. The latest Begin for a kind owns it:
// settling with an older run id is ignored.
type Tracker struct {
	mu     sync.RWMutex
	states map[Kind]State
	hooks  []ChangeFunc
	now    func() time.Time
}

// NewTracker creates an empty tracker; every kind starts pending.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[Kind]State),
		now:    time.Now,
	}
}

// OnChange registers an observer.
func (t *Tracker) OnChange(fn ChangeFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

// Begin marks the kind running with empty content and returns the new run id.
// Other kinds are untouched.
func (t *Tracker) Begin(kind Kind) string {
	runID := uuid.New().String()
	t.set(kind, State{Status: StatusRunning, RunID: runID}, "")
	return runID
}

// Complete publishes the full content of a run. It reports false when the
// run was superseded.
func (t *Tracker) Complete(kind Kind, runID, content string) bool {
	return t.set(kind, State{Status: StatusCompleted, Content: content, RunID: runID}, runID)
}

// Fail records the error of a run. It reports false when the run was superseded.
func (t *Tracker) Fail(kind Kind, runID string, err error) bool {
	msg := "analysis failed"
	if err != nil {
		msg = err.Error()
	}
	return t.set(kind, State{Status: StatusError, Error: msg, RunID: runID}, runID)
}

func (t *Tracker) set(kind Kind, state State, expectRunID string) bool {
	t.mu.Lock()
	if expectRunID != "" && t.states[kind].RunID != expectRunID {
		t.mu.Unlock()
		return false
	}
	state.UpdatedAt = t.now()
	t.states[kind] = state
	hooks := make([]ChangeFunc, len(t.hooks))
	copy(hooks, t.hooks)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn(kind, state)
	}
	return true
}

// Get returns the state of a kind.
func (t *Tracker) Get(kind Kind) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.states[kind]; ok {
		return s
	}
	return State{Status: StatusPending}
}

// Snapshot returns the state of every kind.
func (t *Tracker) Snapshot() map[Kind]State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[Kind]State, len(profiles))
	for _, k := range Kinds() {
		if s, ok := t.states[k]; ok {
			out[k] = s
		} else {
			out[k] = State{Status: StatusPending}
		}
	}
	return out
}
