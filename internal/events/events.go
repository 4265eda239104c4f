package events

import (
	"context"
	"sync"
	"time"
)

// Action is the mutation kind carried by a change event.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event is one entity-changed notification fanned out to dashboard
// clients after a committed local mutation. Delivery is best-effort:
// a missing or slow subscriber never blocks or errors the mutation path.
type Event struct {
	// Name is "<resource>_<action>", e.g. "call_updated".
	Name        string    `json:"event"`
	Resource    string    `json:"resource"`
	Action      Action    `json:"action"`
	WorkspaceID string    `json:"workspace_id"`
	RemoteID    string    `json:"remote_id"`
	Data        any       `json:"data,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// New builds an event with its conventional name.
func New(resource string, action Action, workspaceID, remoteID string, data any) Event {
	return Event{
		Name:        resource + "_" + string(action),
		Resource:    resource,
		Action:      action,
		WorkspaceID: workspaceID,
		RemoteID:    remoteID,
		Data:        data,
		OccurredAt:  time.Now().UTC(),
	}
}

// Emitter publishes change events. Implementations must be
// fire-and-forget; Emit never returns an error.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Multi fans one event out to several emitters.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, e Event) {
	for _, em := range m {
		em.Emit(ctx, e)
	}
}

// Nop discards all events.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// Recorder captures emitted events for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
