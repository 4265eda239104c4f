package events

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const subscriberBuffer = 16

// Hub fans change events out to connected websocket clients, scoped
// per workspace. Sends are non-blocking: a subscriber that falls
// behind has events dropped rather than stalling the mutation path.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[int]chan Event // workspace_id -> sub id -> channel
	next int

	log *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{subs: map[string]map[int]chan Event{}, log: log}
}

// Subscribe registers a listener for one workspace. The returned
// cancel func must be called when the client disconnects.
func (h *Hub) Subscribe(workspaceID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	id := h.next
	ch := make(chan Event, subscriberBuffer)
	if h.subs[workspaceID] == nil {
		h.subs[workspaceID] = map[int]chan Event{}
	}
	h.subs[workspaceID][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if m := h.subs[workspaceID]; m != nil {
			if c, ok := m[id]; ok {
				delete(m, id)
				close(c)
			}
			if len(m) == 0 {
				delete(h.subs, workspaceID)
			}
		}
	}
	return ch, cancel
}

func (h *Hub) SubscriberCount(workspaceID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[workspaceID])
}

func (h *Hub) Emit(_ context.Context, e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[e.WorkspaceID] {
		select {
		case ch <- e:
		default:
			h.log.Debug("subscriber behind, event dropped", "event", e.Name, "workspace_id", e.WorkspaceID)
		}
	}
}

// ServeWS upgrades an HTTP request and streams the workspace's events
// until the client goes away or ctx is done.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, workspaceID string) error {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch, cancel := h.Subscribe(workspaceID)
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, e); err != nil {
				return err
			}
		}
	}
}
