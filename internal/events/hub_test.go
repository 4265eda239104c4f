package events

import (
	"context"
	"testing"
)

func TestHub_FanOutIsWorkspaceScoped(t *testing.T) {
	h := NewHub(nil)
	ch1, cancel1 := h.Subscribe("w1")
	defer cancel1()
	ch2, cancel2 := h.Subscribe("w2")
	defer cancel2()

	h.Emit(context.Background(), New("call", ActionCreated, "w1", "101", nil))

	select {
	case e := <-ch1:
		if e.Name != "call_created" || e.RemoteID != "101" {
			t.Fatalf("unexpected event: %+v", e)
		}
	default:
		t.Fatalf("w1 subscriber should have received the event")
	}
	select {
	case e := <-ch2:
		t.Fatalf("w2 must not see w1 events, got %+v", e)
	default:
	}
}

func TestHub_SlowSubscriberNeverBlocksEmit(t *testing.T) {
	h := NewHub(nil)
	_, cancel := h.Subscribe("w")
	defer cancel()

	// Fill past the buffer; Emit must return without blocking.
	for i := 0; i < subscriberBuffer*2; i++ {
		h.Emit(context.Background(), New("call", ActionUpdated, "w", "1", nil))
	}
}

func TestHub_CancelRemovesSubscriber(t *testing.T) {
	h := NewHub(nil)
	_, cancel := h.Subscribe("w")
	if h.SubscriberCount("w") != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	cancel()
	cancel() // double cancel is harmless
	if h.SubscriberCount("w") != 0 {
		t.Fatalf("expected 0 subscribers after cancel")
	}
	// Emitting with no subscribers is a no-op.
	h.Emit(context.Background(), New("agent", ActionDeleted, "w", "9", nil))
}

func TestMulti_EmitsToAll(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi{a, b}
	m.Emit(context.Background(), New("file", ActionCreated, "w", "f1", nil))
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("expected both emitters to receive the event")
	}
	if len(a.Named("file_created")) != 1 {
		t.Fatalf("expected named lookup hit")
	}
}
