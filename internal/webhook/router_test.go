package webhook

import (
	"context"
	"testing"

	"voicedash/internal/events"
	"voicedash/internal/mirror"
	"voicedash/internal/normalize"
	"voicedash/internal/reconcile"
	"voicedash/internal/remote"
)

const wid = "ws_1"

func newTestRouter() (*Router, *mirror.MemoryStore, *remote.StubClient) {
	store := mirror.NewMemoryStore()
	client := remote.NewStubClient()
	rec := reconcile.New(store, client, events.Nop{}, nil)
	return NewRouter(rec, nil), store, client
}

func TestRouteRemoteAttachStaysLocal(t *testing.T) {
	router, store, client := newTestRouter()
	ctx := context.Background()

	if _, err := store.PutNumber(ctx, mirror.PhoneNumber{RemoteID: "n1", WorkspaceID: wid}); err != nil {
		t.Fatalf("seed number: %v", err)
	}

	c, err := router.Route(ctx, wid, normalize.RawRecord{
		"phone_number_id": "n1", "agent_id": "a1",
	}, reconcile.OriginRemote)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if c.Resource != KindNumber || c.Mutation != MutationAttach {
		t.Fatalf("classified %s/%s, want number/attach", c.Resource, c.Mutation)
	}
	if calls := client.OutboundCalls(); len(calls) != 0 {
		t.Fatalf("outbound = %v, webhook-originated attach must not echo", calls)
	}
	got, err := store.GetNumber(ctx, wid, "n1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AttachedAgentRemoteID != "a1" {
		t.Fatalf("attachment = %q, want a1", got.AttachedAgentRemoteID)
	}
}

func TestRouteUpsertMirrorsRecord(t *testing.T) {
	router, store, _ := newTestRouter()
	ctx := context.Background()

	if _, err := router.Route(ctx, wid, normalize.RawRecord{
		"call_id": "c1", "status": "completed", "call_duration": "2:05",
	}, reconcile.OriginRemote); err != nil {
		t.Fatalf("route: %v", err)
	}
	got, err := store.GetCall(ctx, wid, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DurationSeconds != 125 || got.Status != "completed" {
		t.Fatalf("got %+v, want duration 125 completed", got)
	}
}

func TestRouteBulkFileUpsert(t *testing.T) {
	router, store, _ := newTestRouter()
	ctx := context.Background()

	if _, err := router.Route(ctx, wid, normalize.RawRecord{
		"files": []any{
			map[string]any{"id": "f1", "name": "faq.pdf"},
			map[string]any{"id": "f2", "name": "pricing.pdf"},
		},
	}, reconcile.OriginRemote); err != nil {
		t.Fatalf("route: %v", err)
	}
	for _, id := range []string{"f1", "f2"} {
		got, err := store.GetFile(ctx, wid, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.Name == "" {
			t.Fatalf("file %s mirrored without its body", id)
		}
	}
}

func TestRouteDeleteNotice(t *testing.T) {
	router, store, client := newTestRouter()
	ctx := context.Background()

	if _, err := store.PutFile(ctx, mirror.File{RemoteID: "f1", WorkspaceID: wid}); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if _, err := router.Route(ctx, wid, normalize.RawRecord{"file_id": "f1"}, reconcile.OriginRemote); err != nil {
		t.Fatalf("route: %v", err)
	}
	if _, err := store.GetFile(ctx, wid, "f1"); err == nil {
		t.Fatalf("file should be deleted")
	}
	if calls := client.OutboundCalls(); len(calls) != 0 {
		t.Fatalf("outbound = %v, remote-originated delete must not echo", calls)
	}
}

func TestRouteUnroutablePayload(t *testing.T) {
	router, _, _ := newTestRouter()
	if _, err := router.Route(context.Background(), wid, normalize.RawRecord{"foo": "bar"}, reconcile.OriginRemote); err == nil {
		t.Fatalf("expected unroutable error")
	}
}
