package mirror

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_PutCallUpsertsByKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	created, err := s.PutCall(ctx, CallRecord{WorkspaceID: "w1", RemoteID: "101", Status: "completed", CreatedAt: now})
	if err != nil || !created {
		t.Fatalf("expected insert, got (%v, %v)", created, err)
	}
	created, err = s.PutCall(ctx, CallRecord{WorkspaceID: "w1", RemoteID: "101", Status: "failed", CreatedAt: now})
	if err != nil || created {
		t.Fatalf("expected update, got (%v, %v)", created, err)
	}

	rec, err := s.GetCall(ctx, "w1", "101")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rec.Status != "failed" {
		t.Fatalf("last write must win, got %q", rec.Status)
	}

	// Same remote id in another workspace is a distinct record.
	if created, _ := s.PutCall(ctx, CallRecord{WorkspaceID: "w2", RemoteID: "101", CreatedAt: now}); !created {
		t.Fatalf("expected insert for other workspace")
	}
	if _, total, _ := s.ListCalls(ctx, "w1", CallFilter{}, Page{}); total != 1 {
		t.Fatalf("expected 1 call in w1, got %d", total)
	}
}

func TestMemoryStore_ListCallsPaginatesNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 5; i++ {
		_, _ = s.PutCall(ctx, CallRecord{
			WorkspaceID: "w", RemoteID: string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	page, total, err := s.ListCalls(ctx, "w", CallFilter{}, Page{Pageno: 1, Pagesize: 2})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("expected total 5 page 2, got %d/%d", total, len(page))
	}
	if page[0].RemoteID != "e" {
		t.Fatalf("expected newest first, got %q", page[0].RemoteID)
	}

	last, _, _ := s.ListCalls(ctx, "w", CallFilter{}, Page{Pageno: 3, Pagesize: 2})
	if len(last) != 1 {
		t.Fatalf("expected short final page, got %d", len(last))
	}
	empty, _, _ := s.ListCalls(ctx, "w", CallFilter{}, Page{Pageno: 9, Pagesize: 2})
	if len(empty) != 0 {
		t.Fatalf("expected empty page past the end")
	}
}

func TestMemoryStore_CountFilesForAgent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.PutFile(ctx, File{WorkspaceID: "w", RemoteID: "f1", AttachedAgentRemoteIDs: []string{"a1", "a2"}})
	_, _ = s.PutFile(ctx, File{WorkspaceID: "w", RemoteID: "f2", AttachedAgentRemoteIDs: []string{"a1"}})
	_, _ = s.PutFile(ctx, File{WorkspaceID: "other", RemoteID: "f3", AttachedAgentRemoteIDs: []string{"a1"}})

	n, err := s.CountFilesForAgent(ctx, "w", "a1")
	if err != nil || n != 2 {
		t.Fatalf("expected 2, got (%d, %v)", n, err)
	}
	n, _ = s.CountFilesForAgent(ctx, "w", "a2")
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
}

func TestMemoryStore_CampaignLookups(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	_, _ = s.PutCampaign(ctx, Campaign{
		WorkspaceID: "w", RemoteID: "c1", Name: "Spring Outreach",
		ToDigits: "5550104477", AgentRemoteID: "a1",
		CallRequestIDs: []string{"req-9"}, CreatedAt: base,
	})
	_, _ = s.PutCampaign(ctx, Campaign{
		WorkspaceID: "w", RemoteID: "c2", Name: "Summer Outreach",
		ToDigits: "5550104477", AgentRemoteID: "a2", CreatedAt: base.Add(time.Hour),
	})

	c, err := s.GetCampaignByCallRequestID(ctx, "w", "req-9")
	if err != nil || c.RemoteID != "c1" {
		t.Fatalf("expected c1 by call request id, got (%+v, %v)", c, err)
	}

	c, err = s.LatestCampaignByMatch(ctx, "w", "5550104477", "a1")
	if err != nil || c.RemoteID != "c1" {
		t.Fatalf("expected agent-constrained match c1, got (%+v, %v)", c, err)
	}

	c, err = s.LatestCampaignByMatch(ctx, "w", "5550104477", "")
	if err != nil || c.RemoteID != "c2" {
		t.Fatalf("expected most recent match c2, got (%+v, %v)", c, err)
	}

	if _, err := s.LatestCampaignByMatch(ctx, "w", "0000000000", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListWorkspaceIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.PutAgent(ctx, Agent{WorkspaceID: "w2", RemoteID: "a"})
	_, _ = s.PutCall(ctx, CallRecord{WorkspaceID: "w1", RemoteID: "c"})
	_, _ = s.PutFile(ctx, File{WorkspaceID: "w1", RemoteID: "f"})

	ids, err := s.ListWorkspaceIDs(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(ids) != 2 || ids[0] != "w1" || ids[1] != "w2" {
		t.Fatalf("unexpected workspace ids: %v", ids)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(Page{Pageno: 2, Pagesize: 10}, 41)
	if p.Pages != 5 || p.Total != 41 || p.Pageno != 2 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
	p = NewPagination(Page{}, 0)
	if p.Pages != 0 || p.Pageno != 1 || p.Pagesize != 20 {
		t.Fatalf("unexpected zero pagination: %+v", p)
	}
}
