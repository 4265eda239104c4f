package reporting

import (
	"context"
	"testing"
	"time"

	"voicedash/internal/mirror"
)

func seedCalls(t *testing.T, store *mirror.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := "https://cdn.example.com/rec1.mp3"

	calls := []mirror.CallRecord{
		{RemoteID: "c1", WorkspaceID: "w", Status: "completed", DurationSeconds: 60, Cost: 0.5, RecordingURL: &rec, CreatedAt: base},
		{RemoteID: "c2", WorkspaceID: "w", Status: "failed", DurationSeconds: 0, CreatedAt: base.Add(time.Minute)},
		{RemoteID: "c3", WorkspaceID: "w", Status: "completed", DurationSeconds: 120, Cost: 1.0, CampaignName: "Spring", CreatedAt: base.Add(2 * time.Minute)},
		{RemoteID: "c4", WorkspaceID: "other", Status: "completed", DurationSeconds: 600, CreatedAt: base},
	}
	for _, c := range calls {
		if _, err := store.PutCall(ctx, c); err != nil {
			t.Fatalf("seed call %s: %v", c.RemoteID, err)
		}
	}
}

func TestCallsSummary(t *testing.T) {
	store := mirror.NewMemoryStore()
	seedCalls(t, store)
	svc := NewService(store)

	got, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{
		WorkspaceID: "w",
		Range: TimeRange{
			From: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalCalls != 3 {
		t.Fatalf("total = %d, want 3 (workspace isolation)", got.TotalCalls)
	}
	if got.CompletedCalls != 2 || got.FailedCalls != 1 {
		t.Fatalf("got %+v, want 2 completed 1 failed", got)
	}
	if got.TotalDurationSeconds != 180 || got.AverageDurationSeconds != 60 {
		t.Fatalf("durations = %d/%d, want 180/60", got.TotalDurationSeconds, got.AverageDurationSeconds)
	}
	if got.TotalCost != 1.5 {
		t.Fatalf("cost = %v, want 1.5", got.TotalCost)
	}
	if got.RecordedCalls != 1 {
		t.Fatalf("recorded = %d, want 1", got.RecordedCalls)
	}
}

func TestCallsSummaryCampaignFilter(t *testing.T) {
	store := mirror.NewMemoryStore()
	seedCalls(t, store)
	svc := NewService(store)

	got, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{
		WorkspaceID:  "w",
		CampaignName: "Spring",
		Range: TimeRange{
			From: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalCalls != 1 || got.TotalDurationSeconds != 120 {
		t.Fatalf("got %+v, want only the Spring call", got)
	}
}

func TestCallsSummaryRejectsInvalidRange(t *testing.T) {
	svc := NewService(mirror.NewMemoryStore())
	_, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{WorkspaceID: "w"})
	if err != ErrInvalidRequest {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestCampaignProgress(t *testing.T) {
	store := mirror.NewMemoryStore()
	ctx := context.Background()
	if _, err := store.PutCampaign(ctx, mirror.Campaign{
		RemoteID: "cmp1", WorkspaceID: "w", Name: "Spring", TotalCalls: 10, CompletedCalls: 4,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewService(store)

	got, err := svc.CampaignProgress(ctx, CampaignProgressRequest{WorkspaceID: "w"})
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(got) != 1 || got[0].CompletionRate != 0.4 {
		t.Fatalf("got %+v, want one campaign at 0.4", got)
	}
}

func TestSyncHealth(t *testing.T) {
	store := mirror.NewMemoryStore()
	ctx := context.Background()
	if _, err := store.PutCall(ctx, mirror.CallRecord{RemoteID: "c1", WorkspaceID: "w", SyncStatus: mirror.SyncStatusSynced}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.PutNumber(ctx, mirror.PhoneNumber{RemoteID: "n1", WorkspaceID: "w", SyncStatus: mirror.SyncStatusError}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.PutFile(ctx, mirror.File{RemoteID: "f1", WorkspaceID: "w", SyncStatus: mirror.SyncStatusPending}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewService(store)

	got, err := svc.SyncHealth(ctx, SyncHealthRequest{WorkspaceID: "w"})
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if got.TotalRecords != 3 || got.PendingRecords != 1 || got.ErrorRecords != 1 {
		t.Fatalf("got %+v, want 3 total 1 pending 1 error", got)
	}
}
