package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"voicedash/internal/remote"
	"voicedash/pkg/utils"
)

func newGuardedScheduler(t *testing.T, opts Options) (*Scheduler, *remote.StubClient, *redis.Client) {
	t.Helper()
	s, _, client := newTestScheduler(opts)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s.UseDistributedGuard(rdb)
	return s, client, rdb
}

func TestGuardedSyncPullsAndReleases(t *testing.T) {
	s, client, rdb := newGuardedScheduler(t, Options{})
	client.Pages[remote.ResourceAgents] = []any{agentPage("a1")}

	run, err := s.Sync(context.Background(), wid, remote.ResourceAgents)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if run.Result.Created != 1 {
		t.Fatalf("created = %d, want 1", run.Result.Created)
	}

	n, err := rdb.Exists(context.Background(), guardKey(wid, remote.ResourceAgents)).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected guard key released after the run")
	}
}

func TestGuardHeldElsewhereSkipsPull(t *testing.T) {
	s, client, rdb := newGuardedScheduler(t, Options{})
	client.Pages[remote.ResourceAgents] = []any{agentPage("a1")}

	// Another replica holds the pair.
	key := guardKey(wid, remote.ResourceAgents)
	ok, err := utils.AcquireConcurrencyCap(context.Background(), rdb, key, 1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("pre-acquire: ok=%v err=%v", ok, err)
	}

	run, err := s.Sync(context.Background(), wid, remote.ResourceAgents)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := client.Fetches(remote.ResourceAgents); got != 0 {
		t.Fatalf("fetches = %d, want 0 while another replica holds the pair", got)
	}
	if run.Result.Created != 0 {
		t.Fatalf("created = %d, want 0", run.Result.Created)
	}
}

func TestGuardOutageDoesNotBlockPull(t *testing.T) {
	s, client, rdb := newGuardedScheduler(t, Options{})
	client.Pages[remote.ResourceAgents] = []any{agentPage("a1")}
	_ = rdb.Close()

	run, err := s.Sync(context.Background(), wid, remote.ResourceAgents)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if run.Result.Created != 1 {
		t.Fatalf("created = %d, want 1 despite guard outage", run.Result.Created)
	}
}
