package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"voicedash/internal/mirror"
	"voicedash/internal/normalize"
	"voicedash/internal/reconcile"
	"voicedash/internal/remote"
	"voicedash/pkg/utils"
)

// Options tune the pull loop. Zero values fall back to the defaults.
type Options struct {
	// Cooldown suppresses repeat pulls of a pair that synced recently.
	Cooldown time.Duration
	// Pagesize is the page size requested from the platform.
	Pagesize int
	// PageCeiling aborts a runaway pull; a pull that hits it is
	// incomplete and skips pruning.
	PageCeiling int
	// Watchdog reclaims a pair whose in-flight run wedged.
	Watchdog time.Duration
	// CronSpec drives the periodic all-workspace pull.
	CronSpec string
}

const (
	defaultCooldown    = time.Minute
	defaultPagesize    = 50
	defaultPageCeiling = 200
	defaultWatchdog    = 5 * time.Minute
	defaultCronSpec    = "@every 10m"
)

func (o Options) withDefaults() Options {
	if o.Cooldown <= 0 {
		o.Cooldown = defaultCooldown
	}
	if o.Pagesize <= 0 {
		o.Pagesize = defaultPagesize
	}
	if o.PageCeiling <= 0 {
		o.PageCeiling = defaultPageCeiling
	}
	if o.Watchdog <= 0 {
		o.Watchdog = defaultWatchdog
	}
	if o.CronSpec == "" {
		o.CronSpec = defaultCronSpec
	}
	return o
}

// Scheduler owns the pull side of the mirror: it pages resource
// tables out of the remote platform, feeds them to the reconciler,
// and prunes full-table resources the platform stopped reporting.
type Scheduler struct {
	rec     *reconcile.Reconciler
	client  remote.Client
	store   mirror.Store
	tracker Tracker
	opts    Options
	log     *slog.Logger
	cron    *cron.Cron
	guard   *redis.Client
}

func NewScheduler(rec *reconcile.Reconciler, client remote.Client, store mirror.Store, tracker Tracker, opts Options, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if tracker == nil {
		tracker = NewMemoryTracker()
	}
	return &Scheduler{
		rec:     rec,
		client:  client,
		store:   store,
		tracker: tracker,
		opts:    opts.withDefaults(),
		log:     log,
	}
}

// UseDistributedGuard makes pulls of a pair mutually exclusive across
// replicas. The in-memory tracker only coalesces callers within one
// process; the guard key expires with the watchdog so a crashed
// replica cannot hold a pair forever.
func (s *Scheduler) UseDistributedGuard(rdb *redis.Client) {
	s.guard = rdb
}

func guardKey(workspaceID string, res remote.Resource) string {
	return "voicedash:sync:guard:" + workspaceID + ":" + string(res)
}

// Sync pulls one resource table for one workspace. Concurrent callers
// for the same pair coalesce onto the in-flight run; a pair that
// finished cleanly within the cooldown returns the prior outcome
// without touching the platform.
func (s *Scheduler) Sync(ctx context.Context, workspaceID string, res remote.Resource) (Run, error) {
	if !res.Valid() {
		return Run{}, fmt.Errorf("syncer: unknown resource %q", res)
	}

	claim, wait, prior := s.tracker.Begin(workspaceID, res, s.opts.Cooldown, s.opts.Watchdog)
	switch {
	case prior != nil:
		return *prior, nil
	case wait != nil:
		select {
		case <-wait:
		case <-ctx.Done():
			return Run{}, ctx.Err()
		}
		if run, ok := s.tracker.Last(workspaceID, res); ok {
			return run, nil
		}
		// The in-flight run was reclaimed without finishing.
		return Run{}, fmt.Errorf("syncer: coalesced run for %s/%s was abandoned", workspaceID, res)
	}

	if s.guard != nil {
		key := guardKey(workspaceID, res)
		acquired, gerr := utils.AcquireConcurrencyCap(ctx, s.guard, key, 1, s.opts.Watchdog)
		switch {
		case gerr != nil:
			// A broken guard must not stop pulls.
			s.log.Warn("sync guard unavailable", "workspace_id", workspaceID, "resource", res, "err", gerr)
		case !acquired:
			s.log.Info("sync held by another replica", "workspace_id", workspaceID, "resource", res)
			return claim.Finish(reconcile.Result{}, nil), nil
		default:
			defer func() {
				if rerr := utils.ReleaseConcurrencyCap(context.WithoutCancel(ctx), s.guard, key); rerr != nil {
					s.log.Warn("sync guard release failed", "workspace_id", workspaceID, "resource", res, "err", rerr)
				}
			}()
		}
	}

	result, err := s.pull(ctx, workspaceID, res)
	run := claim.Finish(result, err)
	if err != nil {
		s.log.Error("sync run failed", "workspace_id", workspaceID, "resource", res, "err", err)
		return run, err
	}
	s.log.Info("sync run finished",
		"workspace_id", workspaceID, "resource", res,
		"synced", result.Synced, "created", result.Created,
		"updated", result.Updated, "skipped", result.Skipped)
	return run, nil
}

// SyncAsync kicks off a pull without blocking the caller. Dashboard
// list reads use it so stale data renders now and refreshes shortly.
func (s *Scheduler) SyncAsync(workspaceID string, res remote.Resource) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.Sync(ctx, workspaceID, res); err != nil {
			s.log.Warn("background sync failed", "workspace_id", workspaceID, "resource", res, "err", err)
		}
	}()
}

// SyncAll pulls every resource table for a workspace, sequentially.
func (s *Scheduler) SyncAll(ctx context.Context, workspaceID string) error {
	var firstErr error
	for _, res := range []remote.Resource{
		remote.ResourceAgents,
		remote.ResourceFiles,
		remote.ResourceNumbers,
		remote.ResourceCampaigns,
		remote.ResourceCalls,
	} {
		if _, err := s.Sync(ctx, workspaceID, res); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// pull pages through one resource table. Pageno starts at 1; the loop
// stops on a short or empty page. Files and agents are full-table
// resources, so a complete pull is followed by pruning records the
// platform no longer reports. Calls are append-heavy and never pruned.
func (s *Scheduler) pull(ctx context.Context, workspaceID string, res remote.Resource) (reconcile.Result, error) {
	var total reconcile.Result
	present := map[string]struct{}{}
	complete := false

	for pageno := 1; ; pageno++ {
		if pageno > s.opts.PageCeiling {
			s.log.Warn("pull hit page ceiling, pruning skipped",
				"workspace_id", workspaceID, "resource", res, "ceiling", s.opts.PageCeiling)
			break
		}
		payload, err := s.client.ListPage(ctx, workspaceID, res, pageno, s.opts.Pagesize)
		if err != nil {
			return total, fmt.Errorf("list %s page %d: %w", res, pageno, err)
		}
		env, err := normalize.Normalize(payload)
		if err != nil {
			return total, fmt.Errorf("normalize %s page %d: %w", res, pageno, err)
		}
		for _, rec := range env.Records {
			if id := reconcile.RecordID(res, rec); id != "" {
				present[id] = struct{}{}
			}
		}
		pageResult, err := s.rec.Reconcile(ctx, workspaceID, res, env.Records)
		if err != nil {
			return total, err
		}
		total.Add(pageResult)
		if len(env.Records) < s.opts.Pagesize {
			complete = true
			break
		}
	}

	if complete {
		s.pruneAbsent(ctx, workspaceID, res, present)
	}
	return total, nil
}

func (s *Scheduler) pruneAbsent(ctx context.Context, workspaceID string, res remote.Resource, present map[string]struct{}) {
	var (
		pruned int
		err    error
	)
	switch res {
	case remote.ResourceFiles:
		pruned, err = s.rec.PruneAbsentFiles(ctx, workspaceID, present)
	case remote.ResourceAgents:
		pruned, err = s.rec.PruneAbsentAgents(ctx, workspaceID, present)
	default:
		return
	}
	if err != nil {
		s.log.Error("prune failed", "workspace_id", workspaceID, "resource", res, "err", err)
		return
	}
	if pruned > 0 {
		s.log.Info("pruned absent records", "workspace_id", workspaceID, "resource", res, "pruned", pruned)
	}
}

// StartCron schedules periodic pulls of every workspace the mirror
// knows about. Stop with StopCron.
func (s *Scheduler) StartCron() error {
	c := cron.New()
	_, err := c.AddFunc(s.opts.CronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		ids, err := s.store.ListWorkspaceIDs(ctx)
		if err != nil {
			s.log.Error("workspace listing for periodic pull failed", "err", err)
			return
		}
		for _, wid := range ids {
			if err := s.SyncAll(ctx, wid); err != nil {
				s.log.Warn("periodic pull incomplete", "workspace_id", wid, "err", err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("syncer: bad cron spec %q: %w", s.opts.CronSpec, err)
	}
	c.Start()
	s.cron = c
	return nil
}

func (s *Scheduler) StopCron() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
