package syncer

import (
	"sync"
	"time"

	"voicedash/internal/reconcile"
	"voicedash/internal/remote"
)

// Run is the durable outcome of one sync attempt for a
// workspace/resource pair.
type Run struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Result     reconcile.Result `json:"result"`
	Err        string           `json:"err,omitempty"`
}

// Tracker serializes sync attempts per workspace/resource pair. Begin
// either claims the pair, coalesces onto an in-flight run, or reports
// a recent-enough prior run. The implementation is injectable so a
// multi-replica deployment can back it with shared storage.
type Tracker interface {
	// Begin attempts to claim the pair. Exactly one of the returns is
	// meaningful: claim != nil means the caller owns the run and must
	// Finish it; wait != nil means another run is in flight and closes
	// the channel when done; prior != nil means a run finished within
	// the cooldown and its outcome stands.
	Begin(workspaceID string, res remote.Resource, cooldown, watchdog time.Duration) (claim *Claim, wait <-chan struct{}, prior *Run)

	// Last reports the most recent finished run, if any.
	Last(workspaceID string, res remote.Resource) (Run, bool)
}

// Claim is an owned in-flight run. Finish must be called exactly once.
type Claim struct {
	run    Run
	now    func() time.Time
	finish func(Run)
}

func (c *Claim) Finish(result reconcile.Result, err error) Run {
	c.run.FinishedAt = c.now().UTC()
	c.run.Result = result
	if err != nil {
		c.run.Err = err.Error()
	}
	c.finish(c.run)
	return c.run
}

type inflight struct {
	startedAt time.Time
	done      chan struct{}
}

// MemoryTracker is the single-process Tracker.
type MemoryTracker struct {
	mu       sync.Mutex
	inflight map[string]*inflight
	last     map[string]Run
	now      func() time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		inflight: map[string]*inflight{},
		last:     map[string]Run{},
		now:      time.Now,
	}
}

// SetClock overrides the tracker's clock; tests only.
func (t *MemoryTracker) SetClock(now func() time.Time) { t.now = now }

func key(workspaceID string, res remote.Resource) string {
	return workspaceID + "|" + string(res)
}

func (t *MemoryTracker) Begin(workspaceID string, res remote.Resource, cooldown, watchdog time.Duration) (*Claim, <-chan struct{}, *Run) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(workspaceID, res)
	now := t.now().UTC()

	if f, ok := t.inflight[k]; ok {
		// A crashed or wedged run must not block the pair forever; the
		// watchdog reclaims it.
		if watchdog > 0 && now.Sub(f.startedAt) > watchdog {
			close(f.done)
			delete(t.inflight, k)
		} else {
			return nil, f.done, nil
		}
	}

	if prior, ok := t.last[k]; ok && cooldown > 0 && prior.Err == "" && now.Sub(prior.FinishedAt) < cooldown {
		p := prior
		return nil, nil, &p
	}

	t.inflight[k] = &inflight{startedAt: now, done: make(chan struct{})}
	claim := &Claim{
		run:    Run{StartedAt: now},
		now:    t.now,
		finish: func(run Run) { t.finishRun(k, run) },
	}
	return claim, nil, nil
}

func (t *MemoryTracker) finishRun(k string, run Run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.inflight[k]; ok {
		close(f.done)
		delete(t.inflight, k)
	}
	t.last[k] = run
}

func (t *MemoryTracker) Last(workspaceID string, res remote.Resource) (Run, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run, ok := t.last[key(workspaceID, res)]
	return run, ok
}

var _ Tracker = (*MemoryTracker)(nil)
