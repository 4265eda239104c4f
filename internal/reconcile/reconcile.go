package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"voicedash/internal/events"
	"voicedash/internal/mirror"
	"voicedash/internal/normalize"
	"voicedash/internal/remote"
)

// Origin says where a mutation started. Remote-originated mutations
// (delivered by webhook, carrying the provenance marker) must never be
// propagated back out, or an attach→webhook→attach loop results.
type Origin int

const (
	OriginDashboard Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "dashboard"
}

// Result counts one reconciliation batch.
type Result struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

func (r *Result) Add(other Result) {
	r.Synced += other.Synced
	r.Created += other.Created
	r.Updated += other.Updated
	r.Skipped += other.Skipped
}

const campaignNameTTL = 5 * time.Minute

// Reconciler upserts normalized remote records into the mirror and is
// the single mutation entry point shared by the background sync
// scheduler, the webhook router, and dashboard actions.
type Reconciler struct {
	store  mirror.Store
	remote remote.Client
	emit   events.Emitter
	log    *slog.Logger
	now    func() time.Time

	// Resolved campaign names, keyed workspace|digits|agent.
	campaignNames *gocache.Cache
}

func New(store mirror.Store, rc remote.Client, emit events.Emitter, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	if emit == nil {
		emit = events.Nop{}
	}
	return &Reconciler{
		store:         store,
		remote:        rc,
		emit:          emit,
		log:           log,
		now:           time.Now,
		campaignNames: gocache.New(campaignNameTTL, 2*campaignNameTTL),
	}
}

// SetClock overrides the reconciler's clock; tests only.
func (r *Reconciler) SetClock(now func() time.Time) { r.now = now }

// Reconcile dispatches a batch of normalized records to the
// resource-specific reconciler.
func (r *Reconciler) Reconcile(ctx context.Context, workspaceID string, res remote.Resource, raw []normalize.RawRecord) (Result, error) {
	switch res {
	case remote.ResourceCalls:
		return r.ReconcileCalls(ctx, workspaceID, raw)
	case remote.ResourceNumbers:
		return r.ReconcileNumbers(ctx, workspaceID, raw)
	case remote.ResourceFiles:
		return r.ReconcileFiles(ctx, workspaceID, raw)
	case remote.ResourceAgents:
		return r.ReconcileAgents(ctx, workspaceID, raw)
	case remote.ResourceCampaigns:
		return r.ReconcileCampaigns(ctx, workspaceID, raw)
	}
	return Result{}, fmt.Errorf("reconcile: unknown resource %q", res)
}

// Delete dispatches a single-record delete to the resource-specific
// handler.
func (r *Reconciler) Delete(ctx context.Context, workspaceID string, res remote.Resource, remoteID string, origin Origin) error {
	switch res {
	case remote.ResourceCalls:
		return r.DeleteCall(ctx, workspaceID, remoteID, origin)
	case remote.ResourceNumbers:
		return r.DeleteNumber(ctx, workspaceID, remoteID, origin)
	case remote.ResourceFiles:
		return r.DeleteFile(ctx, workspaceID, remoteID, origin)
	case remote.ResourceAgents:
		return r.DeleteAgent(ctx, workspaceID, remoteID, origin)
	case remote.ResourceCampaigns:
		return r.DeleteCampaign(ctx, workspaceID, remoteID, origin)
	}
	return fmt.Errorf("reconcile: unknown resource %q", res)
}

// RecordID extracts a record's remote identifier using the same
// fallback chain the resource's reconciler applies. Callers tracking
// which ids a pull reported use this for prune bookkeeping.
func RecordID(res remote.Resource, raw normalize.RawRecord) string {
	switch res {
	case remote.ResourceCalls:
		return normalize.FirstString(raw, callIDChain...)
	case remote.ResourceNumbers:
		return normalize.FirstString(raw, numberIDChain...)
	case remote.ResourceFiles:
		return normalize.FirstString(raw, fileIDChain...)
	case remote.ResourceAgents:
		return normalize.FirstString(raw, agentIDChain...)
	case remote.ResourceCampaigns:
		return normalize.FirstString(raw, campaignIDChain...)
	}
	return ""
}

// timestamp keys the remote platform has been seen to use.
var createdAtKeys = []string{"created_at", "createdat", "start_time", "timestamp"}

func (r *Reconciler) recordCreatedAt(raw map[string]any) time.Time {
	for _, k := range createdAtKeys {
		s, ok := raw[k].(string)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
	}
	return r.now().UTC()
}
