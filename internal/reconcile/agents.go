package reconcile

import (
	"context"
	"errors"
	"reflect"
	"time"

	"voicedash/internal/events"
	"voicedash/internal/mirror"
	"voicedash/internal/normalize"
	"voicedash/internal/remote"
)

// pruneScanSize bounds the one-shot mirror listing a prune pass works
// from. Workspaces are far smaller than this in practice.
const pruneScanSize = 10000

var (
	agentIDChain = []normalize.StringExtractor{
		normalize.IDKey("agent_id"), normalize.IDKey("id"), normalize.IDKey("bot_id"),
	}
	agentNameChain = []normalize.StringExtractor{
		normalize.Key("agent_name"), normalize.Key("name"), normalize.Key("bot_name"),
	}
	agentModelChain = []normalize.StringExtractor{
		normalize.Key("llm_model"), normalize.Key("model"), normalize.Path("config", "model"),
	}
	agentVoiceChain = []normalize.StringExtractor{
		normalize.Key("voice_id"), normalize.Key("voice"), normalize.Path("config", "voice_id"),
	}
	agentUseCaseChain = []normalize.StringExtractor{
		normalize.Key("use_case"), normalize.Key("usecase"), normalize.Key("purpose"),
	}
)

// ReconcileAgents upserts a page of raw agent records.
func (r *Reconciler) ReconcileAgents(ctx context.Context, workspaceID string, raw []normalize.RawRecord) (Result, error) {
	var res Result
	for _, rec := range raw {
		remoteID := normalize.FirstString(rec, agentIDChain...)
		if remoteID == "" {
			r.log.Warn("agent record without usable identifier skipped", "workspace_id", workspaceID)
			res.Skipped++
			continue
		}
		if err := r.reconcileAgent(ctx, workspaceID, remoteID, rec, &res); err != nil {
			r.log.Error("agent reconcile failed", "workspace_id", workspaceID, "remote_id", remoteID, "err", err)
			res.Skipped++
		}
	}
	return res, nil
}

func (r *Reconciler) reconcileAgent(ctx context.Context, workspaceID, remoteID string, raw normalize.RawRecord, res *Result) error {
	now := r.now().UTC()

	incoming := mirror.Agent{
		RemoteID:    remoteID,
		WorkspaceID: workspaceID,
		Name:        normalize.FirstString(raw, agentNameChain...),
		Description: normalize.FirstString(raw, normalize.Key("description"), normalize.Key("prompt")),
		LLMModel:    normalize.FirstString(raw, agentModelChain...),
		VoiceID:     normalize.FirstString(raw, agentVoiceChain...),
		UseCase:     normalize.FirstString(raw, agentUseCaseChain...),
	}

	existing, err := r.store.GetAgent(ctx, workspaceID, remoteID)
	switch {
	case errors.Is(err, mirror.ErrNotFound):
		// The file table, not the agent payload, is authoritative for
		// the knowledge-base count.
		count, cerr := r.store.CountFilesForAgent(ctx, workspaceID, remoteID)
		if cerr != nil {
			r.log.Error("file count for new agent failed", "workspace_id", workspaceID, "agent_id", remoteID, "err", cerr)
		}
		incoming.KnowledgeBaseFileCount = count
		incoming.LastSyncedAt = now
		incoming.SyncStatus = mirror.SyncStatusSynced
		incoming.CreatedAt = r.recordCreatedAt(raw)
		incoming.UpdatedAt = now
		if _, err := r.store.PutAgent(ctx, incoming); err != nil {
			return err
		}
		res.Created++
		res.Synced++
		r.emit.Emit(ctx, events.New("agent", events.ActionCreated, workspaceID, remoteID, incoming))
		return nil
	case err != nil:
		return err
	}

	merged := existing
	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.Description != "" {
		merged.Description = incoming.Description
	}
	if incoming.LLMModel != "" {
		merged.LLMModel = incoming.LLMModel
	}
	if incoming.VoiceID != "" {
		merged.VoiceID = incoming.VoiceID
	}
	if incoming.UseCase != "" {
		merged.UseCase = incoming.UseCase
	}
	merged.LastSyncedAt = now
	merged.SyncStatus = mirror.SyncStatusSynced
	merged.UpdatedAt = now

	if _, err := r.store.PutAgent(ctx, merged); err != nil {
		return err
	}
	res.Synced++
	res.Updated++
	if agentChanged(existing, merged) {
		r.emit.Emit(ctx, events.New("agent", events.ActionUpdated, workspaceID, remoteID, merged))
	}
	return nil
}

// DeleteAgent removes an agent locally and, for dashboard deletes, on
// the platform first. Numbers and files pointing at the agent keep
// their references; they resolve stale rather than null, and the next
// pull repairs them.
func (r *Reconciler) DeleteAgent(ctx context.Context, workspaceID, remoteID string, origin Origin) error {
	if origin == OriginDashboard {
		if err := r.remote.DeleteResource(ctx, remote.ResourceAgents, remoteID); err != nil {
			if !errors.Is(err, normalize.ErrIDOutOfRange) {
				return err
			}
			r.log.Warn("agent delete skipped outbound, id outside remote contract", "remote_id", remoteID)
		}
	}
	if err := r.store.DeleteAgent(ctx, workspaceID, remoteID); err != nil {
		return err
	}
	r.emit.Emit(ctx, events.New("agent", events.ActionDeleted, workspaceID, remoteID, nil))
	return nil
}

// PruneAbsentAgents deletes mirrored agents the platform no longer
// reports. Only safe after a complete pull of the agent table.
func (r *Reconciler) PruneAbsentAgents(ctx context.Context, workspaceID string, present map[string]struct{}) (int, error) {
	all, _, err := r.store.ListAgents(ctx, workspaceID, mirror.Page{Pageno: 1, Pagesize: pruneScanSize})
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, a := range all {
		if _, ok := present[a.RemoteID]; ok {
			continue
		}
		if err := r.store.DeleteAgent(ctx, workspaceID, a.RemoteID); err != nil {
			r.log.Error("agent prune failed", "workspace_id", workspaceID, "remote_id", a.RemoteID, "err", err)
			continue
		}
		pruned++
		r.emit.Emit(ctx, events.New("agent", events.ActionDeleted, workspaceID, a.RemoteID, nil))
	}
	return pruned, nil
}

func agentChanged(before, after mirror.Agent) bool {
	before.LastSyncedAt, after.LastSyncedAt = time.Time{}, time.Time{}
	before.UpdatedAt, after.UpdatedAt = time.Time{}, time.Time{}
	before.SyncStatus, after.SyncStatus = "", ""
	return !reflect.DeepEqual(before, after)
}
