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

var (
	fileIDChain = []normalize.StringExtractor{
		normalize.IDKey("file_id"), normalize.IDKey("id"),
	}
	fileNameChain = []normalize.StringExtractor{
		normalize.Key("file_name"), normalize.Key("name"), normalize.Key("filename"),
	}
	fileURLChain = []normalize.StringExtractor{
		normalize.Key("file_url"), normalize.Key("url"), normalize.Key("storage_url"),
	}
	fileAgentListKeys = []string{"agent_ids", "agents", "attached_agents"}
)

// ReconcileFiles upserts a page of knowledge-base file records. File
// payloads carry the full attachment list, so agent counts touched by
// a change are recomputed from the mirror rather than incremented.
func (r *Reconciler) ReconcileFiles(ctx context.Context, workspaceID string, raw []normalize.RawRecord) (Result, error) {
	var res Result
	touched := map[string]struct{}{}
	for _, rec := range raw {
		remoteID := normalize.FirstString(rec, fileIDChain...)
		if remoteID == "" {
			r.log.Warn("file record without usable identifier skipped", "workspace_id", workspaceID)
			res.Skipped++
			continue
		}
		if err := r.reconcileFile(ctx, workspaceID, remoteID, rec, &res, touched); err != nil {
			r.log.Error("file reconcile failed", "workspace_id", workspaceID, "remote_id", remoteID, "err", err)
			res.Skipped++
		}
	}
	r.refreshAgentFileCounts(ctx, workspaceID, touched)
	return res, nil
}

func (r *Reconciler) reconcileFile(ctx context.Context, workspaceID, remoteID string, raw normalize.RawRecord, res *Result, touched map[string]struct{}) error {
	now := r.now().UTC()

	incoming := mirror.File{
		RemoteID:     remoteID,
		WorkspaceID:  workspaceID,
		Name:         normalize.FirstString(raw, fileNameChain...),
		StorageURL:   normalize.FirstString(raw, fileURLChain...),
		ContentType:  normalize.FirstString(raw, normalize.Key("content_type"), normalize.Key("mime_type")),
		LastSyncedAt: now,
		SyncStatus:   mirror.SyncStatusSynced,
	}
	if n, ok := normalize.FirstNumber(raw, "size_bytes", "size", "file_size"); ok {
		incoming.SizeBytes = int64(n)
	}

	agents, agentsPresent := []string(nil), false
	for _, k := range fileAgentListKeys {
		if v, ok := raw[k]; ok {
			agents = idList(v)
			agentsPresent = true
			break
		}
	}

	existing, err := r.store.GetFile(ctx, workspaceID, remoteID)
	switch {
	case errors.Is(err, mirror.ErrNotFound):
		incoming.AttachedAgentRemoteIDs = agents
		incoming.CreatedAt = r.recordCreatedAt(raw)
		incoming.UpdatedAt = now
		if _, err := r.store.PutFile(ctx, incoming); err != nil {
			return err
		}
		res.Created++
		res.Synced++
		markAgents(touched, agents)
		r.emit.Emit(ctx, events.New("file", events.ActionCreated, workspaceID, remoteID, incoming))
		return nil
	case err != nil:
		return err
	}

	merged := existing
	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.StorageURL != "" {
		merged.StorageURL = incoming.StorageURL
	}
	if incoming.ContentType != "" {
		merged.ContentType = incoming.ContentType
	}
	if incoming.SizeBytes > 0 {
		merged.SizeBytes = incoming.SizeBytes
	}
	if agentsPresent {
		merged.AttachedAgentRemoteIDs = agents
	}
	merged.LastSyncedAt = now
	merged.SyncStatus = mirror.SyncStatusSynced
	merged.UpdatedAt = now

	if _, err := r.store.PutFile(ctx, merged); err != nil {
		return err
	}
	res.Synced++
	res.Updated++
	if fileChanged(existing, merged) {
		markAgents(touched, existing.AttachedAgentRemoteIDs)
		markAgents(touched, merged.AttachedAgentRemoteIDs)
		r.emit.Emit(ctx, events.New("file", events.ActionUpdated, workspaceID, remoteID, merged))
	}
	return nil
}

// AttachFile links a file to an agent's knowledge base. The same
// origin gate as number attachments applies.
func (r *Reconciler) AttachFile(ctx context.Context, workspaceID, fileRemoteID, agentRemoteID string, origin Origin) error {
	return r.mutateFileAttachment(ctx, workspaceID, fileRemoteID, agentRemoteID, origin, true)
}

// DetachFile unlinks a file from an agent's knowledge base.
func (r *Reconciler) DetachFile(ctx context.Context, workspaceID, fileRemoteID, agentRemoteID string, origin Origin) error {
	return r.mutateFileAttachment(ctx, workspaceID, fileRemoteID, agentRemoteID, origin, false)
}

func (r *Reconciler) mutateFileAttachment(ctx context.Context, workspaceID, fileRemoteID, agentRemoteID string, origin Origin, attach bool) error {
	now := r.now().UTC()

	rec, err := r.store.GetFile(ctx, workspaceID, fileRemoteID)
	if errors.Is(err, mirror.ErrNotFound) {
		rec = mirror.File{
			RemoteID:    fileRemoteID,
			WorkspaceID: workspaceID,
			SyncStatus:  mirror.SyncStatusPending,
			CreatedAt:   now,
		}
	} else if err != nil {
		return err
	}

	if attach {
		rec.AttachedAgentRemoteIDs = appendUnique(rec.AttachedAgentRemoteIDs, agentRemoteID)
	} else {
		rec.AttachedAgentRemoteIDs = removeString(rec.AttachedAgentRemoteIDs, agentRemoteID)
	}
	rec.LastSyncedAt = now
	rec.UpdatedAt = now
	if rec.SyncStatus != mirror.SyncStatusPending {
		rec.SyncStatus = mirror.SyncStatusSynced
	}

	if origin == OriginDashboard {
		var remoteErr error
		if attach {
			remoteErr = r.remote.AttachFileAgent(ctx, fileRemoteID, agentRemoteID)
		} else {
			remoteErr = r.remote.DetachFileAgent(ctx, fileRemoteID, agentRemoteID)
		}
		if remoteErr != nil {
			r.log.Warn("outbound file attachment failed, mirror committed with degraded status",
				"workspace_id", workspaceID, "remote_id", fileRemoteID, "err", remoteErr)
			rec.SyncStatus = mirror.SyncStatusError
		}
	}

	if _, err := r.store.PutFile(ctx, rec); err != nil {
		return err
	}
	r.emit.Emit(ctx, events.New("file", events.ActionUpdated, workspaceID, fileRemoteID, rec))

	touched := map[string]struct{}{agentRemoteID: {}}
	r.refreshAgentFileCounts(ctx, workspaceID, touched)
	return nil
}

// DeleteFile removes a file locally and, for dashboard deletes, on the
// platform first. Attachment counts of agents that referenced the file
// are recomputed afterwards.
func (r *Reconciler) DeleteFile(ctx context.Context, workspaceID, remoteID string, origin Origin) error {
	rec, err := r.store.GetFile(ctx, workspaceID, remoteID)
	if err != nil && !errors.Is(err, mirror.ErrNotFound) {
		return err
	}

	if origin == OriginDashboard {
		if err := r.remote.DeleteResource(ctx, remote.ResourceFiles, remoteID); err != nil {
			if !errors.Is(err, normalize.ErrIDOutOfRange) {
				return err
			}
			r.log.Warn("file delete skipped outbound, id outside remote contract", "remote_id", remoteID)
		}
	}
	if err := r.store.DeleteFile(ctx, workspaceID, remoteID); err != nil && !errors.Is(err, mirror.ErrNotFound) {
		return err
	}
	r.emit.Emit(ctx, events.New("file", events.ActionDeleted, workspaceID, remoteID, nil))

	touched := map[string]struct{}{}
	markAgents(touched, rec.AttachedAgentRemoteIDs)
	r.refreshAgentFileCounts(ctx, workspaceID, touched)
	return nil
}

// PruneAbsentFiles deletes mirrored files the platform no longer
// reports. Only safe after a complete pull of the file table.
func (r *Reconciler) PruneAbsentFiles(ctx context.Context, workspaceID string, present map[string]struct{}) (int, error) {
	all, _, err := r.store.ListFiles(ctx, workspaceID, mirror.Page{Pageno: 1, Pagesize: pruneScanSize})
	if err != nil {
		return 0, err
	}
	pruned := 0
	touched := map[string]struct{}{}
	for _, f := range all {
		if _, ok := present[f.RemoteID]; ok {
			continue
		}
		if err := r.store.DeleteFile(ctx, workspaceID, f.RemoteID); err != nil {
			r.log.Error("file prune failed", "workspace_id", workspaceID, "remote_id", f.RemoteID, "err", err)
			continue
		}
		pruned++
		markAgents(touched, f.AttachedAgentRemoteIDs)
		r.emit.Emit(ctx, events.New("file", events.ActionDeleted, workspaceID, f.RemoteID, nil))
	}
	r.refreshAgentFileCounts(ctx, workspaceID, touched)
	return pruned, nil
}

// refreshAgentFileCounts recomputes KnowledgeBaseFileCount for each
// touched agent from the mirror's file table. Missing agents are
// skipped silently; the count lands once the agent itself syncs.
func (r *Reconciler) refreshAgentFileCounts(ctx context.Context, workspaceID string, agentIDs map[string]struct{}) {
	for id := range agentIDs {
		if id == "" {
			continue
		}
		agent, err := r.store.GetAgent(ctx, workspaceID, id)
		if errors.Is(err, mirror.ErrNotFound) {
			continue
		}
		if err != nil {
			r.log.Error("agent lookup for file count failed", "workspace_id", workspaceID, "agent_id", id, "err", err)
			continue
		}
		count, err := r.store.CountFilesForAgent(ctx, workspaceID, id)
		if err != nil {
			r.log.Error("file count failed", "workspace_id", workspaceID, "agent_id", id, "err", err)
			continue
		}
		if agent.KnowledgeBaseFileCount == count {
			continue
		}
		agent.KnowledgeBaseFileCount = count
		agent.UpdatedAt = r.now().UTC()
		if _, err := r.store.PutAgent(ctx, agent); err != nil {
			r.log.Error("agent file count update failed", "workspace_id", workspaceID, "agent_id", id, "err", err)
			continue
		}
		r.emit.Emit(ctx, events.New("agent", events.ActionUpdated, workspaceID, id, agent))
	}
}

func fileChanged(before, after mirror.File) bool {
	before.LastSyncedAt, after.LastSyncedAt = time.Time{}, time.Time{}
	before.UpdatedAt, after.UpdatedAt = time.Time{}, time.Time{}
	before.SyncStatus, after.SyncStatus = "", ""
	return !reflect.DeepEqual(before, after)
}

func markAgents(touched map[string]struct{}, ids []string) {
	for _, id := range ids {
		if id != "" {
			touched[id] = struct{}{}
		}
	}
}

func idList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		var id string
		if obj, ok := e.(map[string]any); ok {
			id = normalize.ExtractID(obj["id"])
		} else {
			id = normalize.ExtractID(e)
		}
		if id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, e := range list {
		if e == s {
			return list
		}
	}
	return append(list, s)
}

// removeString returns a fresh slice; the input may be shared with
// store snapshots and must not be compacted in place.
func removeString(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		if e != s {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
