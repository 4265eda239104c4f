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
	numberIDChain = []normalize.StringExtractor{
		normalize.IDKey("phone_number_id"), normalize.IDKey("phone_id"), normalize.IDKey("id"),
	}
	numberValueChain = []normalize.StringExtractor{
		normalize.Key("phone_number"), normalize.Key("number"),
		normalize.FirstElem("numbers", "number"),
	}
	numberLabelChain = []normalize.StringExtractor{
		normalize.Key("label"), normalize.Key("name"),
	}
	numberAgentKeys = []string{"agent_id", "attached_agent_id", "active_bot_id"}
)

// ReconcileNumbers upserts a page of raw phone-number records.
// The remote side's agent attachment wins on pull: when the payload
// carries an attachment key at all, its value replaces the local one,
// including a detach (empty value).
func (r *Reconciler) ReconcileNumbers(ctx context.Context, workspaceID string, raw []normalize.RawRecord) (Result, error) {
	var res Result
	for _, rec := range raw {
		remoteID := normalize.FirstString(rec, numberIDChain...)
		if remoteID == "" {
			r.log.Warn("number record without usable identifier skipped", "workspace_id", workspaceID)
			res.Skipped++
			continue
		}
		if err := r.reconcileNumber(ctx, workspaceID, remoteID, rec, &res); err != nil {
			r.log.Error("number reconcile failed", "workspace_id", workspaceID, "remote_id", remoteID, "err", err)
			res.Skipped++
		}
	}
	return res, nil
}

func (r *Reconciler) reconcileNumber(ctx context.Context, workspaceID, remoteID string, raw normalize.RawRecord, res *Result) error {
	now := r.now().UTC()

	incoming := mirror.PhoneNumber{
		RemoteID:     remoteID,
		WorkspaceID:  workspaceID,
		Number:       normalize.FirstString(raw, numberValueChain...),
		Label:        normalize.FirstString(raw, numberLabelChain...),
		Provider:     normalize.FirstString(raw, normalize.Key("provider")),
		Capabilities: stringList(raw["capabilities"]),
		LastSyncedAt: now,
		SyncStatus:   mirror.SyncStatusSynced,
	}
	parts := normalize.NormalizePhone(incoming.Number)
	incoming.E164, incoming.Digits = parts.E164, parts.LastTen

	attachment, attachmentPresent := "", false
	for _, k := range numberAgentKeys {
		if v, ok := raw[k]; ok {
			attachment = normalize.ExtractID(v)
			attachmentPresent = true
			break
		}
	}

	existing, err := r.store.GetNumber(ctx, workspaceID, remoteID)
	switch {
	case errors.Is(err, mirror.ErrNotFound):
		incoming.AttachedAgentRemoteID = attachment
		incoming.CreatedAt = r.recordCreatedAt(raw)
		incoming.UpdatedAt = now
		if _, err := r.store.PutNumber(ctx, incoming); err != nil {
			return err
		}
		res.Created++
		res.Synced++
		r.emit.Emit(ctx, events.New("number", events.ActionCreated, workspaceID, remoteID, incoming))
		return nil
	case err != nil:
		return err
	}

	merged := existing
	if incoming.Number != "" {
		merged.Number, merged.E164, merged.Digits = incoming.Number, incoming.E164, incoming.Digits
	}
	if incoming.Label != "" {
		merged.Label = incoming.Label
	}
	if incoming.Provider != "" {
		merged.Provider = incoming.Provider
	}
	if incoming.Capabilities != nil {
		merged.Capabilities = incoming.Capabilities
	}
	if attachmentPresent {
		merged.AttachedAgentRemoteID = attachment
	}
	merged.LastSyncedAt = now
	merged.SyncStatus = mirror.SyncStatusSynced
	merged.UpdatedAt = now

	if _, err := r.store.PutNumber(ctx, merged); err != nil {
		return err
	}
	res.Synced++
	res.Updated++
	if numberChanged(existing, merged) {
		r.emit.Emit(ctx, events.New("number", events.ActionUpdated, workspaceID, remoteID, merged))
	}
	return nil
}

// AttachNumber points a phone number at an agent. Dashboard-originated
// attaches propagate to the remote platform; remote-originated ones
// (webhook deliveries) mutate only the mirror, breaking the echo loop.
func (r *Reconciler) AttachNumber(ctx context.Context, workspaceID, numberRemoteID, agentRemoteID string, origin Origin) error {
	return r.mutateNumberAttachment(ctx, workspaceID, numberRemoteID, agentRemoteID, origin)
}

// DetachNumber clears a number's agent attachment.
func (r *Reconciler) DetachNumber(ctx context.Context, workspaceID, numberRemoteID string, origin Origin) error {
	return r.mutateNumberAttachment(ctx, workspaceID, numberRemoteID, "", origin)
}

func (r *Reconciler) mutateNumberAttachment(ctx context.Context, workspaceID, numberRemoteID, agentRemoteID string, origin Origin) error {
	now := r.now().UTC()

	rec, err := r.store.GetNumber(ctx, workspaceID, numberRemoteID)
	created := false
	if errors.Is(err, mirror.ErrNotFound) {
		// A webhook can reference a number the mirror has not pulled
		// yet; a pending stub holds the attachment until the next sync.
		rec = mirror.PhoneNumber{
			RemoteID:    numberRemoteID,
			WorkspaceID: workspaceID,
			SyncStatus:  mirror.SyncStatusPending,
			CreatedAt:   now,
		}
		created = true
	} else if err != nil {
		return err
	}

	rec.AttachedAgentRemoteID = agentRemoteID
	rec.LastSyncedAt = now
	rec.UpdatedAt = now
	if rec.SyncStatus != mirror.SyncStatusPending {
		rec.SyncStatus = mirror.SyncStatusSynced
	}

	if origin == OriginDashboard {
		var remoteErr error
		if agentRemoteID != "" {
			remoteErr = r.remote.AttachNumberAgent(ctx, numberRemoteID, agentRemoteID)
		} else {
			remoteErr = r.remote.DetachNumberAgent(ctx, numberRemoteID)
		}
		if remoteErr != nil {
			// Outbound failure is non-fatal: the local mutation still
			// commits, flagged for the next background pull to repair.
			r.log.Warn("outbound number attachment failed, mirror committed with degraded status",
				"workspace_id", workspaceID, "remote_id", numberRemoteID, "err", remoteErr)
			rec.SyncStatus = mirror.SyncStatusError
		}
	}

	if _, err := r.store.PutNumber(ctx, rec); err != nil {
		return err
	}
	action := events.ActionUpdated
	if created {
		action = events.ActionCreated
	}
	r.emit.Emit(ctx, events.New("number", action, workspaceID, numberRemoteID, rec))
	return nil
}

// DeleteNumber removes a number locally; dashboard deletes propagate
// to the platform first and give up on remote failure, except for ids
// outside the platform's numeric contract, which skip outbound only.
func (r *Reconciler) DeleteNumber(ctx context.Context, workspaceID, remoteID string, origin Origin) error {
	if origin == OriginDashboard {
		if err := r.remote.DeleteResource(ctx, remote.ResourceNumbers, remoteID); err != nil {
			if !errors.Is(err, normalize.ErrIDOutOfRange) {
				return err
			}
			r.log.Warn("number delete skipped outbound, id outside remote contract", "remote_id", remoteID)
		}
	}
	if err := r.store.DeleteNumber(ctx, workspaceID, remoteID); err != nil {
		return err
	}
	r.emit.Emit(ctx, events.New("number", events.ActionDeleted, workspaceID, remoteID, nil))
	return nil
}

// ImportNumber registers an externally held phone number with the
// platform and mirrors the result immediately.
func (r *Reconciler) ImportNumber(ctx context.Context, workspaceID string, req remote.ImportNumberRequest) (mirror.PhoneNumber, error) {
	remoteID, err := r.remote.ImportNumber(ctx, workspaceID, req)
	if err != nil {
		return mirror.PhoneNumber{}, err
	}
	now := r.now().UTC()
	parts := normalize.NormalizePhone(req.Number)
	rec := mirror.PhoneNumber{
		RemoteID:     remoteID,
		WorkspaceID:  workspaceID,
		Number:       req.Number,
		E164:         parts.E164,
		Digits:       parts.LastTen,
		Label:        req.Label,
		Provider:     req.Provider,
		LastSyncedAt: now,
		SyncStatus:   mirror.SyncStatusSynced,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := r.store.PutNumber(ctx, rec)
	if err != nil {
		return mirror.PhoneNumber{}, err
	}
	action := events.ActionUpdated
	if created {
		action = events.ActionCreated
	}
	r.emit.Emit(ctx, events.New("number", action, workspaceID, remoteID, rec))
	return rec, nil
}

func numberChanged(before, after mirror.PhoneNumber) bool {
	before.LastSyncedAt, after.LastSyncedAt = time.Time{}, time.Time{}
	before.UpdatedAt, after.UpdatedAt = time.Time{}, time.Time{}
	before.SyncStatus, after.SyncStatus = "", ""
	return !reflect.DeepEqual(before, after)
}

func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s := normalize.Display(e); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
