package webhook

import (
	"context"
	"fmt"
	"log/slog"

	"voicedash/internal/normalize"
	"voicedash/internal/reconcile"
	"voicedash/internal/remote"
)

// Router turns classified webhook payloads into reconciler calls.
// There is no self-dispatch back through HTTP: the router invokes the
// same reconciler entry points the background sync scheduler uses.
type Router struct {
	rec      *reconcile.Reconciler
	log      *slog.Logger
	dispatch map[ResourceKind]map[MutationKind]handlerFunc
}

type handlerFunc func(ctx context.Context, workspaceID string, c Classification, raw normalize.RawRecord, origin reconcile.Origin) error

func NewRouter(rec *reconcile.Reconciler, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	r := &Router{rec: rec, log: log}
	r.dispatch = map[ResourceKind]map[MutationKind]handlerFunc{
		KindFile: {
			MutationUpsert: r.upsert(remote.ResourceFiles),
			MutationAttach: r.fileAttach,
			MutationDetach: r.fileDetach,
			MutationDelete: r.delete(remote.ResourceFiles),
		},
		KindAgent: {
			MutationUpsert: r.upsert(remote.ResourceAgents),
			MutationDelete: r.delete(remote.ResourceAgents),
		},
		KindNumber: {
			MutationUpsert: r.upsert(remote.ResourceNumbers),
			MutationAttach: r.numberAttach,
			MutationDetach: r.numberDetach,
			MutationDelete: r.delete(remote.ResourceNumbers),
		},
		KindCall: {
			MutationUpsert: r.upsert(remote.ResourceCalls),
			MutationDelete: r.delete(remote.ResourceCalls),
		},
		KindCampaign: {
			MutationUpsert: r.upsert(remote.ResourceCampaigns),
			MutationDelete: r.delete(remote.ResourceCampaigns),
		},
	}
	return r
}

// Route classifies one payload and applies it to the mirror. Origin
// comes from the provenance header, decided by the HTTP layer.
func (r *Router) Route(ctx context.Context, workspaceID string, raw normalize.RawRecord, origin reconcile.Origin) (Classification, error) {
	c, err := Classify(raw)
	if err != nil {
		return Classification{}, err
	}
	handlers, ok := r.dispatch[c.Resource]
	if !ok {
		return c, fmt.Errorf("webhook: no handlers for resource %q", c.Resource)
	}
	h, ok := handlers[c.Mutation]
	if !ok {
		return c, fmt.Errorf("webhook: %s payloads do not support %s", c.Resource, c.Mutation)
	}
	if err := h(ctx, workspaceID, c, raw, origin); err != nil {
		return c, err
	}
	r.log.Info("webhook applied",
		"workspace_id", workspaceID, "resource", c.Resource,
		"mutation", c.Mutation, "origin", origin.String(), "records", len(c.RemoteIDs))
	return c, nil
}

func (r *Router) upsert(res remote.Resource) handlerFunc {
	return func(ctx context.Context, workspaceID string, c Classification, raw normalize.RawRecord, _ reconcile.Origin) error {
		if recs := collectionRecords(res, raw); len(recs) > 0 {
			_, err := r.rec.Reconcile(ctx, workspaceID, res, recs)
			return err
		}
		body := recordBody(res, raw)
		_, err := r.rec.Reconcile(ctx, workspaceID, res, []normalize.RawRecord{body})
		return err
	}
}

func (r *Router) delete(res remote.Resource) handlerFunc {
	return func(ctx context.Context, workspaceID string, c Classification, _ normalize.RawRecord, origin reconcile.Origin) error {
		for _, id := range c.RemoteIDs {
			if err := r.rec.Delete(ctx, workspaceID, res, id, origin); err != nil {
				return err
			}
		}
		return nil
	}
}

func (r *Router) fileAttach(ctx context.Context, workspaceID string, c Classification, _ normalize.RawRecord, origin reconcile.Origin) error {
	for _, id := range c.RemoteIDs {
		if err := r.rec.AttachFile(ctx, workspaceID, id, c.TargetID, origin); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) fileDetach(ctx context.Context, workspaceID string, c Classification, _ normalize.RawRecord, origin reconcile.Origin) error {
	for _, id := range c.RemoteIDs {
		if err := r.rec.DetachFile(ctx, workspaceID, id, c.TargetID, origin); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) numberAttach(ctx context.Context, workspaceID string, c Classification, _ normalize.RawRecord, origin reconcile.Origin) error {
	for _, id := range c.RemoteIDs {
		if err := r.rec.AttachNumber(ctx, workspaceID, id, c.TargetID, origin); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) numberDetach(ctx context.Context, workspaceID string, c Classification, _ normalize.RawRecord, origin reconcile.Origin) error {
	for _, id := range c.RemoteIDs {
		if err := r.rec.DetachNumber(ctx, workspaceID, id, origin); err != nil {
			return err
		}
	}
	return nil
}

var bodyMarkers = map[remote.Resource]string{
	remote.ResourceFiles:     "file",
	remote.ResourceAgents:    "agent",
	remote.ResourceNumbers:   "phone_number",
	remote.ResourceCalls:     "call",
	remote.ResourceCampaigns: "campaign",
}

// Bulk payloads carry full records under a plural key.
var collectionMarkers = map[remote.Resource]string{
	remote.ResourceFiles: "files",
}

// collectionRecords expands a bulk payload ({"files": [{...}, ...]})
// into one record per element. Scalar elements are skipped; those are
// id lists, not bodies.
func collectionRecords(res remote.Resource, raw normalize.RawRecord) []normalize.RawRecord {
	key, ok := collectionMarkers[res]
	if !ok {
		return nil
	}
	arr, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	var recs []normalize.RawRecord
	for _, e := range arr {
		if obj, ok := e.(map[string]any); ok {
			recs = append(recs, normalize.RawRecord(obj))
		}
	}
	return recs
}

// recordBody unwraps a nested record body ({"file": {...}}) so the
// reconciler sees the same flat shape a list pull produces.
func recordBody(res remote.Resource, raw normalize.RawRecord) normalize.RawRecord {
	marker := bodyMarkers[res]
	obj, ok := raw[marker].(map[string]any)
	if !ok {
		return raw
	}
	body := normalize.RawRecord{}
	for k, v := range obj {
		body[k] = v
	}
	if _, ok := body["id"]; !ok {
		// Keep the outer id key when the nested body lacks one.
		if id, ok := raw[marker+"_id"]; ok {
			body["id"] = id
		}
	}
	return body
}
