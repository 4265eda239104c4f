package webhook

import (
	"errors"

	"voicedash/internal/normalize"
)

// ResourceKind names the resource family a webhook payload concerns.
type ResourceKind string

const (
	KindFile     ResourceKind = "file"
	KindAgent    ResourceKind = "agent"
	KindNumber   ResourceKind = "number"
	KindCall     ResourceKind = "call"
	KindCampaign ResourceKind = "campaign"
)

// MutationKind names what the payload asks the mirror to do.
type MutationKind string

const (
	MutationUpsert MutationKind = "upsert"
	MutationAttach MutationKind = "attach"
	MutationDetach MutationKind = "detach"
	MutationDelete MutationKind = "delete"
)

// Classification is the routing decision for one payload.
type Classification struct {
	Resource ResourceKind
	Mutation MutationKind

	// RemoteIDs are the affected records; usually one, more when the
	// payload carries a collection key like file_ids. For attach and
	// detach they are the children (files or numbers); TargetID is the
	// agent.
	RemoteIDs []string
	TargetID  string
}

var ErrUnroutable = errors.New(
	"webhook: payload matches no known shape; expected one of file_id, agent_id, phone_number_id, call_id, campaign_id")

// kindRule is one row of the classifier. Rules are ordered: payloads
// can carry keys from several families (a file event also names its
// agent), so the more specific family must be tested first.
type kindRule struct {
	kind        ResourceKind
	idChain     []normalize.StringExtractor
	marker      string
	collections []string

	// deferKeys make the rule yield to a later, more specific family:
	// a number-attach payload carries both phone_number_id and
	// agent_id, and the agent id is the target, not the subject.
	deferKeys []string
}

var kindRules = []kindRule{
	{KindFile, []normalize.StringExtractor{normalize.IDKey("file_id")}, "file", []string{"file_ids", "files"}, nil},
	{KindAgent, []normalize.StringExtractor{normalize.IDKey("agent_id"), normalize.IDKey("bot_id")}, "agent", nil,
		[]string{"phone_number_id", "phone_id", "phone_number_ids", "call_id"}},
	{KindNumber, []normalize.StringExtractor{normalize.IDKey("phone_number_id"), normalize.IDKey("phone_id")}, "phone_number", []string{"phone_number_ids"}, nil},
	{KindCall, []normalize.StringExtractor{normalize.IDKey("call_id")}, "call", nil, nil},
	{KindCampaign, []normalize.StringExtractor{normalize.IDKey("campaign_id")}, "campaign", nil, nil},
}

// Classify decides which resource family a payload belongs to and
// what mutation it carries. The resource decision is a strict priority
// order over the id keys each family uses; the mutation decision
// then looks at what else travels with the id:
//
//   - an explicit event or action field naming a delete wins;
//   - a child id plus an agent target without a detach marker is an
//     attach, with one an explicit detach;
//   - a bare id with no object body is a delete notification;
//   - anything else is an upsert of the carried body.
func Classify(raw normalize.RawRecord) (Classification, error) {
	for _, rule := range kindRules {
		if deferred(rule, raw) {
			continue
		}
		ids := ruleIDs(rule, raw)
		if len(ids) == 0 {
			// The body may travel nested under the family marker,
			// e.g. {"file": {"id": ..., ...}}.
			if obj, ok := raw[rule.marker].(map[string]any); ok {
				if id := normalize.FirstString(obj, normalize.IDKey("id")); id != "" {
					return Classification{Resource: rule.kind, Mutation: MutationUpsert, RemoteIDs: []string{id}}, nil
				}
			}
			continue
		}
		c := Classification{Resource: rule.kind, RemoteIDs: ids}
		c.Mutation = classifyMutation(rule.kind, raw)
		if c.Mutation == MutationAttach || c.Mutation == MutationDetach {
			c.TargetID = attachTarget(rule.kind, raw)
		}
		return c, nil
	}
	return Classification{}, ErrUnroutable
}

func deferred(rule kindRule, raw normalize.RawRecord) bool {
	for _, k := range rule.deferKeys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

// ruleIDs collects the family's ids: the scalar id key first, then the
// collection keys carried by bulk mutations.
func ruleIDs(rule kindRule, raw normalize.RawRecord) []string {
	if id := normalize.FirstString(raw, rule.idChain...); id != "" {
		return []string{id}
	}
	for _, key := range rule.collections {
		arr, ok := raw[key].([]any)
		if !ok {
			continue
		}
		var ids []string
		for _, e := range arr {
			if id := normalize.ExtractID(e); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			return ids
		}
	}
	return nil
}

var deleteMarkers = []string{"deleted", "delete", "removed", "remove"}

func classifyMutation(kind ResourceKind, raw normalize.RawRecord) MutationKind {
	verb := normalize.FirstString(raw,
		normalize.Key("event"), normalize.Key("action"), normalize.Key("type"))
	for _, m := range deleteMarkers {
		if verb == m || hasSuffixWord(verb, m) {
			return MutationDelete
		}
	}

	if kind == KindFile || kind == KindNumber {
		if target := attachTarget(kind, raw); target != "" {
			if verb == "detach" || hasSuffixWord(verb, "detached") || truthy(raw["detach"]) {
				return MutationDetach
			}
			return MutationAttach
		}
		if truthy(raw["detach"]) || verb == "detach" {
			return MutationDetach
		}
	}

	// A bare id with no record body is a deletion notice.
	if isBareID(raw) {
		return MutationDelete
	}
	return MutationUpsert
}

// attachTarget finds the agent the child resource is being pointed at.
// Only files and numbers attach to agents.
func attachTarget(kind ResourceKind, raw normalize.RawRecord) string {
	if kind != KindFile && kind != KindNumber {
		return ""
	}
	return normalize.FirstString(raw,
		normalize.IDKey("agent_id"),
		normalize.Path("agent", "id"),
		normalize.IDKey("attach_agent_id"),
	)
}

// routing and provenance keys that never count as record body.
var envelopeKeys = map[string]struct{}{
	"event": {}, "action": {}, "type": {}, "workspace_id": {}, "owner_id": {},
	"file_id": {}, "file_ids": {}, "files": {}, "agent_id": {}, "bot_id": {},
	"phone_number_id": {}, "phone_number_ids": {}, "phone_id": {},
	"call_id": {}, "campaign_id": {}, "id": {}, "detach": {},
	"timestamp": {},
}

func isBareID(raw normalize.RawRecord) bool {
	for k, v := range raw {
		if _, ok := envelopeKeys[k]; !ok {
			return false
		}
		// A collection of full records is a body, even under an
		// envelope key.
		if arr, ok := v.([]any); ok {
			for _, e := range arr {
				if _, ok := e.(map[string]any); ok {
					return false
				}
			}
		}
	}
	return true
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func hasSuffixWord(s, word string) bool {
	if len(s) < len(word) {
		return false
	}
	tail := s[len(s)-len(word):]
	if tail != word {
		return false
	}
	return len(s) == len(word) || s[len(s)-len(word)-1] == '.' || s[len(s)-len(word)-1] == '_'
}
