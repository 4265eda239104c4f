package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - workspace_id is required for tenancy isolation.
// - actor and ip capture are best-effort; do not block critical flows on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Event struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	// Prefer X-Forwarded-For processing at the edge; store the resolved client IP here.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	Resource string `json:"resource,omitempty" db:"resource"`
	RemoteID string `json:"remote_id,omitempty" db:"remote_id"`

	// Origin records where a mutation started: dashboard or remote.
	Origin string `json:"origin,omitempty" db:"origin"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	// EventTypeDashboardMutation covers user-initiated attach, detach,
	// import, and delete actions.
	EventTypeDashboardMutation EventType = "dashboard_mutation"
	// EventTypeWebhookMutation covers mutations applied from remote
	// platform push deliveries.
	EventTypeWebhookMutation EventType = "webhook_mutation"
	// EventTypeSyncRun covers completed background pull runs.
	EventTypeSyncRun EventType = "sync_run"
)
