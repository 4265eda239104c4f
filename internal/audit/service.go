package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogDashboardMutation records a user-initiated mutation: attach,
// detach, import, or delete.
func (s *Service) LogDashboardMutation(ctx context.Context, workspaceID, actorUserID, actorRole, ip, resource, remoteID, message string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeDashboardMutation,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Resource:    resource,
		RemoteID:    remoteID,
		Origin:      "dashboard",
		Message:     message,
	})
}

// LogWebhookMutation records a mutation applied from a remote push
// delivery. There is no authenticated actor.
func (s *Service) LogWebhookMutation(ctx context.Context, workspaceID, ip, resource, remoteID, message string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeWebhookMutation,
		IPAddress:   ip,
		Resource:    resource,
		RemoteID:    remoteID,
		Origin:      "remote",
		Message:     message,
	})
}

// LogSyncRun records a finished background pull.
func (s *Service) LogSyncRun(ctx context.Context, workspaceID, resource, message, metadata string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeSyncRun,
		Resource:    resource,
		Message:     message,
		Metadata:    metadata,
	})
}
