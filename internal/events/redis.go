package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "voicedash:events:"

// RedisEmitter publishes events on a per-workspace redis channel so
// other dashboard processes can relay them to their own websocket
// clients. Publish failures are logged and swallowed.
type RedisEmitter struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisEmitter(rdb *redis.Client, log *slog.Logger) *RedisEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisEmitter{rdb: rdb, log: log}
}

func Channel(workspaceID string) string { return channelPrefix + workspaceID }

func (r *RedisEmitter) Emit(ctx context.Context, e Event) {
	if r.rdb == nil {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		r.log.Warn("event marshal failed", "event", e.Name, "err", err)
		return
	}
	if err := r.rdb.Publish(ctx, Channel(e.WorkspaceID), payload).Err(); err != nil {
		r.log.Warn("event publish failed", "event", e.Name, "workspace_id", e.WorkspaceID, "err", err)
	}
}
