package contextstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/core/errx"
	logx "github.com/granite-bot/server/pkg/logger"
)

// RedisBackend stores each conversation history as a single JSON document,
// so one Commit is one write.
type RedisBackend struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisBackend(rdb redis.Cmdable, ttl time.Duration) *RedisBackend {
	return &RedisBackend{rdb: rdb, ttl: ttl}
}

func (b *RedisBackend) conversationKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:context", conversationID)
}

func (b *RedisBackend) Load(ctx context.Context, conversationID string) (model.History, error) {
	key := b.conversationKey(conversationID)

	raw, err := b.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation context from redis")
		return nil, errx.WrapRedis(err)
	}

	// Malformed content is discarded and treated as empty, never surfaced
	// as an error to the caller.
	history, ok := decodeHistory([]byte(raw))
	if !ok {
		logx.Warn().Str("key", key).Msg("discarding malformed conversation context")
		return nil, nil
	}
	return history, nil
}

func (b *RedisBackend) Save(ctx context.Context, conversationID string, history model.History) error {
	key := b.conversationKey(conversationID)

	payload, err := json.Marshal(history)
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to marshal conversation context")
		return fmt.Errorf("marshal context: %w", err)
	}

	if err := b.rdb.Set(ctx, key, payload, b.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save conversation context to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, conversationID string) error {
	key := b.conversationKey(conversationID)
	if err := b.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation context from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// decodeHistory parses a persisted JSON history. The second return value is
// false when the payload is not a valid history document.
func decodeHistory(raw []byte) (model.History, bool) {
	var history model.History
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, false
	}
	for _, turn := range history {
		switch turn.Role {
		case model.RoleSystem, model.RoleUser, model.RoleAssistant:
		default:
			return nil, false
		}
	}
	return history, true
}

var _ Backend = (*RedisBackend)(nil)
