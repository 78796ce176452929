package selection

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/core/errx"
)

// RedisStore persists selection records as plain string values, one key
// per session.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) selectionKey(sessionKey string) string {
	return fmt.Sprintf("session:%s:botconfig", sessionKey)
}

func (s *RedisStore) Get(ctx context.Context, sessionKey string) (model.SelectionRecord, bool, error) {
	configID, err := s.rdb.Get(ctx, s.selectionKey(sessionKey)).Result()
	if err != nil {
		if err == redis.Nil {
			return model.SelectionRecord{}, false, nil
		}
		return model.SelectionRecord{}, false, errx.WrapRedis(err)
	}
	return model.SelectionRecord{SessionKey: sessionKey, ActiveConfigID: configID}, true, nil
}

func (s *RedisStore) Put(ctx context.Context, record model.SelectionRecord) error {
	if err := s.rdb.Set(ctx, s.selectionKey(record.SessionKey), record.ActiveConfigID, 0).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
