package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/ax5-sect/server/internal/agent/model"
	errx "github.com/ax5-sect/server/internal/core/error"
	logx "github.com/ax5-sect/server/pkg/logger"
)

type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) messagesKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

func (r *RedisConversationRepository) contextKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:context", conversationID)
}

func (r *RedisConversationRepository) AppendMessages(ctx context.Context, conversationID string, messages ...*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}

	values := make([]any, 0, len(messages))
	for _, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, b)
	}

	key := r.messagesKey(conversationID)
	if err := r.rdb.RPush(ctx, key, values...).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push messages to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
		}
	}
	return nil
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error) {
	history := &model.ConversationHistory{ConversationID: conversationID, Messages: []*schema.Message{}}

	key := r.messagesKey(conversationID)
	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("conversation_id", conversationID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		history.Messages = append(history.Messages, &m)
	}

	raw, err := r.rdb.Get(ctx, r.contextKey(conversationID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return history, nil
	case err != nil:
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to load business context from redis")
		return nil, errx.WrapRedis(err)
	}
	if err := json.Unmarshal(raw, &history.BusinessContext); err != nil {
		return nil, fmt.Errorf("unmarshal business context: %w", err)
	}
	return history, nil
}

func (r *RedisConversationRepository) SaveBusinessContext(ctx context.Context, conversationID string, bc model.BusinessContext) error {
	b, err := json.Marshal(bc)
	if err != nil {
		return fmt.Errorf("marshal business context: %w", err)
	}
	key := r.contextKey(conversationID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save business context")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, conversationID string) error {
	if err := r.rdb.Del(ctx, r.messagesKey(conversationID), r.contextKey(conversationID)).Err(); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to delete conversation from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, conversationID string) (int, error) {
	key := r.messagesKey(conversationID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
