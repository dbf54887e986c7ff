package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// viewedKeyPrefix namespaces the per-session viewed sets in Redis
const viewedKeyPrefix = "popularity:viewed:"

type redisViewedSet struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisViewedSet creates a ViewedSet backed by a Redis set per session.
// ttl bounds the session lifetime; it is refreshed on every MarkViewed.
func NewRedisViewedSet(client *redis.Client, ttl time.Duration) ViewedSet {
	return &redisViewedSet{
		client: client,
		ttl:    ttl,
	}
}

// IsViewed reports whether the session has already viewed the product
func (s *redisViewedSet) IsViewed(ctx context.Context, sessionID string, productID int64) (bool, error) {
	viewed, err := s.client.SIsMember(ctx, viewedKey(sessionID), member(productID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check viewed set: %w", err)
	}
	return viewed, nil
}

// MarkViewed records the product as viewed and refreshes the session TTL
func (s *redisViewedSet) MarkViewed(ctx context.Context, sessionID string, productID int64) error {
	key := viewedKey(sessionID)

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, member(productID))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark viewed: %w", err)
	}
	return nil
}

// MarkNotViewed removes the product from the session's viewed set
func (s *redisViewedSet) MarkNotViewed(ctx context.Context, sessionID string, productID int64) error {
	if err := s.client.SRem(ctx, viewedKey(sessionID), member(productID)).Err(); err != nil {
		return fmt.Errorf("failed to mark not viewed: %w", err)
	}
	return nil
}

func viewedKey(sessionID string) string {
	return viewedKeyPrefix + sessionID
}

func member(productID int64) string {
	return strconv.FormatInt(productID, 10)
}
