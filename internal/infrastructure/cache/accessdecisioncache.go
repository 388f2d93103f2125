package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/shared/biztime"
	"github.com/secforge/billing/internal/shared/logger"
)

const (
	accessDecisionPrefix = "access:decision:"
	accessUserPrefix     = "access:user:"
	// DefaultAccessDecisionTTL applies when no TTL is configured.
	DefaultAccessDecisionTTL = 60 * time.Second
)

// RedisAccessDecisionCache stores decisions in one hash per content item,
// one field per user. A per-user set of hash keys lets a grant change drop
// every cached decision for that user. The hash TTL is refreshed by every
// write, so each field carries its own expiry and stale fields read as misses.
//
// Read and write failures are logged and treated as misses.
type RedisAccessDecisionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Interface
}

func NewRedisAccessDecisionCache(client *redis.Client, ttl time.Duration, logger logger.Interface) *RedisAccessDecisionCache {
	if ttl <= 0 {
		ttl = DefaultAccessDecisionTTL
	}
	return &RedisAccessDecisionCache{client: client, ttl: ttl, logger: logger}
}

// cachedDecision is the stored hash field value.
type cachedDecision struct {
	Decision  access.Decision `json:"decision"`
	ExpiresAt int64           `json:"expires_at"`
}

func (c *RedisAccessDecisionCache) decisionKey(contentType, contentID string) string {
	return fmt.Sprintf("%s%s:%s", accessDecisionPrefix, contentType, contentID)
}

func (c *RedisAccessDecisionCache) userKey(userID string) string {
	return accessUserPrefix + userID
}

func (c *RedisAccessDecisionCache) Get(ctx context.Context, contentType, contentID, userID string) (*access.Decision, bool) {
	raw, err := c.client.HGet(ctx, c.decisionKey(contentType, contentID), userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnw("access decision cache read failed", "content_type", contentType, "content_id", contentID, "error", err)
		}
		return nil, false
	}
	var entry cachedDecision
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warnw("discarding malformed cached decision", "content_type", contentType, "content_id", contentID, "error", err)
		return nil, false
	}
	if biztime.NowUTC().UnixMilli() >= entry.ExpiresAt {
		c.client.HDel(ctx, c.decisionKey(contentType, contentID), userID)
		return nil, false
	}
	return &entry.Decision, true
}

func (c *RedisAccessDecisionCache) Set(ctx context.Context, contentType, contentID, userID string, d access.Decision) {
	entry := cachedDecision{Decision: d, ExpiresAt: biztime.NowUTC().Add(c.ttl).UnixMilli()}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	key := c.decisionKey(contentType, contentID)
	uKey := c.userKey(userID)

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, userID, raw)
	pipe.Expire(ctx, key, c.ttl)
	pipe.SAdd(ctx, uKey, key)
	pipe.Expire(ctx, uKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warnw("access decision cache write failed", "content_type", contentType, "content_id", contentID, "error", err)
	}
}

// Invalidate drops the decisions of every user for one content item.
func (c *RedisAccessDecisionCache) Invalidate(ctx context.Context, contentType, contentID string) error {
	if err := c.client.Del(ctx, c.decisionKey(contentType, contentID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate access decisions: %w", err)
	}
	return nil
}

// InvalidateUser drops every cached decision of one user.
func (c *RedisAccessDecisionCache) InvalidateUser(ctx context.Context, userID string) error {
	uKey := c.userKey(userID)
	keys, err := c.client.SMembers(ctx, uKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list cached decisions for user: %w", err)
	}

	pipe := c.client.TxPipeline()
	for _, key := range keys {
		pipe.HDel(ctx, key, userID)
	}
	pipe.Del(ctx, uKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate user decisions: %w", err)
	}
	return nil
}

// NoopAccessDecisionCache disables caching.
type NoopAccessDecisionCache struct{}

func (NoopAccessDecisionCache) Get(context.Context, string, string, string) (*access.Decision, bool) {
	return nil, false
}
func (NoopAccessDecisionCache) Set(context.Context, string, string, string, access.Decision) {}
func (NoopAccessDecisionCache) Invalidate(context.Context, string, string) error            { return nil }
func (NoopAccessDecisionCache) InvalidateUser(context.Context, string) error                { return nil }

var (
	_ access.DecisionCache = (*RedisAccessDecisionCache)(nil)
	_ access.DecisionCache = NoopAccessDecisionCache{}
)
