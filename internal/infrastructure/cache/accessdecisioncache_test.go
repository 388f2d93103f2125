package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/shared/biztime"
	"github.com/secforge/billing/internal/shared/logger"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisAccessDecisionCache_SetGet(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	c := NewRedisAccessDecisionCache(client, time.Minute, logger.NewNopLogger())

	_, ok := c.Get(ctx, "lab", "x", "u1")
	assert.False(t, ok)

	want := access.Decision{Allow: false, Reason: access.ReasonUpgradeOrBuy, RequiredPlan: "pro", IndividualPrice: 49900, Currency: "INR"}
	c.Set(ctx, "lab", "x", "u1", want)

	got, ok := c.Get(ctx, "lab", "x", "u1")
	require.True(t, ok)
	assert.Equal(t, want, *got)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "lab", "x", "u1")
	assert.False(t, ok, "entry must expire with the TTL")
}

func TestRedisAccessDecisionCache_WritesByOtherUsersDoNotExtendEntries(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	c := NewRedisAccessDecisionCache(client, time.Minute, logger.NewNopLogger())

	now := time.Now().UTC()
	restore := biztime.SetNowFuncForTest(func() time.Time { return now })
	defer restore()
	advance := func(d time.Duration) {
		now = now.Add(d)
		mr.FastForward(d)
	}

	c.Set(ctx, "lab", "x", "u1", access.Decision{Allow: true, Reason: access.ReasonPlanOK})
	advance(50 * time.Second)
	c.Set(ctx, "lab", "x", "u2", access.Decision{Allow: false, Reason: access.ReasonUpgradeOrBuy})
	advance(20 * time.Second)

	_, ok := c.Get(ctx, "lab", "x", "u1")
	assert.False(t, ok, "u1 entry is older than the TTL")
	got, ok := c.Get(ctx, "lab", "x", "u2")
	require.True(t, ok)
	assert.Equal(t, access.ReasonUpgradeOrBuy, got.Reason)

	exists, err := client.HExists(ctx, "access:decision:lab:x", "u1").Result()
	require.NoError(t, err)
	assert.False(t, exists, "stale field is dropped on read")
}

func TestRedisAccessDecisionCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	client, _ := setupTestRedis(t)
	c := NewRedisAccessDecisionCache(client, time.Minute, logger.NewNopLogger())

	d := access.Decision{Allow: true, Reason: access.ReasonPlanOK}
	c.Set(ctx, "lab", "x", "u1", d)
	c.Set(ctx, "lab", "x", "u2", d)
	c.Set(ctx, "lab", "y", "u1", d)

	require.NoError(t, c.InvalidateUser(ctx, "u1"))
	_, ok := c.Get(ctx, "lab", "x", "u1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "lab", "y", "u1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "lab", "x", "u2")
	assert.True(t, ok, "other users keep their entries")

	require.NoError(t, c.Invalidate(ctx, "lab", "x"))
	_, ok = c.Get(ctx, "lab", "x", "u2")
	assert.False(t, ok)
}

func TestRedisAccessDecisionCache_UnavailableIsAMiss(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	c := NewRedisAccessDecisionCache(client, 0, logger.NewNopLogger())
	mr.Close()

	c.Set(ctx, "lab", "x", "u1", access.Decision{Allow: true})
	_, ok := c.Get(ctx, "lab", "x", "u1")
	assert.False(t, ok)
}
