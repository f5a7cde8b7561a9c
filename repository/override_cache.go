package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/amirphl/call-congress/models"
)

// overrideEntry memoizes both hits and misses
type overrideEntry struct {
	override *models.CampaignOverride
}

// RedisOverrideCache reads campaign overrides stored as JSON under
// <prefix>campaign:<id>. Lookups are memoized in process for localTTL.
type RedisOverrideCache struct {
	rc     *redis.Client
	prefix string
	local  *gocache.Cache
}

// NewRedisOverrideCache creates the cache; a nil client disables overrides.
// A zero localTTL disables the in-process memo.
func NewRedisOverrideCache(rc *redis.Client, prefix string, localTTL time.Duration) *RedisOverrideCache {
	c := &RedisOverrideCache{rc: rc, prefix: prefix}
	if localTTL > 0 {
		c.local = gocache.New(localTTL, 2*localTTL)
	}
	return c
}

// OverrideKey is the redis key for a campaign override
func (c *RedisOverrideCache) OverrideKey(campaignID string) string {
	return c.prefix + "campaign:" + campaignID
}

func (c *RedisOverrideCache) Get(ctx context.Context, campaignID string) (*models.CampaignOverride, error) {
	if c == nil || c.rc == nil {
		return nil, nil
	}

	key := c.OverrideKey(campaignID)
	if c.local != nil {
		if v, ok := c.local.Get(key); ok {
			return v.(overrideEntry).override, nil
		}
	}

	bs, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.remember(key, nil)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read override %s: %w", key, err)
	}

	var override models.CampaignOverride
	if err := json.Unmarshal(bs, &override); err != nil {
		return nil, fmt.Errorf("failed to decode override %s: %w", key, err)
	}
	c.remember(key, &override)
	return &override, nil
}

func (c *RedisOverrideCache) remember(key string, o *models.CampaignOverride) {
	if c.local != nil {
		c.local.Set(key, overrideEntry{override: o}, gocache.DefaultExpiration)
	}
}
