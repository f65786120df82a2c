package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// CachedSlotSummary holds the per-code slot occupancy served by the summary
// endpoint. The value is advisory; claims always recount inside the
// transaction.
type CachedSlotSummary struct {
	MaxDevices    int
	ActiveDevices int
	PlanType      string
	Expired       bool
	NotFound      bool // Null marker: code confirmed absent in DB
}

// SlotSummaryCache defines the interface for code slot summary caching
type SlotSummaryCache interface {
	GetSummary(ctx context.Context, code string) (*CachedSlotSummary, error)
	SetSummary(ctx context.Context, code string, summary *CachedSlotSummary, ttl time.Duration) error
	InvalidateSummary(ctx context.Context, code string) error
	// SetNullMarker caches a short-lived marker indicating the code was not
	// found in DB, preventing repeated DB lookups (cache penetration protection).
	SetNullMarker(ctx context.Context, code string) error
}

const (
	summaryKeyPrefix = "entitlement:summary:"
	nullMarkerTTL    = 2 * time.Minute

	fieldMaxDevices    = "max_devices"
	fieldActiveDevices = "active_devices"
	fieldPlanType      = "plan_type"
	fieldExpired       = "expired"
	fieldNullMarker    = "_null"
)

// RedisSlotSummaryCache implements SlotSummaryCache using Redis Hash
type RedisSlotSummaryCache struct {
	client *redis.Client
	logger logger.Interface
}

// NewRedisSlotSummaryCache creates a new Redis-based slot summary cache
func NewRedisSlotSummaryCache(client *redis.Client, logger logger.Interface) *RedisSlotSummaryCache {
	return &RedisSlotSummaryCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisSlotSummaryCache) key(code string) string {
	return summaryKeyPrefix + code
}

// GetSummary retrieves a slot summary from cache
func (c *RedisSlotSummaryCache) GetSummary(ctx context.Context, code string) (*CachedSlotSummary, error) {
	key := c.key(code)

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get slot summary from cache: %w", err)
	}

	if len(result) == 0 {
		return nil, nil // Cache miss
	}

	// Detect null marker (anti-penetration)
	if result[fieldNullMarker] == "1" {
		return &CachedSlotSummary{NotFound: true}, nil
	}

	summary := &CachedSlotSummary{}

	if maxStr, ok := result[fieldMaxDevices]; ok {
		summary.MaxDevices, _ = strconv.Atoi(maxStr)
	}
	if activeStr, ok := result[fieldActiveDevices]; ok {
		summary.ActiveDevices, _ = strconv.Atoi(activeStr)
	}
	if planType, ok := result[fieldPlanType]; ok {
		summary.PlanType = planType
	}
	if expiredStr, ok := result[fieldExpired]; ok {
		summary.Expired = expiredStr == "1"
	}

	return summary, nil
}

// SetSummary stores a slot summary in cache
func (c *RedisSlotSummaryCache) SetSummary(ctx context.Context, code string, summary *CachedSlotSummary, ttl time.Duration) error {
	key := c.key(code)

	fields := map[string]interface{}{
		fieldMaxDevices:    summary.MaxDevices,
		fieldActiveDevices: summary.ActiveDevices,
		fieldPlanType:      summary.PlanType,
		fieldExpired:       boolToInt(summary.Expired),
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set slot summary in cache: %w", err)
	}

	c.logger.Debugw("slot summary cached",
		"code", code,
		"active_devices", summary.ActiveDevices,
		"max_devices", summary.MaxDevices,
	)

	return nil
}

// InvalidateSummary removes a slot summary from cache. Claims and releases
// call this after commit so readers never see a stale count for long.
func (c *RedisSlotSummaryCache) InvalidateSummary(ctx context.Context, code string) error {
	key := c.key(code)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate slot summary cache: %w", err)
	}

	c.logger.Debugw("slot summary cache invalidated", "code", code)

	return nil
}

// SetNullMarker stores a short-lived marker indicating that the code was not
// found in DB. This prevents cache penetration from repeated lookups of
// non-existent codes.
func (c *RedisSlotSummaryCache) SetNullMarker(ctx context.Context, code string) error {
	key := c.key(code)

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fieldNullMarker, "1")
	pipe.Expire(ctx, key, nullMarkerTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set null marker in cache: %w", err)
	}

	c.logger.Debugw("slot summary null marker set", "code", code, "ttl", nullMarkerTTL)

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
