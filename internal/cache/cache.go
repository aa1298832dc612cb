package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/course-media-service/internal/quota"
	quotatypes "github.com/princekumarofficial/course-media-service/internal/types/quota"
)

// QuotaCache wraps the ledger with a Redis read-through cache of tenant usage.
// Decisions (HasEnough, Reserve) always go to the ledger; only the Usage
// report is served from cache, and every mutation invalidates it.
type QuotaCache struct {
	ledger *quota.Ledger
	redis  *redis.Client
	logger *slog.Logger
}

// NewQuotaCache creates a new cached ledger
func NewQuotaCache(ledger *quota.Ledger, redisClient *redis.Client, logger *slog.Logger) *QuotaCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuotaCache{
		ledger: ledger,
		redis:  redisClient,
		logger: logger,
	}
}

// Usage returns cached allowances or fetches them from the ledger
func (c *QuotaCache) Usage(ctx context.Context, tenantID string) ([]quotatypes.Record, error) {
	key := fmt.Sprintf(QuotaUsageKey, tenantID)

	// Try cache first
	cached, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var records []quotatypes.Record
		if err := json.Unmarshal(cached, &records); err == nil {
			return records, nil
		}
	}

	records, err := c.ledger.Usage(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(records)
	c.redis.Set(ctx, key, data, QuotaUsageDuration)

	return records, nil
}

func (c *QuotaCache) HasEnough(ctx context.Context, tenantID string, class quotatypes.Class, bytes int64) (bool, error) {
	return c.ledger.HasEnough(ctx, tenantID, class, bytes)
}

func (c *QuotaCache) Adjust(ctx context.Context, tenantID string, class quotatypes.Class, delta int64) error {
	if err := c.ledger.Adjust(ctx, tenantID, class, delta); err != nil {
		return err
	}
	c.InvalidateUsage(ctx, tenantID)
	return nil
}

func (c *QuotaCache) Reserve(ctx context.Context, tenantID string, class quotatypes.Class, bytes int64) error {
	if err := c.ledger.Reserve(ctx, tenantID, class, bytes); err != nil {
		return err
	}
	c.InvalidateUsage(ctx, tenantID)
	return nil
}

func (c *QuotaCache) SetQuota(ctx context.Context, tenantID string, class quotatypes.Class, totalBytes int64, expiresAt time.Time) error {
	if err := c.ledger.SetQuota(ctx, tenantID, class, totalBytes, expiresAt); err != nil {
		return err
	}
	c.InvalidateUsage(ctx, tenantID)
	return nil
}

// InvalidateUsage drops the cached usage report. Failures are logged and ignored.
func (c *QuotaCache) InvalidateUsage(ctx context.Context, tenantID string) {
	if err := c.redis.Del(ctx, fmt.Sprintf(QuotaUsageKey, tenantID)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate quota usage cache",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
	}
}
