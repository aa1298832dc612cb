package cache

import (
	"context"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/course-media-service/internal/utils/response"
)

// CacheStats represents cache and session-store statistics
type CacheStats struct {
	RedisConnected bool     `json:"redis_connected"`
	ActiveSessions int      `json:"active_upload_sessions"`
	CachedUsage    int      `json:"cached_quota_reports"`
	RateLimitKeys  int      `json:"rate_limit_buckets"`
	CacheKeys      []string `json:"cache_keys_sample"`
	KeyCount       int      `json:"total_keys"`
}

// clearable maps the ?type= values of ClearCache to key patterns. Upload
// sessions are never cleared here.
var clearable = map[string][]string{
	"quota":     {"quota:usage:*"},
	"ratelimit": {"rate_limit:*"},
	"all":       {"quota:usage:*", "rate_limit:*"},
}

func countKeys(ctx context.Context, redisClient *redis.Client, pattern string) ([]string, int, error) {
	var (
		cursor uint64
		sample []string
		total  int
	)
	for {
		keys, next, err := redisClient.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, 0, err
		}
		total += len(keys)
		for _, k := range keys {
			if len(sample) < 10 {
				sample = append(sample, k)
			}
		}
		if next == 0 {
			return sample, total, nil
		}
		cursor = next
	}
}

// GetCacheStats returns cache performance statistics
func GetCacheStats(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		stats := CacheStats{RedisConnected: true}

		// Test Redis connection
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			stats.RedisConnected = false
			response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache stats retrieved", stats))
			return
		}

		sample, sessions, err := countKeys(ctx, redisClient, "upload:session:*")
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		stats.ActiveSessions = sessions
		stats.CacheKeys = sample

		if _, n, err := countKeys(ctx, redisClient, "quota:usage:*"); err == nil {
			stats.CachedUsage = n
		}
		if _, n, err := countKeys(ctx, redisClient, "rate_limit:*"); err == nil {
			stats.RateLimitKeys = n
		}

		// Get total key count
		dbSize := redisClient.DBSize(ctx)
		if dbSize.Err() == nil {
			stats.KeyCount = int(dbSize.Val())
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache stats retrieved", stats))
	}
}

// ClearCache endpoint for administrative purposes
func ClearCache(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cacheType := r.URL.Query().Get("type")
		if cacheType == "" {
			cacheType = "quota"
		}
		patterns, ok := clearable[cacheType]
		if !ok {
			response.WriteJSON(w, http.StatusBadRequest, response.Response{
				Status: response.StatusError,
				Error:  "unknown cache type: " + cacheType,
			})
			return
		}

		var deleted int64
		for _, pattern := range patterns {
			keys := redisClient.Keys(ctx, pattern)
			if keys.Err() != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(keys.Err()))
				return
			}
			if len(keys.Val()) == 0 {
				continue
			}

			n, err := redisClient.Del(ctx, keys.Val()...).Result()
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
				return
			}
			deleted += n
		}

		result := map[string]interface{}{
			"type":         cacheType,
			"patterns":     patterns,
			"deleted_keys": deleted,
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache cleared successfully", result))
	}
}
