package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/course-media-service/internal/quota"
	"github.com/princekumarofficial/course-media-service/internal/storage/memory"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
	quotatypes "github.com/princekumarofficial/course-media-service/internal/types/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	require.NoError(t, redisClient.Ping(context.Background()).Err())
	return redisClient, mr
}

func testSession(id string) *media.UploadSession {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &media.UploadSession{
		MediaID:         id,
		TenantID:        "tenant-a",
		UploaderID:      "uploader-1",
		BackendUploadID: "backend-up-1",
		ObjectKey:       "video/tenant-a/" + id + "/lecture.mp4",
		ContentType:     "video/mp4",
		DeclaredSize:    400,
		ChunkSize:       100,
		TotalParts:      4,
		InitiatedAt:     now,
		LastUpdatedAt:   now,
	}
}

func TestSessionStore_PutGetDelete(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	store := NewSessionStore(redisClient, 0)
	ctx := context.Background()

	session := testSession("m-1")
	require.NoError(t, store.Put(ctx, session, 0))

	got, err := store.Get(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, session.BackendUploadID, got.BackendUploadID)
	assert.Equal(t, 4, got.TotalParts)
	assert.True(t, got.InitiatedAt.Equal(session.InitiatedAt))

	assert.Equal(t, DefaultSessionDuration, mr.TTL("upload:session:m-1"))

	removed, err := store.Delete(ctx, "m-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "m-1")
	require.NoError(t, err, "delete is idempotent")
	assert.False(t, removed)

	_, err = store.Get(ctx, "m-1")
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestSessionStore_ExpiryIsNotFound(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	store := NewSessionStore(redisClient, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testSession("m-2"), 10*time.Minute))
	mr.FastForward(11 * time.Minute)

	_, err := store.Get(ctx, "m-2")
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestSessionStore_TouchKeepsTTL(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	store := NewSessionStore(redisClient, time.Hour)
	ctx := context.Background()

	session := testSession("m-3")
	require.NoError(t, store.Put(ctx, session, 0))
	mr.FastForward(20 * time.Minute)

	later := session.InitiatedAt.Add(20 * time.Minute)
	require.NoError(t, store.Touch(ctx, session, later))

	got, err := store.Get(ctx, "m-3")
	require.NoError(t, err)
	assert.True(t, got.LastUpdatedAt.Equal(later))
	assert.Equal(t, 40*time.Minute, mr.TTL("upload:session:m-3"))

	err = store.Touch(ctx, testSession("missing"), later)
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestSessionStore_PutRequiresMediaID(t *testing.T) {
	redisClient, _ := setupTestRedis(t)
	store := NewSessionStore(redisClient, 0)

	err := store.Put(context.Background(), &media.UploadSession{}, 0)
	assert.ErrorIs(t, err, media.ErrInvalidRequest)
}

func TestQuotaCache_UsageIsInvalidatedOnMutation(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	ledger := quota.NewLedger(memory.New())
	qc := NewQuotaCache(ledger, redisClient, nil)
	ctx := context.Background()

	require.NoError(t, qc.SetQuota(ctx, "tenant-a", quotatypes.ClassVideo, 1000, time.Now().Add(time.Hour)))
	require.NoError(t, qc.SetQuota(ctx, "tenant-a", quotatypes.ClassTotal, 1000, time.Now().Add(time.Hour)))

	records, err := qc.Usage(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, mr.Exists("quota:usage:tenant-a"))

	require.NoError(t, qc.Reserve(ctx, "tenant-a", quotatypes.ClassVideo, 400))
	assert.False(t, mr.Exists("quota:usage:tenant-a"))

	records, err = qc.Usage(ctx, "tenant-a")
	require.NoError(t, err)
	for _, rec := range records {
		assert.Equal(t, int64(400), rec.UsedBytes, rec.Class)
	}

	require.NoError(t, qc.Adjust(ctx, "tenant-a", quotatypes.ClassVideo, -400))
	assert.False(t, mr.Exists("quota:usage:tenant-a"))

	ok, err := qc.HasEnough(ctx, "tenant-a", quotatypes.ClassVideo, 1000)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClearCache_KeepsSessions(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, NewSessionStore(redisClient, 0).Put(ctx, testSession("m-4"), 0))
	mr.Set("quota:usage:tenant-a", "[]")
	mr.Set("rate_limit:tenant-a:initiate", "x")

	req := httptest.NewRequest(http.MethodDelete, "/admin/cache?type=all", nil)
	rec := httptest.NewRecorder()
	ClearCache(redisClient).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, mr.Exists("quota:usage:tenant-a"))
	assert.False(t, mr.Exists("rate_limit:tenant-a:initiate"))
	assert.True(t, mr.Exists("upload:session:m-4"))

	req = httptest.NewRequest(http.MethodDelete, "/admin/cache?type=sessions", nil)
	rec = httptest.NewRecorder()
	ClearCache(redisClient).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCacheStats(t *testing.T) {
	redisClient, _ := setupTestRedis(t)
	store := NewSessionStore(redisClient, 0)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testSession("m-5"), 0))
	require.NoError(t, store.Put(ctx, testSession("m-6"), 0))

	rec := httptest.NewRecorder()
	GetCacheStats(redisClient).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data CacheStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.RedisConnected)
	assert.Equal(t, 2, body.Data.ActiveSessions)
	assert.Equal(t, 2, body.Data.KeyCount)
}
