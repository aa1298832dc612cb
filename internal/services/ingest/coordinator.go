// Package ingest coordinates chunked media uploads: quota reservation, the
// media catalog, the object store's multipart protocol and the ephemeral
// upload session. File bytes never pass through it.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/princekumarofficial/course-media-service/internal/config"
	"github.com/princekumarofficial/course-media-service/internal/events"
	"github.com/princekumarofficial/course-media-service/internal/metrics"
	"github.com/princekumarofficial/course-media-service/internal/services/objectstore"
	"github.com/princekumarofficial/course-media-service/internal/storage"
	"github.com/princekumarofficial/course-media-service/internal/types"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
	"github.com/princekumarofficial/course-media-service/internal/types/quota"
)

const (
	DefaultChunkSize = 10 << 20
	MaxParts         = 10000

	defaultPartURLTTL   = time.Hour
	defaultAccessTTL    = 60 * time.Minute
	maxAccessTTL        = 7 * 24 * time.Hour
	compensationTimeout = 10 * time.Second
	touchTimeout        = 5 * time.Second
)

// QuotaLedger is satisfied by *quota.Ledger and *cache.QuotaCache
type QuotaLedger interface {
	HasEnough(ctx context.Context, tenantID string, class quota.Class, bytes int64) (bool, error)
	Reserve(ctx context.Context, tenantID string, class quota.Class, bytes int64) error
	Adjust(ctx context.Context, tenantID string, class quota.Class, delta int64) error
}

// ObjectStore is satisfied by *objectstore.Gateway
type ObjectStore interface {
	InitiateMultipartUpload(ctx context.Context, key, contentType string) (string, error)
	BatchPresignPartURLs(ctx context.Context, uploadID, key string, first, last int, ttl time.Duration) ([]media.PartURL, error)
	PresignPartURLs(ctx context.Context, uploadID, key string, partNumbers []int, ttl time.Duration) ([]media.PartURL, error)
	CompleteMultipartUpload(ctx context.Context, uploadID, key string, parts []media.Part) (*objectstore.CompletedUpload, error)
	AbortMultipartUpload(ctx context.Context, uploadID, key string) error
	ListUploadedParts(ctx context.Context, uploadID, key string) ([]objectstore.UploadedPart, error)
	PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) (bool, error)
}

// SessionStore is satisfied by *cache.SessionStore
type SessionStore interface {
	Put(ctx context.Context, session *media.UploadSession, ttl time.Duration) error
	Get(ctx context.Context, mediaID string) (*media.UploadSession, error)
	Delete(ctx context.Context, mediaID string) (bool, error)
	Touch(ctx context.Context, session *media.UploadSession, at time.Time) error
}

// Catalog persists media records. Quota adjustments made with a context
// passed to WithTx commit or roll back together with the catalog change.
type Catalog interface {
	storage.MediaRepository
	storage.Transactor
}

// Config holds the upload tunables
type Config struct {
	DefaultChunkSize int64
	MinChunkSize     int64
	MaxParts         int
	PartURLTTL       time.Duration
	SessionTTL       time.Duration
	DefaultAccessTTL time.Duration
	MaxAccessTTL     time.Duration
}

// ConfigFrom converts the media section of the service config
func ConfigFrom(cfg config.Media) Config {
	return Config{
		DefaultChunkSize: cfg.DefaultChunkSize,
		MinChunkSize:     cfg.MinChunkSize,
		MaxParts:         cfg.MaxParts,
		PartURLTTL:       cfg.PartURLTTL,
		SessionTTL:       cfg.SessionTTL,
		DefaultAccessTTL: cfg.DefaultAccessTTL,
		MaxAccessTTL:     cfg.MaxAccessTTL,
	}
}

func (c Config) withDefaults() Config {
	if c.DefaultChunkSize <= 0 {
		c.DefaultChunkSize = DefaultChunkSize
	}
	if c.MaxParts <= 0 || c.MaxParts > MaxParts {
		c.MaxParts = MaxParts
	}
	if c.PartURLTTL <= 0 {
		c.PartURLTTL = defaultPartURLTTL
	}
	if c.DefaultAccessTTL <= 0 {
		c.DefaultAccessTTL = defaultAccessTTL
	}
	if c.MaxAccessTTL <= 0 {
		c.MaxAccessTTL = maxAccessTTL
	}
	return c
}

type Deps struct {
	Catalog  Catalog
	Quota    QuotaLedger
	Store    ObjectStore
	Sessions SessionStore
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Clock    func() time.Time
	Config   Config
}

type Coordinator struct {
	catalog  Catalog
	quota    QuotaLedger
	store    ObjectStore
	sessions SessionStore
	events   events.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	cfg      Config

	// background best-effort work, drained by Wait
	bg sync.WaitGroup
}

func New(deps Deps) *Coordinator {
	c := &Coordinator{
		catalog:  deps.Catalog,
		quota:    deps.Quota,
		store:    deps.Store,
		sessions: deps.Sessions,
		events:   deps.Events,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Clock,
		cfg:      deps.Config.withDefaults(),
	}
	if c.events == nil {
		c.events = events.Discard{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.logger = c.logger.With(slog.String("component", "ingest"))
	return c
}

// Wait blocks until background last-access updates have finished
func (c *Coordinator) Wait() {
	c.bg.Wait()
}

// loadMedia fetches a tenant-scoped record; other tenants' media is NotFound
func (c *Coordinator) loadMedia(ctx context.Context, mediaID, tenantID string) (*media.Record, error) {
	if mediaID == "" || tenantID == "" {
		return nil, media.ErrNotFound
	}
	return c.catalog.GetMedia(ctx, mediaID, tenantID)
}

// loadSession returns the session only if it belongs to rec
func (c *Coordinator) loadSession(ctx context.Context, rec *media.Record) (*media.UploadSession, error) {
	session, err := c.sessions.Get(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if session.TenantID != rec.TenantID || session.ObjectKey != rec.StorageKey {
		return nil, media.ErrNotFound
	}
	return session, nil
}

// usageCache is implemented by quota ledgers that cache usage reports
type usageCache interface {
	InvalidateUsage(ctx context.Context, tenantID string)
}

// release returns bytes to class and removes the record atomically. The
// record's existence is what proves the release is still owed.
func (c *Coordinator) release(ctx context.Context, rec *media.Record, bytes int64) error {
	class := media.QuotaClassFor(rec.Type)
	err := c.catalog.WithTx(ctx, func(ctx context.Context) error {
		if err := c.catalog.DeleteMedia(ctx, rec.ID, rec.TenantID); err != nil {
			return err
		}
		return c.quota.Adjust(ctx, rec.TenantID, class, -bytes)
	})
	if err != nil {
		return err
	}
	// cached reports read between the adjust and the commit are stale
	if uc, ok := c.quota.(usageCache); ok {
		uc.InvalidateUsage(ctx, rec.TenantID)
	}
	c.metrics.Released(string(class), bytes)
	return nil
}

func (c *Coordinator) publish(rec *media.Record, eventType types.EventType, size int64, reason string) {
	err := c.events.PublishUploadEvent(rec.UploaderID, eventType, &types.UploadEvent{
		MediaID:   rec.ID,
		TenantID:  rec.TenantID,
		Status:    string(rec.Status),
		SizeBytes: size,
		Reason:    reason,
	})
	if err != nil {
		c.logger.Warn("Failed to publish upload event",
			slog.String("media_id", rec.ID),
			slog.String("event", string(eventType)),
			slog.String("error", err.Error()))
	}
}

func (c *Coordinator) storeFailed(op string, err error) {
	if errors.Is(err, media.ErrStoreUnavailable) {
		c.metrics.StoreError(op)
	}
}
