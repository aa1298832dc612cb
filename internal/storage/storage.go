package storage

import (
	"context"
	"time"

	"github.com/princekumarofficial/course-media-service/internal/types/media"
	"github.com/princekumarofficial/course-media-service/internal/types/quota"
)

// MediaRepository persists the media catalog. Lookups are always scoped to a
// tenant and report media.ErrNotFound for rows owned by someone else.
type MediaRepository interface {
	CreateMedia(ctx context.Context, rec *media.Record) error
	GetMedia(ctx context.Context, mediaID, tenantID string) (*media.Record, error)
	MarkCompleted(ctx context.Context, mediaID, tenantID string, actualSize int64) error
	MarkFailed(ctx context.Context, mediaID, tenantID string) error
	DeleteMedia(ctx context.Context, mediaID, tenantID string) error
	TouchLastAccess(ctx context.Context, mediaID, tenantID string, at time.Time) error
	// ListMediaByStatus returns matches oldest first; a limit <= 0 returns all
	ListMediaByStatus(ctx context.Context, statuses []media.Status, uploadedBefore time.Time, limit int) ([]media.Record, error)
}

// QuotaRepository persists per-tenant allowances. Counter mutations are single
// UPDATE statements so concurrent callers never lose an increment.
type QuotaRepository interface {
	GetQuota(ctx context.Context, tenantID string, class quota.Class) (*quota.Record, error)
	ListQuotas(ctx context.Context, tenantID string) ([]quota.Record, error)
	UpsertQuota(ctx context.Context, rec quota.Record) error
	AddUsed(ctx context.Context, tenantID string, classes []quota.Class, delta int64) error
	ReserveUsed(ctx context.Context, tenantID string, guarded quota.Class, cascade []quota.Class, bytes int64, now time.Time) (bool, error)
}

// Transactor runs fn inside one database transaction. Repository calls made
// with the context passed to fn join that transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Storage interface {
	MediaRepository
	QuotaRepository
	Transactor
}
