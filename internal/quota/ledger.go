// Package quota implements per-tenant storage accounting on top of an atomic
// counter store. Every change to a VIDEO or DOCUMENT allowance is mirrored
// onto the tenant's TOTAL allowance in the same transaction.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/princekumarofficial/course-media-service/internal/storage"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
	"github.com/princekumarofficial/course-media-service/internal/types/quota"
)

type Ledger struct {
	store  storage.QuotaRepository
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Ledger)

// WithClock overrides time.Now, used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func NewLedger(store storage.QuotaRepository, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(slog.String("component", "quota-ledger"))
	return l
}

// cascade returns the classes a mutation to class must touch, class first
func cascade(class quota.Class) []quota.Class {
	if class == quota.ClassTotal {
		return []quota.Class{quota.ClassTotal}
	}
	return []quota.Class{class, quota.ClassTotal}
}

// HasEnough reports whether the tenant can still store bytes under class.
// A missing or expired allowance has no room.
func (l *Ledger) HasEnough(ctx context.Context, tenantID string, class quota.Class, bytes int64) (bool, error) {
	rec, err := l.store.GetQuota(ctx, tenantID, class)
	if errors.Is(err, media.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if rec.Expired(l.now()) {
		return false, nil
	}
	return rec.TotalBytes-rec.UsedBytes >= bytes, nil
}

// Adjust atomically adds delta to used bytes for class (and TOTAL), clamping at zero
func (l *Ledger) Adjust(ctx context.Context, tenantID string, class quota.Class, delta int64) error {
	if delta == 0 {
		return nil
	}
	if err := l.store.AddUsed(ctx, tenantID, cascade(class), delta); err != nil {
		return fmt.Errorf("adjust quota %s/%s by %d: %w", tenantID, class, delta, err)
	}

	l.logger.Debug("Quota adjusted",
		slog.String("tenant_id", tenantID),
		slog.String("quota_class", string(class)),
		slog.Int64("delta_bytes", delta))
	return nil
}

// Reserve is Adjust(+bytes) guarded by the same condition as HasEnough,
// evaluated atomically by the store. It fails with media.ErrQuotaExceeded
// and changes nothing when the guard does not hold.
func (l *Ledger) Reserve(ctx context.Context, tenantID string, class quota.Class, bytes int64) error {
	cls := cascade(class)
	ok, err := l.store.ReserveUsed(ctx, tenantID, cls[0], cls[1:], bytes, l.now())
	if err != nil {
		return fmt.Errorf("reserve quota %s/%s: %w", tenantID, class, err)
	}
	if !ok {
		return fmt.Errorf("%s needs %d bytes: %w", class, bytes, media.ErrQuotaExceeded)
	}
	return nil
}

// SetQuota upserts the allowance for (tenant, class); repeated calls converge
func (l *Ledger) SetQuota(ctx context.Context, tenantID string, class quota.Class, totalBytes int64, expiresAt time.Time) error {
	if totalBytes < 0 {
		return fmt.Errorf("total bytes must not be negative: %w", media.ErrInvalidRequest)
	}

	return l.store.UpsertQuota(ctx, quota.Record{
		TenantID:   tenantID,
		Class:      class,
		TotalBytes: totalBytes,
		ExpiresAt:  expiresAt,
	})
}

// Usage lists every allowance of the tenant
func (l *Ledger) Usage(ctx context.Context, tenantID string) ([]quota.Record, error) {
	return l.store.ListQuotas(ctx, tenantID)
}
