package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/princekumarofficial/course-media-service/internal/types/media"
	"github.com/princekumarofficial/course-media-service/internal/types/quota"
)

func (p *Postgres) GetQuota(ctx context.Context, tenantID string, class quota.Class) (*quota.Record, error) {
	query := `
	SELECT tenant_id, quota_class, total_bytes, used_bytes, expires_at
	FROM storage_quotas
	WHERE tenant_id = $1 AND quota_class = $2
	`

	var rec quota.Record
	err := p.conn(ctx).QueryRowContext(ctx, query, tenantID, class).Scan(
		&rec.TenantID, &rec.Class, &rec.TotalBytes, &rec.UsedBytes, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, media.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quota: %w", err)
	}
	return &rec, nil
}

func (p *Postgres) ListQuotas(ctx context.Context, tenantID string) ([]quota.Record, error) {
	query := `
	SELECT tenant_id, quota_class, total_bytes, used_bytes, expires_at
	FROM storage_quotas
	WHERE tenant_id = $1
	ORDER BY quota_class
	`

	rows, err := p.conn(ctx).QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotas: %w", err)
	}
	defer rows.Close()

	var records []quota.Record
	for rows.Next() {
		var rec quota.Record
		if err := rows.Scan(&rec.TenantID, &rec.Class, &rec.TotalBytes, &rec.UsedBytes, &rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan quota: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpsertQuota sets the allowance and expiry, leaving used_bytes untouched on update
func (p *Postgres) UpsertQuota(ctx context.Context, rec quota.Record) error {
	query := `
	INSERT INTO storage_quotas (tenant_id, quota_class, total_bytes, used_bytes, expires_at)
	VALUES ($1, $2, $3, 0, $4)
	ON CONFLICT (tenant_id, quota_class)
	DO UPDATE SET total_bytes = EXCLUDED.total_bytes, expires_at = EXCLUDED.expires_at, updated_at = NOW()
	`

	if _, err := p.conn(ctx).ExecContext(ctx, query, rec.TenantID, rec.Class, rec.TotalBytes, rec.ExpiresAt); err != nil {
		return fmt.Errorf("failed to upsert quota: %w", err)
	}
	return nil
}

// AddUsed applies delta to every listed class in order, clamping at zero.
// Classes without a row are skipped.
func (p *Postgres) AddUsed(ctx context.Context, tenantID string, classes []quota.Class, delta int64) error {
	query := `
	UPDATE storage_quotas
	SET used_bytes = GREATEST(used_bytes + $3, 0), updated_at = NOW()
	WHERE tenant_id = $1 AND quota_class = $2
	`

	return p.WithTx(ctx, func(ctx context.Context) error {
		for _, class := range classes {
			if _, err := p.conn(ctx).ExecContext(ctx, query, tenantID, class, delta); err != nil {
				return fmt.Errorf("failed to adjust %s quota: %w", class, err)
			}
		}
		return nil
	})
}

// ReserveUsed increments the guarded class only if it is unexpired and has
// room, then applies the same increment to the cascade classes. It reports
// false, with nothing changed, when the guard fails.
func (p *Postgres) ReserveUsed(ctx context.Context, tenantID string, guarded quota.Class, cascade []quota.Class, bytes int64, now time.Time) (bool, error) {
	guardedQuery := `
	UPDATE storage_quotas
	SET used_bytes = used_bytes + $3, updated_at = NOW()
	WHERE tenant_id = $1 AND quota_class = $2
		AND expires_at >= $4
		AND total_bytes - used_bytes >= $3
	`

	reserved := false
	err := p.WithTx(ctx, func(ctx context.Context) error {
		result, err := p.conn(ctx).ExecContext(ctx, guardedQuery, tenantID, guarded, bytes, now)
		if err != nil {
			return fmt.Errorf("failed to reserve %s quota: %w", guarded, err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return nil
		}

		if err := p.AddUsed(ctx, tenantID, cascade, bytes); err != nil {
			return err
		}
		reserved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reserved, nil
}
