package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
)

const mediaColumns = `id, tenant_id, title, media_type, declared_size_bytes, actual_size_bytes,
	original_filename, storage_key, status, uploader_id, upload_time, last_access_time`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMedia(row rowScanner) (*media.Record, error) {
	var rec media.Record
	var lastAccess sql.NullTime

	err := row.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.Title,
		&rec.Type,
		&rec.DeclaredSize,
		&rec.ActualSize,
		&rec.OriginalFilename,
		&rec.StorageKey,
		&rec.Status,
		&rec.UploaderID,
		&rec.UploadTime,
		&lastAccess,
	)
	if err != nil {
		return nil, err
	}

	if lastAccess.Valid {
		t := lastAccess.Time
		rec.LastAccessTime = &t
	}
	return &rec, nil
}

func (p *Postgres) CreateMedia(ctx context.Context, rec *media.Record) error {
	query := `
	INSERT INTO media_records (id, tenant_id, title, media_type, declared_size_bytes, actual_size_bytes,
		original_filename, storage_key, status, uploader_id, upload_time)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := p.conn(ctx).ExecContext(ctx, query,
		rec.ID,
		rec.TenantID,
		rec.Title,
		rec.Type,
		rec.DeclaredSize,
		rec.ActualSize,
		rec.OriginalFilename,
		rec.StorageKey,
		rec.Status,
		rec.UploaderID,
		rec.UploadTime,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("media %s: %w", rec.ID, media.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert media record: %w", err)
	}
	return nil
}

func (p *Postgres) GetMedia(ctx context.Context, mediaID, tenantID string) (*media.Record, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_records WHERE id = $1 AND tenant_id = $2`

	rec, err := scanMedia(p.conn(ctx).QueryRowContext(ctx, query, mediaID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, media.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media record: %w", err)
	}
	return rec, nil
}

// MarkCompleted transitions UPLOADING -> COMPLETED. Any other current state
// reports media.ErrConflict.
func (p *Postgres) MarkCompleted(ctx context.Context, mediaID, tenantID string, actualSize int64) error {
	query := `
	UPDATE media_records
	SET status = $3, actual_size_bytes = $4
	WHERE id = $1 AND tenant_id = $2 AND status = $5
	`
	return p.transition(ctx, query, mediaID, tenantID, media.StatusCompleted, actualSize, media.StatusUploading)
}

func (p *Postgres) MarkFailed(ctx context.Context, mediaID, tenantID string) error {
	query := `
	UPDATE media_records
	SET status = $3
	WHERE id = $1 AND tenant_id = $2 AND status = $4
	`
	return p.transition(ctx, query, mediaID, tenantID, media.StatusFailed, media.StatusUploading)
}

func (p *Postgres) transition(ctx context.Context, query string, args ...interface{}) error {
	result, err := p.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update media status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update media status: %w", err)
	}
	if rows == 0 {
		return media.ErrConflict
	}
	return nil
}

func (p *Postgres) DeleteMedia(ctx context.Context, mediaID, tenantID string) error {
	result, err := p.conn(ctx).ExecContext(ctx,
		`DELETE FROM media_records WHERE id = $1 AND tenant_id = $2`, mediaID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete media record: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return media.ErrNotFound
	}
	return nil
}

func (p *Postgres) TouchLastAccess(ctx context.Context, mediaID, tenantID string, at time.Time) error {
	_, err := p.conn(ctx).ExecContext(ctx,
		`UPDATE media_records SET last_access_time = $3 WHERE id = $1 AND tenant_id = $2`,
		mediaID, tenantID, at)
	return err
}

func (p *Postgres) ListMediaByStatus(ctx context.Context, statuses []media.Status, uploadedBefore time.Time, limit int) ([]media.Record, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `SELECT ` + mediaColumns + `
	FROM media_records
	WHERE status = ANY($1) AND upload_time < $2
	ORDER BY upload_time ASC
	LIMIT $3`

	// LIMIT NULL is LIMIT ALL
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := p.conn(ctx).QueryContext(ctx, query, pq.Array(names), uploadedBefore, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list media records: %w", err)
	}
	defer rows.Close()

	var records []media.Record
	for rows.Next() {
		rec, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media record: %w", err)
		}
		records = append(records, *rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return records, nil
}
