package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/princekumarofficial/course-media-service/internal/services/objectstore"
	"github.com/princekumarofficial/course-media-service/internal/types"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
)

// Upload describes a file a client intends to upload
type Upload struct {
	TenantID     string
	UploaderID   string
	Title        string
	Filename     string
	ContentType  string
	DeclaredSize int64
	ChunkSize    int64 // 0 selects the configured default
}

// InitiateResult is everything a client needs to start PUTting parts
type InitiateResult struct {
	MediaID          string          `json:"media_id"`
	UploadID         string          `json:"upload_id"`
	MediaType        media.Type      `json:"media_type"`
	ChunkSize        int64           `json:"chunk_size"`
	TotalParts       int             `json:"total_parts"`
	Parts            []media.PartURL `json:"parts"`
	PartURLExpiresAt time.Time       `json:"part_urls_expire_at"`
	SessionExpiresAt time.Time       `json:"session_expires_at"`
}

type compensation struct {
	step string
	fn   func(ctx context.Context) error
}

// compensate undoes completed initiate steps in reverse order. It runs on a
// context detached from the caller's so a cancelled request still cleans up.
func (c *Coordinator) compensate(ctx context.Context, mediaID string, steps []compensation, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(steps) - 1; i >= 0; i-- {
		c.metrics.Compensation(steps[i].step)
		if err := steps[i].fn(ctx); err != nil {
			c.logger.Error("Initiate compensation failed",
				slog.String("media_id", mediaID),
				slog.String("step", steps[i].step),
				slog.String("cause", cause.Error()),
				slog.String("error", err.Error()))
		}
	}
}

// planParts picks the chunk size and part count for size bytes
func (c *Coordinator) planParts(size, requested int64) (int64, int) {
	chunk := requested
	if chunk <= 0 {
		chunk = c.cfg.DefaultChunkSize
	}
	if size > chunk && chunk < c.cfg.MinChunkSize {
		chunk = c.cfg.MinChunkSize
	}

	parts := (size + chunk - 1) / chunk
	if parts > int64(c.cfg.MaxParts) {
		chunk = (size + int64(c.cfg.MaxParts) - 1) / int64(c.cfg.MaxParts)
		parts = (size + chunk - 1) / chunk
	}
	return chunk, int(parts)
}

func validateUpload(u Upload) error {
	var problems []string
	if strings.TrimSpace(u.TenantID) == "" {
		problems = append(problems, "tenant is required")
	}
	if strings.TrimSpace(u.UploaderID) == "" {
		problems = append(problems, "uploader is required")
	}
	if strings.TrimSpace(u.Filename) == "" {
		problems = append(problems, "filename is required")
	}
	if u.DeclaredSize <= 0 {
		problems = append(problems, "declared size must be positive")
	}
	if u.ChunkSize < 0 {
		problems = append(problems, "chunk size must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(problems, "; "), media.ErrInvalidRequest)
	}
	return nil
}

// Initiate reserves quota for the declared size, records the media as
// UPLOADING, opens a multipart upload and returns one presigned URL per part.
// A quota shortfall fails with media.ErrQuotaExceeded and no side effects; any
// later failure releases the reservation before the error is returned.
func (c *Coordinator) Initiate(ctx context.Context, u Upload) (*InitiateResult, error) {
	if err := validateUpload(u); err != nil {
		return nil, err
	}

	mediaType := media.TypeFromContentType(u.ContentType)
	class := media.QuotaClassFor(mediaType)

	ok, err := c.quota.HasEnough(ctx, u.TenantID, class, u.DeclaredSize)
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if !ok {
		c.metrics.QuotaRejected(string(class))
		return nil, fmt.Errorf("%s needs %d bytes: %w", class, u.DeclaredSize, media.ErrQuotaExceeded)
	}

	// The reservation re-checks the allowance atomically, so a concurrent
	// initiate that passed HasEnough can still be rejected here.
	if err := c.quota.Reserve(ctx, u.TenantID, class, u.DeclaredSize); err != nil {
		if errors.Is(err, media.ErrQuotaExceeded) {
			c.metrics.QuotaRejected(string(class))
		}
		return nil, err
	}
	c.metrics.Reserved(string(class), u.DeclaredSize)

	now := c.now().UTC()
	rec := &media.Record{
		ID:               uuid.New().String(),
		TenantID:         u.TenantID,
		Title:            u.Title,
		Type:             mediaType,
		DeclaredSize:     u.DeclaredSize,
		OriginalFilename: u.Filename,
		Status:           media.StatusUploading,
		UploaderID:       u.UploaderID,
		UploadTime:       now,
	}
	if strings.TrimSpace(rec.Title) == "" {
		rec.Title = u.Filename
	}
	rec.StorageKey = objectstore.ObjectKey(string(mediaType), u.TenantID, u.Filename, u.ContentType)

	steps := []compensation{{
		step: "release_quota",
		fn: func(ctx context.Context) error {
			if err := c.quota.Adjust(ctx, u.TenantID, class, -u.DeclaredSize); err != nil {
				return err
			}
			c.metrics.Released(string(class), u.DeclaredSize)
			return nil
		},
	}}
	fail := func(err error) (*InitiateResult, error) {
		c.compensate(ctx, rec.ID, steps, err)
		c.metrics.Upload("initiate_failed", string(mediaType))
		return nil, err
	}

	if err := c.catalog.CreateMedia(ctx, rec); err != nil {
		return fail(fmt.Errorf("create media record: %w", err))
	}
	steps = append(steps, compensation{
		step: "delete_record",
		fn: func(ctx context.Context) error {
			err := c.catalog.DeleteMedia(ctx, rec.ID, rec.TenantID)
			if errors.Is(err, media.ErrNotFound) {
				return nil
			}
			return err
		},
	})

	uploadID, err := c.store.InitiateMultipartUpload(ctx, rec.StorageKey, u.ContentType)
	if err != nil {
		c.storeFailed("initiate", err)
		return fail(err)
	}
	steps = append(steps, compensation{
		step: "abort_upload",
		fn: func(ctx context.Context) error {
			return c.store.AbortMultipartUpload(ctx, uploadID, rec.StorageKey)
		},
	})

	chunk, totalParts := c.planParts(u.DeclaredSize, u.ChunkSize)
	urls, err := c.store.BatchPresignPartURLs(ctx, uploadID, rec.StorageKey, 1, totalParts, c.cfg.PartURLTTL)
	if err != nil {
		c.storeFailed("presign", err)
		return fail(err)
	}

	session := &media.UploadSession{
		MediaID:         rec.ID,
		TenantID:        rec.TenantID,
		UploaderID:      rec.UploaderID,
		BackendUploadID: uploadID,
		ObjectKey:       rec.StorageKey,
		ContentType:     u.ContentType,
		DeclaredSize:    u.DeclaredSize,
		ChunkSize:       chunk,
		TotalParts:      totalParts,
		InitiatedAt:     now,
		LastUpdatedAt:   now,
	}
	if err := c.sessions.Put(ctx, session, c.cfg.SessionTTL); err != nil {
		return fail(fmt.Errorf("store upload session: %w", err))
	}

	c.logger.Info("Upload initiated",
		slog.String("media_id", rec.ID),
		slog.String("tenant_id", rec.TenantID),
		slog.String("media_type", string(mediaType)),
		slog.Int64("declared_size", u.DeclaredSize),
		slog.Int("total_parts", totalParts))
	c.metrics.Upload("initiated", string(mediaType))
	c.publish(rec, types.EventUploadInitiated, u.DeclaredSize, "")

	sessionTTL := c.cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &InitiateResult{
		MediaID:          rec.ID,
		UploadID:         uploadID,
		MediaType:        mediaType,
		ChunkSize:        chunk,
		TotalParts:       totalParts,
		Parts:            urls,
		PartURLExpiresAt: now.Add(c.cfg.PartURLTTL),
		SessionExpiresAt: now.Add(sessionTTL),
	}, nil
}

// Complete finalizes the multipart upload from the client's part list. A
// record that is no longer UPLOADING fails with media.ErrConflict. A backend
// failure marks the media FAILED; the quota reservation is kept until the
// media is cancelled. An upload the store no longer knows is reported as
// media.ErrConflict. When the record cannot be marked COMPLETED after the
// store finalized the object, the object is deleted.
func (c *Coordinator) Complete(ctx context.Context, mediaID, tenantID string, parts []media.Part) (*media.Record, error) {
	rec, err := c.loadMedia(ctx, mediaID, tenantID)
	if err != nil {
		return nil, err
	}
	if rec.Status != media.StatusUploading {
		return nil, fmt.Errorf("media %s is %s: %w", rec.ID, rec.Status, media.ErrConflict)
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("no parts supplied: %w", media.ErrInvalidRequest)
	}
	if missing := media.MissingETags(parts); len(missing) > 0 {
		return nil, &media.IncompletePartsError{PartNumbers: missing}
	}

	session, err := c.loadSession(ctx, rec)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			return nil, fmt.Errorf("upload session for %s expired or missing: %w", rec.ID, media.ErrNotFound)
		}
		return nil, err
	}

	result, err := c.store.CompleteMultipartUpload(ctx, session.BackendUploadID, session.ObjectKey, parts)
	if err != nil {
		if errors.Is(err, media.ErrInvalidRequest) || errors.Is(err, media.ErrIncompletePartData) {
			return nil, err
		}
		if errors.Is(err, media.ErrNotFound) {
			err = fmt.Errorf("multipart upload for %s no longer exists in the store: %w", rec.ID, media.ErrConflict)
		}
		c.storeFailed("complete", err)
		c.markFailed(ctx, rec, err)
		return nil, err
	}

	if removed, derr := c.sessions.Delete(ctx, rec.ID); derr != nil {
		c.logger.Warn("Failed to delete upload session",
			slog.String("media_id", rec.ID),
			slog.String("error", derr.Error()))
	} else if !removed {
		c.logger.Info("Upload session already expired", slog.String("media_id", rec.ID))
	}

	actual := result.Size
	if !result.SizeKnown {
		c.logger.Warn("Completed object size unknown, using declared size",
			slog.String("media_id", rec.ID),
			slog.Int64("declared_size", rec.DeclaredSize))
		actual = rec.DeclaredSize
	}

	if err := c.catalog.MarkCompleted(ctx, rec.ID, rec.TenantID, actual); err != nil {
		err = fmt.Errorf("mark media completed: %w", err)
		c.discardObject(ctx, rec, session.ObjectKey, err)
		if !errors.Is(err, media.ErrConflict) {
			c.markFailed(ctx, rec, err)
		}
		return nil, err
	}
	rec.Status = media.StatusCompleted
	rec.ActualSize = actual

	c.logger.Info("Upload completed",
		slog.String("media_id", rec.ID),
		slog.String("tenant_id", rec.TenantID),
		slog.Int64("actual_size", actual),
		slog.Int("parts", len(parts)))
	c.metrics.Upload("completed", string(rec.Type))
	c.publish(rec, types.EventUploadCompleted, actual, "")
	return rec, nil
}

// discardObject removes an object the store finalized for a record that could
// not be marked COMPLETED
func (c *Coordinator) discardObject(ctx context.Context, rec *media.Record, key string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	c.metrics.Compensation("object")
	if _, err := c.store.DeleteObject(ctx, key); err != nil {
		c.storeFailed("delete", err)
		c.logger.Error("Failed to discard finalized object",
			slog.String("media_id", rec.ID),
			slog.String("key", key),
			slog.String("cause", cause.Error()),
			slog.String("error", err.Error()))
		return
	}
	c.logger.Warn("Discarded finalized object",
		slog.String("media_id", rec.ID),
		slog.String("key", key),
		slog.String("cause", cause.Error()))
}

func (c *Coordinator) markFailed(ctx context.Context, rec *media.Record, cause error) {
	if err := c.catalog.MarkFailed(context.WithoutCancel(ctx), rec.ID, rec.TenantID); err != nil {
		c.logger.Error("Failed to mark media failed",
			slog.String("media_id", rec.ID),
			slog.String("cause", cause.Error()),
			slog.String("error", err.Error()))
		return
	}
	rec.Status = media.StatusFailed

	c.logger.Warn("Upload failed",
		slog.String("media_id", rec.ID),
		slog.String("tenant_id", rec.TenantID),
		slog.String("error", cause.Error()))
	c.metrics.Upload("failed", string(rec.Type))
	c.publish(rec, types.EventUploadFailed, 0, cause.Error())
}

// Cancel aborts an unfinished (UPLOADING or FAILED) upload, releases the
// declared-size reservation and removes the record. Once the record is gone a
// repeated cancel fails with media.ErrNotFound.
func (c *Coordinator) Cancel(ctx context.Context, mediaID, tenantID string) error {
	rec, err := c.loadMedia(ctx, mediaID, tenantID)
	if err != nil {
		return err
	}
	if rec.Status == media.StatusCompleted {
		return fmt.Errorf("media %s is completed, delete it instead: %w", rec.ID, media.ErrConflict)
	}

	session, err := c.loadSession(ctx, rec)
	switch {
	case err == nil:
		if err := c.store.AbortMultipartUpload(ctx, session.BackendUploadID, session.ObjectKey); err != nil {
			c.storeFailed("abort", err)
			return err
		}
		if _, err := c.sessions.Delete(ctx, rec.ID); err != nil {
			c.logger.Warn("Failed to delete upload session",
				slog.String("media_id", rec.ID),
				slog.String("error", err.Error()))
		}
	case errors.Is(err, media.ErrNotFound):
		c.logger.Info("No upload session to abort", slog.String("media_id", rec.ID))
	default:
		return err
	}

	if err := c.release(ctx, rec, rec.DeclaredSize); err != nil {
		return err
	}

	c.logger.Info("Upload cancelled",
		slog.String("media_id", rec.ID),
		slog.String("tenant_id", rec.TenantID),
		slog.Int64("released_bytes", rec.DeclaredSize))
	c.metrics.Upload("cancelled", string(rec.Type))
	c.publish(rec, types.EventUploadCancelled, rec.DeclaredSize, "")
	return nil
}

// Delete removes a COMPLETED media's object and record and releases its
// actual size. An object already missing from the store is not an error.
func (c *Coordinator) Delete(ctx context.Context, mediaID, tenantID string) error {
	rec, err := c.loadMedia(ctx, mediaID, tenantID)
	if err != nil {
		return err
	}
	if rec.Status != media.StatusCompleted {
		return fmt.Errorf("media %s is %s, cancel it instead: %w", rec.ID, rec.Status, media.ErrConflict)
	}

	removed, err := c.store.DeleteObject(ctx, rec.StorageKey)
	if err != nil {
		c.storeFailed("delete", err)
		return err
	}
	if !removed {
		c.logger.Warn("Object already missing from store",
			slog.String("media_id", rec.ID),
			slog.String("storage_key", rec.StorageKey))
	}

	if err := c.release(ctx, rec, rec.ActualSize); err != nil {
		return err
	}

	c.logger.Info("Media deleted",
		slog.String("media_id", rec.ID),
		slog.String("tenant_id", rec.TenantID),
		slog.Int64("released_bytes", rec.ActualSize))
	c.metrics.Upload("deleted", string(rec.Type))
	c.publish(rec, types.EventMediaDeleted, rec.ActualSize, "")
	return nil
}
