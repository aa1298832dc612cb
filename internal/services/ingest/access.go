package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/princekumarofficial/course-media-service/internal/services/objectstore"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
)

// AccessURL is a time-limited download link
type AccessURL struct {
	MediaID   string    `json:"media_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadStatus reports a media record together with its live upload state
type UploadStatus struct {
	Media         *media.Record              `json:"media"`
	SessionActive bool                       `json:"session_active"`
	ChunkSize     int64                      `json:"chunk_size,omitempty"`
	TotalParts    int                        `json:"total_parts,omitempty"`
	UploadedParts []objectstore.UploadedPart `json:"uploaded_parts,omitempty"`
	MissingParts  []int                      `json:"missing_parts,omitempty"`
}

// StaleUpload is an unfinished record older than the reporting threshold
type StaleUpload struct {
	Media         media.Record `json:"media"`
	SessionActive bool         `json:"session_active"`
}

func (c *Coordinator) accessTTL(ttlMinutes int) (time.Duration, error) {
	switch {
	case ttlMinutes < 0:
		return 0, fmt.Errorf("ttl must not be negative: %w", media.ErrInvalidRequest)
	case ttlMinutes == 0:
		return c.cfg.DefaultAccessTTL, nil
	}

	ttl := time.Duration(ttlMinutes) * time.Minute
	if ttl > c.cfg.MaxAccessTTL {
		ttl = c.cfg.MaxAccessTTL
	}
	return ttl, nil
}

// GetAccessURL presigns a download for COMPLETED media. Anything else fails
// with media.ErrNotReady. The last-access timestamp is updated in the
// background and never delays or fails the caller.
func (c *Coordinator) GetAccessURL(ctx context.Context, mediaID, tenantID string, ttlMinutes int) (*AccessURL, error) {
	ttl, err := c.accessTTL(ttlMinutes)
	if err != nil {
		return nil, err
	}

	rec, err := c.loadMedia(ctx, mediaID, tenantID)
	if err != nil {
		return nil, err
	}
	if rec.Status != media.StatusCompleted {
		return nil, fmt.Errorf("media %s is %s: %w", rec.ID, rec.Status, media.ErrNotReady)
	}

	url, err := c.store.PresignGetURL(ctx, rec.StorageKey, ttl)
	if err != nil {
		c.storeFailed("presign_get", err)
		return nil, err
	}

	now := c.now().UTC()
	c.touchLastAccess(ctx, rec, now)

	return &AccessURL{MediaID: rec.ID, URL: url, ExpiresAt: now.Add(ttl)}, nil
}

func (c *Coordinator) touchLastAccess(ctx context.Context, rec *media.Record, at time.Time) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
		defer cancel()

		if err := c.catalog.TouchLastAccess(ctx, rec.ID, rec.TenantID, at); err != nil {
			c.logger.Warn("Failed to update last access time",
				slog.String("media_id", rec.ID),
				slog.String("error", err.Error()))
		}
	}()
}

// Status returns the record and, while it is uploading with a live session,
// the parts the object store has already received.
func (c *Coordinator) Status(ctx context.Context, mediaID, tenantID string) (*UploadStatus, error) {
	rec, err := c.loadMedia(ctx, mediaID, tenantID)
	if err != nil {
		return nil, err
	}

	status := &UploadStatus{Media: rec}
	if rec.Status != media.StatusUploading {
		return status, nil
	}

	session, err := c.loadSession(ctx, rec)
	if errors.Is(err, media.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}
	status.SessionActive = true
	status.ChunkSize = session.ChunkSize
	status.TotalParts = session.TotalParts

	uploaded, err := c.store.ListUploadedParts(ctx, session.BackendUploadID, session.ObjectKey)
	if err != nil {
		c.storeFailed("list_parts", err)
		return nil, err
	}
	status.UploadedParts = uploaded

	have := make(map[int]bool, len(uploaded))
	for _, p := range uploaded {
		have[p.PartNumber] = true
	}
	for n := 1; n <= session.TotalParts; n++ {
		if !have[n] {
			status.MissingParts = append(status.MissingParts, n)
		}
	}
	return status, nil
}

// RefreshPartURLs re-signs URLs for parts whose original links expired. It
// needs the live session; an expired session is never recreated.
func (c *Coordinator) RefreshPartURLs(ctx context.Context, mediaID, tenantID string, partNumbers []int) ([]media.PartURL, error) {
	rec, err := c.loadMedia(ctx, mediaID, tenantID)
	if err != nil {
		return nil, err
	}
	if rec.Status != media.StatusUploading {
		return nil, fmt.Errorf("media %s is %s: %w", rec.ID, rec.Status, media.ErrConflict)
	}

	session, err := c.loadSession(ctx, rec)
	if err != nil {
		return nil, err
	}

	if len(partNumbers) == 0 {
		return nil, fmt.Errorf("no part numbers supplied: %w", media.ErrInvalidRequest)
	}
	unique := make(map[int]bool, len(partNumbers))
	for _, n := range partNumbers {
		if n < 1 || n > session.TotalParts {
			return nil, fmt.Errorf("part %d outside 1..%d: %w", n, session.TotalParts, media.ErrInvalidRequest)
		}
		unique[n] = true
	}
	wanted := make([]int, 0, len(unique))
	for n := range unique {
		wanted = append(wanted, n)
	}
	sort.Ints(wanted)

	urls, err := c.store.PresignPartURLs(ctx, session.BackendUploadID, session.ObjectKey, wanted, c.cfg.PartURLTTL)
	if err != nil {
		c.storeFailed("presign", err)
		return nil, err
	}

	if err := c.sessions.Touch(ctx, session, c.now().UTC()); err != nil {
		c.logger.Warn("Failed to touch upload session",
			slog.String("media_id", rec.ID),
			slog.String("error", err.Error()))
	}
	return urls, nil
}

// StaleUploads lists UPLOADING and FAILED records older than olderThan for
// external reconciliation. It changes nothing.
func (c *Coordinator) StaleUploads(ctx context.Context, olderThan time.Duration, limit int) ([]StaleUpload, error) {
	cutoff := c.now().Add(-olderThan)
	records, err := c.catalog.ListMediaByStatus(ctx,
		[]media.Status{media.StatusUploading, media.StatusFailed}, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale uploads: %w", err)
	}

	stale := make([]StaleUpload, 0, len(records))
	for i := range records {
		entry := StaleUpload{Media: records[i]}
		if records[i].Status == media.StatusUploading {
			_, err := c.loadSession(ctx, &records[i])
			switch {
			case err == nil:
				entry.SessionActive = true
			case !errors.Is(err, media.ErrNotFound):
				return nil, err
			}
		}
		stale = append(stale, entry)
	}
	return stale, nil
}
