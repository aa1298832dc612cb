// Package memory is a process-local storage.Storage used by tests and by
// single-node development runs without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/princekumarofficial/course-media-service/internal/storage"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
	"github.com/princekumarofficial/course-media-service/internal/types/quota"
)

var _ storage.Storage = (*Store)(nil)

type quotaKey struct {
	tenant string
	class  quota.Class
}

type txKey struct{}

type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	media  map[string]media.Record
	quotas map[quotaKey]quota.Record

	// FailNext, when set, is returned once by the next matching operation
	failNext map[string]error
}

func New() *Store {
	return &Store{
		media:    make(map[string]media.Record),
		quotas:   make(map[quotaKey]quota.Record),
		failNext: make(map[string]error),
	}
}

// FailNext makes the next call of op ("CreateMedia", "DeleteMedia", ...) return err
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = err
}

func (s *Store) injected(op string) error {
	if err, ok := s.failNext[op]; ok {
		delete(s.failNext, op)
		return err
	}
	return nil
}

// WithTx serializes transactions and restores a snapshot when fn fails
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	mediaSnap := make(map[string]media.Record, len(s.media))
	for k, v := range s.media {
		mediaSnap[k] = v
	}
	quotaSnap := make(map[quotaKey]quota.Record, len(s.quotas))
	for k, v := range s.quotas {
		quotaSnap[k] = v
	}
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.media = mediaSnap
		s.quotas = quotaSnap
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) CreateMedia(_ context.Context, rec *media.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("CreateMedia"); err != nil {
		return err
	}
	if _, exists := s.media[rec.ID]; exists {
		return media.ErrConflict
	}
	for _, existing := range s.media {
		if existing.StorageKey == rec.StorageKey {
			return media.ErrConflict
		}
	}
	s.media[rec.ID] = *rec
	return nil
}

func (s *Store) GetMedia(_ context.Context, mediaID, tenantID string) (*media.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("GetMedia"); err != nil {
		return nil, err
	}
	rec, ok := s.media[mediaID]
	if !ok || rec.TenantID != tenantID {
		return nil, media.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) MarkCompleted(_ context.Context, mediaID, tenantID string, actualSize int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("MarkCompleted"); err != nil {
		return err
	}
	rec, ok := s.media[mediaID]
	if !ok || rec.TenantID != tenantID || rec.Status != media.StatusUploading {
		return media.ErrConflict
	}
	rec.Status = media.StatusCompleted
	rec.ActualSize = actualSize
	s.media[mediaID] = rec
	return nil
}

func (s *Store) MarkFailed(_ context.Context, mediaID, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("MarkFailed"); err != nil {
		return err
	}
	rec, ok := s.media[mediaID]
	if !ok || rec.TenantID != tenantID || rec.Status != media.StatusUploading {
		return media.ErrConflict
	}
	rec.Status = media.StatusFailed
	s.media[mediaID] = rec
	return nil
}

func (s *Store) DeleteMedia(_ context.Context, mediaID, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("DeleteMedia"); err != nil {
		return err
	}
	rec, ok := s.media[mediaID]
	if !ok || rec.TenantID != tenantID {
		return media.ErrNotFound
	}
	delete(s.media, mediaID)
	return nil
}

func (s *Store) TouchLastAccess(_ context.Context, mediaID, tenantID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.media[mediaID]
	if !ok || rec.TenantID != tenantID {
		return media.ErrNotFound
	}
	rec.LastAccessTime = &at
	s.media[mediaID] = rec
	return nil
}

func (s *Store) ListMediaByStatus(_ context.Context, statuses []media.Status, uploadedBefore time.Time, limit int) ([]media.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[media.Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	var out []media.Record
	for _, rec := range s.media {
		if wanted[rec.Status] && rec.UploadTime.Before(uploadedBefore) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadTime.Before(out[j].UploadTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetQuota(_ context.Context, tenantID string, class quota.Class) (*quota.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.quotas[quotaKey{tenantID, class}]
	if !ok {
		return nil, media.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) ListQuotas(_ context.Context, tenantID string) ([]quota.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []quota.Record
	for k, rec := range s.quotas {
		if k.tenant == tenantID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out, nil
}

func (s *Store) UpsertQuota(_ context.Context, rec quota.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := quotaKey{rec.TenantID, rec.Class}
	if existing, ok := s.quotas[key]; ok {
		rec.UsedBytes = existing.UsedBytes
	} else {
		rec.UsedBytes = 0
	}
	s.quotas[key] = rec
	return nil
}

func (s *Store) AddUsed(ctx context.Context, tenantID string, classes []quota.Class, delta int64) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.injected("AddUsed"); err != nil {
			return err
		}
		for _, class := range classes {
			key := quotaKey{tenantID, class}
			rec, ok := s.quotas[key]
			if !ok {
				continue
			}
			rec.UsedBytes += delta
			if rec.UsedBytes < 0 {
				rec.UsedBytes = 0
			}
			s.quotas[key] = rec
		}
		return nil
	})
}

func (s *Store) ReserveUsed(ctx context.Context, tenantID string, guarded quota.Class, cascade []quota.Class, bytes int64, now time.Time) (bool, error) {
	reserved := false
	err := s.WithTx(ctx, func(ctx context.Context) error {
		s.mu.Lock()
		rec, ok := s.quotas[quotaKey{tenantID, guarded}]
		if !ok || rec.Expired(now) || rec.TotalBytes-rec.UsedBytes < bytes {
			s.mu.Unlock()
			return nil
		}
		rec.UsedBytes += bytes
		s.quotas[quotaKey{tenantID, guarded}] = rec
		s.mu.Unlock()

		if err := s.AddUsed(ctx, tenantID, cascade, bytes); err != nil {
			return err
		}
		reserved = true
		return nil
	})
	return reserved, err
}
