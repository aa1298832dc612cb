package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/princekumarofficial/course-media-service/internal/config"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
)

// backend is the subset of *minio.Core the gateway drives
type backend interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	NewMultipartUpload(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error)
	CompleteMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []minio.CompletePart, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error
	ListObjectParts(ctx context.Context, bucket, object, uploadID string, partNumberMarker, maxParts int) (minio.ListObjectPartsResult, error)
	Presign(ctx context.Context, method, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Gateway exposes the multipart control plane of an S3-compatible store.
// File bytes never pass through it; clients PUT parts to presigned URLs.
type Gateway struct {
	client     backend
	bucketName string
	region     string
	logger     *slog.Logger

	mu          sync.Mutex
	bucketReady bool
}

// CompletedUpload describes the finalized object
type CompletedUpload struct {
	Key       string
	ETag      string
	Size      int64
	SizeKnown bool
}

// UploadedPart is a part the store has already accepted
type UploadedPart struct {
	PartNumber int       `json:"part_number"`
	ETag       string    `json:"etag"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// NewGateway creates a MinIO-backed gateway. The bucket is provisioned lazily.
func NewGateway(cfg config.MinIO, logger *slog.Logger) (*Gateway, error) {
	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return newGateway(core, cfg.BucketName, cfg.Region, logger), nil
}

func newGateway(client backend, bucketName, region string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		client:     client,
		bucketName: bucketName,
		region:     region,
		logger:     logger.With(slog.String("component", "object-store"), slog.String("bucket", bucketName)),
	}
}

// EnsureBucketExists creates the bucket if it doesn't exist. After the first
// success it is a no-op; failures are retried on the next call.
func (g *Gateway) EnsureBucketExists(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.bucketReady {
		return nil
	}

	exists, err := g.client.BucketExists(ctx, g.bucketName)
	if err != nil {
		return unavailable("check bucket", err)
	}

	if !exists {
		err = g.client.MakeBucket(ctx, g.bucketName, minio.MakeBucketOptions{Region: g.region})
		if err != nil && !isAlreadyOwned(err) {
			return unavailable("create bucket", err)
		}
		g.logger.Info("Created bucket")
	}

	g.bucketReady = true
	return nil
}

func (g *Gateway) InitiateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	if err := g.EnsureBucketExists(ctx); err != nil {
		return "", err
	}

	uploadID, err := g.client.NewMultipartUpload(ctx, g.bucketName, key, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", unavailable("initiate multipart upload", err)
	}
	return uploadID, nil
}

// BatchPresignPartURLs signs one PUT URL per part in [first, last]. Signing
// is local, so no store round trip is made per part.
func (g *Gateway) BatchPresignPartURLs(ctx context.Context, uploadID, key string, first, last int, ttl time.Duration) ([]media.PartURL, error) {
	if first < 1 || last < first {
		return nil, fmt.Errorf("part range %d..%d: %w", first, last, media.ErrInvalidRequest)
	}

	parts := make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		parts = append(parts, n)
	}
	return g.PresignPartURLs(ctx, uploadID, key, parts, ttl)
}

// PresignPartURLs signs PUT URLs for an arbitrary set of part numbers
func (g *Gateway) PresignPartURLs(ctx context.Context, uploadID, key string, partNumbers []int, ttl time.Duration) ([]media.PartURL, error) {
	urls := make([]media.PartURL, 0, len(partNumbers))
	for _, n := range partNumbers {
		params := url.Values{}
		params.Set("partNumber", strconv.Itoa(n))
		params.Set("uploadId", uploadID)

		u, err := g.client.Presign(ctx, http.MethodPut, g.bucketName, key, ttl, params)
		if err != nil {
			return nil, unavailable(fmt.Sprintf("presign part %d", n), err)
		}
		urls = append(urls, media.PartURL{PartNumber: n, URL: u.String()})
	}
	return urls, nil
}

// NormalizeETag strips whitespace and one pair of surrounding double quotes
func NormalizeETag(etag string) string {
	etag = strings.TrimSpace(etag)
	if len(etag) >= 2 && strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`) {
		etag = etag[1 : len(etag)-1]
	}
	return etag
}

// CompleteMultipartUpload finalizes the object from the listed parts. Parts
// are sent in ascending order; if any eTag is missing nothing is sent.
func (g *Gateway) CompleteMultipartUpload(ctx context.Context, uploadID, key string, parts []media.Part) (*CompletedUpload, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("no parts supplied: %w", media.ErrInvalidRequest)
	}

	normalized := make([]minio.CompletePart, 0, len(parts))
	seen := make(map[int]bool, len(parts))
	var missing []int
	for _, p := range parts {
		if p.PartNumber < 1 {
			return nil, fmt.Errorf("part number %d: %w", p.PartNumber, media.ErrInvalidRequest)
		}
		if seen[p.PartNumber] {
			return nil, fmt.Errorf("duplicate part number %d: %w", p.PartNumber, media.ErrInvalidRequest)
		}
		seen[p.PartNumber] = true

		etag := NormalizeETag(p.ETag)
		if etag == "" {
			missing = append(missing, p.PartNumber)
			continue
		}
		normalized = append(normalized, minio.CompletePart{PartNumber: p.PartNumber, ETag: etag})
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return nil, &media.IncompletePartsError{PartNumbers: missing}
	}

	sort.Slice(normalized, func(i, j int) bool { return normalized[i].PartNumber < normalized[j].PartNumber })

	info, err := g.client.CompleteMultipartUpload(ctx, g.bucketName, key, uploadID, normalized, minio.PutObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("upload %s: %w", uploadID, media.ErrNotFound)
		}
		if isRejectedPartList(err) {
			resp := minio.ToErrorResponse(err)
			return nil, fmt.Errorf("store rejected part list for upload %s: %s: %w", uploadID, resp.Code, media.ErrInvalidRequest)
		}
		return nil, unavailable("complete multipart upload", err)
	}

	result := &CompletedUpload{Key: key, ETag: info.ETag}
	stat, err := g.client.StatObject(ctx, g.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		g.logger.Warn("Failed to stat completed object",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return result, nil
	}
	result.Size = stat.Size
	result.SizeKnown = true
	return result, nil
}

// AbortMultipartUpload discards accumulated parts. An unknown upload is
// treated as already aborted.
func (g *Gateway) AbortMultipartUpload(ctx context.Context, uploadID, key string) error {
	err := g.client.AbortMultipartUpload(ctx, g.bucketName, key, uploadID)
	if err != nil && !isNotFound(err) {
		return unavailable("abort multipart upload", err)
	}
	return nil
}

// ListUploadedParts pages through the parts the store has received so far
func (g *Gateway) ListUploadedParts(ctx context.Context, uploadID, key string) ([]UploadedPart, error) {
	var parts []UploadedPart
	marker := 0
	for {
		result, err := g.client.ListObjectParts(ctx, g.bucketName, key, uploadID, marker, 1000)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("upload %s: %w", uploadID, media.ErrNotFound)
			}
			return nil, unavailable("list parts", err)
		}

		for _, p := range result.ObjectParts {
			parts = append(parts, UploadedPart{
				PartNumber: p.PartNumber,
				ETag:       NormalizeETag(p.ETag),
				Size:       p.Size,
				UploadedAt: p.LastModified,
			})
		}

		if !result.IsTruncated {
			return parts, nil
		}
		marker = result.NextPartNumberMarker
	}
}

// PresignGetURL creates a presigned URL for downloading
func (g *Gateway) PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := g.client.PresignedGetObject(ctx, g.bucketName, key, ttl, nil)
	if err != nil {
		return "", unavailable("presign download", err)
	}
	return u.String(), nil
}

// DeleteObject removes an object from storage. It reports false when the
// object was already gone.
func (g *Gateway) DeleteObject(ctx context.Context, key string) (bool, error) {
	_, err := g.client.StatObject(ctx, g.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			g.logger.Info("Object already absent", slog.String("key", key))
			return false, nil
		}
		return false, unavailable("stat object", err)
	}

	if err := g.client.RemoveObject(ctx, g.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, unavailable("remove object", err)
	}
	return true, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, media.ErrStoreUnavailable, err)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchUpload", "NoSuchKey", "NoSuchObject":
		return true
	}
	return resp.StatusCode == http.StatusNotFound
}

// isRejectedPartList reports a client-side defect in a complete request, such
// as an eTag that does not match an uploaded part or an undersized part.
func isRejectedPartList(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "InvalidPart", "InvalidPartOrder", "EntityTooSmall", "MalformedXML":
		return true
	}
	return resp.StatusCode == http.StatusBadRequest
}

func isAlreadyOwned(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists"
}
