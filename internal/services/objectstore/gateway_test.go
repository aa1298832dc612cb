package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu sync.Mutex

	bucketExists    bool
	bucketErr       error
	bucketChecks    int
	madeBuckets     int
	uploadID        string
	completeErr     error
	completedParts  []minio.CompletePart
	completeCalls   int
	abortErr        error
	statErr         error
	statSize        int64
	removed         []string
	parts           []minio.ObjectPart
	pageSize        int
	presignedParams []url.Values
}

func (f *fakeBackend) BucketExists(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucketChecks++
	return f.bucketExists, f.bucketErr
}

func (f *fakeBackend) MakeBucket(_ context.Context, _ string, _ minio.MakeBucketOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.madeBuckets++
	f.bucketExists = true
	return nil
}

func (f *fakeBackend) NewMultipartUpload(_ context.Context, _, _ string, _ minio.PutObjectOptions) (string, error) {
	return f.uploadID, nil
}

func (f *fakeBackend) CompleteMultipartUpload(_ context.Context, _, object, _ string, parts []minio.CompletePart, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.completeCalls++
	if f.completeErr != nil {
		return minio.UploadInfo{}, f.completeErr
	}
	f.completedParts = parts
	return minio.UploadInfo{Key: object, ETag: "final-etag"}, nil
}

func (f *fakeBackend) AbortMultipartUpload(_ context.Context, _, _, _ string) error {
	return f.abortErr
}

func (f *fakeBackend) ListObjectParts(_ context.Context, _, _, _ string, marker, maxParts int) (minio.ListObjectPartsResult, error) {
	size := f.pageSize
	if size == 0 {
		size = maxParts
	}

	var page []minio.ObjectPart
	for _, p := range f.parts {
		if p.PartNumber > marker && len(page) < size {
			page = append(page, p)
		}
	}

	result := minio.ListObjectPartsResult{ObjectParts: page}
	if len(page) > 0 && page[len(page)-1].PartNumber < f.parts[len(f.parts)-1].PartNumber {
		result.IsTruncated = true
		result.NextPartNumberMarker = page[len(page)-1].PartNumber
	}
	return result, nil
}

func (f *fakeBackend) Presign(_ context.Context, method, bucket, object string, _ time.Duration, params url.Values) (*url.URL, error) {
	f.presignedParams = append(f.presignedParams, params)
	return &url.URL{
		Scheme:   "http",
		Host:     "minio.local",
		Path:     fmt.Sprintf("/%s/%s", bucket, object),
		RawQuery: params.Encode() + "&method=" + method,
	}, nil
}

func (f *fakeBackend) PresignedGetObject(_ context.Context, bucket, object string, _ time.Duration, _ url.Values) (*url.URL, error) {
	return &url.URL{Scheme: "http", Host: "minio.local", Path: fmt.Sprintf("/%s/%s", bucket, object)}, nil
}

func (f *fakeBackend) StatObject(_ context.Context, _, _ string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if f.statErr != nil {
		return minio.ObjectInfo{}, f.statErr
	}
	return minio.ObjectInfo{Size: f.statSize}, nil
}

func (f *fakeBackend) RemoveObject(_ context.Context, _, object string, _ minio.RemoveObjectOptions) error {
	f.removed = append(f.removed, object)
	return nil
}

func noSuch(code string) error {
	return minio.ErrorResponse{Code: code, StatusCode: http.StatusNotFound, Message: code}
}

func TestCompleteMultipartUpload_SortsAndNormalizesParts(t *testing.T) {
	fb := &fakeBackend{statSize: 300}
	g := newGateway(fb, "course-media", "", nil)

	result, err := g.CompleteMultipartUpload(context.Background(), "up-1", "video/t/k/a.mp4", []media.Part{
		{PartNumber: 3, ETag: `"c"`},
		{PartNumber: 1, ETag: "a"},
		{PartNumber: 2, ETag: " b "},
	})
	require.NoError(t, err)

	require.Len(t, fb.completedParts, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, i+1, fb.completedParts[i].PartNumber)
		assert.Equal(t, want, fb.completedParts[i].ETag)
	}
	assert.Equal(t, int64(300), result.Size)
	assert.True(t, result.SizeKnown)
}

func TestCompleteMultipartUpload_MissingETagSendsNothing(t *testing.T) {
	fb := &fakeBackend{}
	g := newGateway(fb, "course-media", "", nil)

	_, err := g.CompleteMultipartUpload(context.Background(), "up-1", "k", []media.Part{
		{PartNumber: 1, ETag: "a"},
		{PartNumber: 2, ETag: ""},
		{PartNumber: 3, ETag: `""`},
	})
	require.ErrorIs(t, err, media.ErrIncompletePartData)

	var incomplete *media.IncompletePartsError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []int{2, 3}, incomplete.PartNumbers)
	assert.Equal(t, 0, fb.completeCalls)
}

func TestCompleteMultipartUpload_RejectsDuplicatesAndEmpty(t *testing.T) {
	g := newGateway(&fakeBackend{}, "course-media", "", nil)
	ctx := context.Background()

	_, err := g.CompleteMultipartUpload(ctx, "up-1", "k", nil)
	assert.ErrorIs(t, err, media.ErrInvalidRequest)

	_, err = g.CompleteMultipartUpload(ctx, "up-1", "k", []media.Part{
		{PartNumber: 1, ETag: "a"},
		{PartNumber: 1, ETag: "b"},
	})
	assert.ErrorIs(t, err, media.ErrInvalidRequest)
}

func TestCompleteMultipartUpload_ErrorMapping(t *testing.T) {
	parts := []media.Part{{PartNumber: 1, ETag: "a"}}

	fb := &fakeBackend{completeErr: noSuch("NoSuchUpload")}
	g := newGateway(fb, "course-media", "", nil)
	_, err := g.CompleteMultipartUpload(context.Background(), "gone", "k", parts)
	assert.ErrorIs(t, err, media.ErrNotFound)

	fb = &fakeBackend{completeErr: errors.New("connection reset by peer")}
	g = newGateway(fb, "course-media", "", nil)
	_, err = g.CompleteMultipartUpload(context.Background(), "up-1", "k", parts)
	assert.ErrorIs(t, err, media.ErrStoreUnavailable)
	assert.True(t, media.IsRetryable(err))
}

func TestCompleteMultipartUpload_RejectedPartsAreNotRetryable(t *testing.T) {
	parts := []media.Part{{PartNumber: 1, ETag: "stale"}, {PartNumber: 2, ETag: "b"}}

	for _, code := range []string{"InvalidPart", "InvalidPartOrder", "EntityTooSmall", "MalformedXML"} {
		fb := &fakeBackend{completeErr: minio.ErrorResponse{Code: code, StatusCode: http.StatusBadRequest, Message: code}}
		g := newGateway(fb, "course-media", "", nil)

		_, err := g.CompleteMultipartUpload(context.Background(), "up-1", "k", parts)
		assert.ErrorIs(t, err, media.ErrInvalidRequest, code)
		assert.NotErrorIs(t, err, media.ErrStoreUnavailable, code)
		assert.False(t, media.IsRetryable(err), code)
		assert.Contains(t, err.Error(), code)
	}

	fb := &fakeBackend{completeErr: minio.ErrorResponse{Code: "InternalError", StatusCode: http.StatusInternalServerError}}
	g := newGateway(fb, "course-media", "", nil)
	_, err := g.CompleteMultipartUpload(context.Background(), "up-1", "k", parts)
	assert.ErrorIs(t, err, media.ErrStoreUnavailable)
}

func TestCompleteMultipartUpload_StatFailureLeavesSizeUnknown(t *testing.T) {
	fb := &fakeBackend{statErr: errors.New("timeout")}
	g := newGateway(fb, "course-media", "", nil)

	result, err := g.CompleteMultipartUpload(context.Background(), "up-1", "k", []media.Part{{PartNumber: 1, ETag: "a"}})
	require.NoError(t, err)
	assert.False(t, result.SizeKnown)
	assert.Equal(t, "final-etag", result.ETag)
}

func TestEnsureBucketExists(t *testing.T) {
	fb := &fakeBackend{bucketErr: errors.New("dial tcp: refused")}
	g := newGateway(fb, "course-media", "", nil)
	ctx := context.Background()

	err := g.EnsureBucketExists(ctx)
	assert.ErrorIs(t, err, media.ErrStoreUnavailable)

	fb.bucketErr = nil
	require.NoError(t, g.EnsureBucketExists(ctx))
	require.NoError(t, g.EnsureBucketExists(ctx))

	assert.Equal(t, 2, fb.bucketChecks, "provisioned once, after the failed attempt")
	assert.Equal(t, 1, fb.madeBuckets)
}

func TestInitiateMultipartUpload_ProvisionsBucket(t *testing.T) {
	fb := &fakeBackend{uploadID: "up-42"}
	g := newGateway(fb, "course-media", "", nil)

	id, err := g.InitiateMultipartUpload(context.Background(), "k", "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "up-42", id)
	assert.Equal(t, 1, fb.madeBuckets)
}

func TestBatchPresignPartURLs(t *testing.T) {
	fb := &fakeBackend{}
	g := newGateway(fb, "course-media", "", nil)

	urls, err := g.BatchPresignPartURLs(context.Background(), "up-1", "video/t/k/a.mp4", 1, 4, time.Hour)
	require.NoError(t, err)
	require.Len(t, urls, 4)
	for i, u := range urls {
		assert.Equal(t, i+1, u.PartNumber)
		assert.Contains(t, u.URL, fmt.Sprintf("partNumber=%d", i+1))
		assert.Contains(t, u.URL, "uploadId=up-1")
		assert.Contains(t, u.URL, "method=PUT")
	}

	_, err = g.BatchPresignPartURLs(context.Background(), "up-1", "k", 3, 2, time.Hour)
	assert.ErrorIs(t, err, media.ErrInvalidRequest)
}

func TestAbortMultipartUpload_UnknownUploadIsNoop(t *testing.T) {
	g := newGateway(&fakeBackend{abortErr: noSuch("NoSuchUpload")}, "course-media", "", nil)
	assert.NoError(t, g.AbortMultipartUpload(context.Background(), "gone", "k"))

	g = newGateway(&fakeBackend{abortErr: errors.New("503 slow down")}, "course-media", "", nil)
	assert.ErrorIs(t, g.AbortMultipartUpload(context.Background(), "up-1", "k"), media.ErrStoreUnavailable)
}

func TestListUploadedParts_Pages(t *testing.T) {
	fb := &fakeBackend{pageSize: 2}
	for n := 1; n <= 5; n++ {
		fb.parts = append(fb.parts, minio.ObjectPart{PartNumber: n, ETag: fmt.Sprintf(`"etag-%d"`, n), Size: 100})
	}
	g := newGateway(fb, "course-media", "", nil)

	parts, err := g.ListUploadedParts(context.Background(), "up-1", "k")
	require.NoError(t, err)
	require.Len(t, parts, 5)
	assert.Equal(t, "etag-5", parts[4].ETag)
}

func TestDeleteObject(t *testing.T) {
	fb := &fakeBackend{}
	g := newGateway(fb, "course-media", "", nil)

	removed, err := g.DeleteObject(context.Background(), "document/t/k/notes.pdf")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"document/t/k/notes.pdf"}, fb.removed)

	fb = &fakeBackend{statErr: noSuch("NoSuchKey")}
	g = newGateway(fb, "course-media", "", nil)
	removed, err = g.DeleteObject(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, fb.removed)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("VIDEO", "tenant-a", "../../Lecture 1 (final).mp4", "video/mp4")

	segments := strings.Split(key, "/")
	require.Len(t, segments, 4)
	assert.Equal(t, "video", segments[0])
	assert.Equal(t, "tenant-a", segments[1])
	assert.Len(t, segments[2], 36)
	assert.Equal(t, "Lecture_1_final.mp4", segments[3])

	assert.NotEqual(t, key, ObjectKey("VIDEO", "tenant-a", "../../Lecture 1 (final).mp4", "video/mp4"))
}

func TestSanitizeFilename_Fallback(t *testing.T) {
	assert.Equal(t, "file.pdf", SanitizeFilename("....", "application/pdf"))
	assert.Equal(t, "notes.txt", SanitizeFilename(`C:\Users\me\notes.txt`, "text/plain"))
}

func TestNormalizeETag(t *testing.T) {
	assert.Equal(t, "abc", NormalizeETag(`"abc"`))
	assert.Equal(t, "abc", NormalizeETag(" abc "))
	assert.Equal(t, `"abc`, NormalizeETag(`"abc`))
	assert.Equal(t, "", NormalizeETag(`""`))
}
