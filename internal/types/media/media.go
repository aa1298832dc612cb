package media

import (
	"strings"
	"time"

	"github.com/princekumarofficial/course-media-service/internal/types/quota"
)

// Type is the closed set of media kinds an institution can upload
type Type string

const (
	TypeVideo    Type = "VIDEO"
	TypeAudio    Type = "AUDIO"
	TypeDocument Type = "DOCUMENT"
)

// Status is the persisted lifecycle state of a media record
type Status string

const (
	StatusUploading Status = "UPLOADING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// TypeFromContentType classifies a MIME type by its top-level prefix
func TypeFromContentType(contentType string) Type {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "video/"):
		return TypeVideo
	case strings.HasPrefix(ct, "audio/"):
		return TypeAudio
	default:
		return TypeDocument
	}
}

// QuotaClassFor maps a media type to the allowance it is charged against.
// Audio shares the streaming-media allowance with video.
func QuotaClassFor(t Type) quota.Class {
	switch t {
	case TypeVideo, TypeAudio:
		return quota.ClassVideo
	default:
		return quota.ClassDocument
	}
}

// Record represents an uploaded (or uploading) media file in the catalog
type Record struct {
	ID               string     `json:"id" db:"id"`
	TenantID         string     `json:"tenant_id" db:"tenant_id"`
	Title            string     `json:"title" db:"title"`
	Type             Type       `json:"type" db:"media_type"`
	DeclaredSize     int64      `json:"declared_size_bytes" db:"declared_size_bytes"`
	ActualSize       int64      `json:"actual_size_bytes" db:"actual_size_bytes"`
	OriginalFilename string     `json:"original_filename" db:"original_filename"`
	StorageKey       string     `json:"storage_key" db:"storage_key"`
	Status           Status     `json:"status" db:"status"`
	UploaderID       string     `json:"uploader_id" db:"uploader_id"`
	UploadTime       time.Time  `json:"upload_time" db:"upload_time"`
	LastAccessTime   *time.Time `json:"last_access_time,omitempty" db:"last_access_time"`
}

// UploadSession is the ephemeral state of one in-flight multipart upload
type UploadSession struct {
	MediaID         string    `json:"media_id"`
	TenantID        string    `json:"tenant_id"`
	UploaderID      string    `json:"uploader_id"`
	BackendUploadID string    `json:"backend_upload_id"`
	ObjectKey       string    `json:"object_key"`
	ContentType     string    `json:"content_type"`
	DeclaredSize    int64     `json:"declared_size_bytes"`
	ChunkSize       int64     `json:"chunk_size_bytes"`
	TotalParts      int       `json:"total_parts"`
	InitiatedAt     time.Time `json:"initiated_at"`
	LastUpdatedAt   time.Time `json:"last_updated_at"`
}

// Part identifies one uploaded part by its number and validator
type Part struct {
	PartNumber int    `json:"part_number" validate:"min=1,max=10000"`
	ETag       string `json:"etag"`
}

// PartURL is a presigned PUT capability for a single part
type PartURL struct {
	PartNumber int    `json:"part_number"`
	URL        string `json:"url"`
}

// InitiateUploadRequest is the client payload to start a multipart upload
type InitiateUploadRequest struct {
	Title       string `json:"title" validate:"max=255"`
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int64  `json:"size" validate:"required,min=1"`
	ChunkSize   int64  `json:"chunk_size,omitempty" validate:"omitempty,min=1"`
}

// CompleteUploadRequest lists every part the client uploaded
type CompleteUploadRequest struct {
	Parts []Part `json:"parts" validate:"required,min=1,dive"`
}

// RefreshPartURLsRequest asks for new presigned URLs for specific parts
type RefreshPartURLsRequest struct {
	PartNumbers []int `json:"part_numbers" validate:"required,min=1,dive,min=1"`
}
