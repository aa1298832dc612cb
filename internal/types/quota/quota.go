package quota

import (
	"fmt"
	"strings"
	"time"
)

// Class is a named storage-allowance bucket tracked per tenant
type Class string

const (
	ClassVideo    Class = "VIDEO"
	ClassDocument Class = "DOCUMENT"
	ClassTotal    Class = "TOTAL"
)

// ParseClass accepts any casing of a known class name
func ParseClass(s string) (Class, error) {
	switch c := Class(strings.ToUpper(strings.TrimSpace(s))); c {
	case ClassVideo, ClassDocument, ClassTotal:
		return c, nil
	default:
		return "", fmt.Errorf("unknown quota class %q", s)
	}
}

// Record is the allowance of one (tenant, class) pair
type Record struct {
	TenantID   string    `json:"tenant_id" db:"tenant_id"`
	Class      Class     `json:"quota_class" db:"quota_class"`
	TotalBytes int64     `json:"total_bytes" db:"total_bytes"`
	UsedBytes  int64     `json:"used_bytes" db:"used_bytes"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

// Available returns the unreserved bytes, never negative
func (r Record) Available() int64 {
	if r.UsedBytes >= r.TotalBytes {
		return 0
	}
	return r.TotalBytes - r.UsedBytes
}

// Expired reports whether the allowance is no longer valid at now
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// SetQuotaRequest is the admin payload for upserting an allowance
type SetQuotaRequest struct {
	Class      Class     `json:"quota_class" validate:"required,oneof=VIDEO DOCUMENT TOTAL"`
	TotalBytes int64     `json:"total_bytes" validate:"min=0"`
	ExpiresAt  time.Time `json:"expires_at" validate:"required"`
}
