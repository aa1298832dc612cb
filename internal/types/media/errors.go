package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors shared by the ledger, gateway and coordinator so that callers can
// branch on them with errors.Is regardless of which layer produced them.
var (
	// ErrQuotaExceeded indicates the tenant's allowance cannot cover the request.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrNotFound indicates a missing media record or upload session. Cross-tenant
	// lookups report this too.
	ErrNotFound = errors.New("media not found")

	// ErrIncompletePartData indicates parts were submitted without validators.
	ErrIncompletePartData = errors.New("incomplete part data")

	// ErrStoreUnavailable indicates a transient object-store failure.
	ErrStoreUnavailable = errors.New("object store unavailable")

	// ErrConflict indicates the media is in a state that forbids the operation.
	ErrConflict = errors.New("media state conflict")

	// ErrNotReady indicates the media has not finished uploading.
	ErrNotReady = errors.New("media not ready")

	// ErrInvalidRequest indicates malformed input.
	ErrInvalidRequest = errors.New("invalid request")
)

// IncompletePartsError lists the part numbers whose eTag was missing
type IncompletePartsError struct {
	PartNumbers []int
}

func (e *IncompletePartsError) Error() string {
	nums := make([]string, len(e.PartNumbers))
	for i, n := range e.PartNumbers {
		nums[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("%s: missing eTag for parts [%s]", ErrIncompletePartData, strings.Join(nums, ", "))
}

func (e *IncompletePartsError) Unwrap() error {
	return ErrIncompletePartData
}

// MissingETags returns the part numbers in parts whose eTag is blank
func MissingETags(parts []Part) []int {
	var missing []int
	for _, p := range parts {
		if strings.TrimSpace(strings.Trim(p.ETag, `"`)) == "" {
			missing = append(missing, p.PartNumber)
		}
	}
	return missing
}

// IsRetryable reports whether the caller may retry the same request unchanged
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
