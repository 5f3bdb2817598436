package model

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned when no record exists for the requested ID.
var ErrRecordNotFound = errors.New("record not found")

// StorageError indicates the durable store could not read or write. The
// operation is fatal but existing data is never corrupted; callers retry on
// the next trigger.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NetworkError indicates an attachment upload or record submission failed.
// Recoverable; drives the retry counter.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// QuotaExceededError indicates local storage is full. Surfaced to the user,
// not auto-retried.
type QuotaExceededError struct {
	UsedBytes  int64
	QuotaBytes int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage quota exceeded: %d of %d bytes used", e.UsedBytes, e.QuotaBytes)
}

// PartialDeliveryError indicates some attachments uploaded before the
// delivery failed. The uploaded remote binaries are orphaned; for retry
// purposes this counts as a network failure.
type PartialDeliveryError struct {
	Uploaded int
	Err      error
}

func (e *PartialDeliveryError) Error() string {
	return fmt.Sprintf("partial delivery after %d uploaded attachments: %v", e.Uploaded, e.Err)
}

func (e *PartialDeliveryError) Unwrap() error { return e.Err }

// Classify returns a short class label for an error, for logs and
// notifications. Unrecognised errors classify as "internal".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var (
		storageErr *StorageError
		networkErr *NetworkError
		quotaErr   *QuotaExceededError
		partialErr *PartialDeliveryError
	)
	switch {
	case errors.As(err, &quotaErr):
		return "quota_exceeded"
	case errors.As(err, &partialErr):
		return "partial_delivery"
	case errors.As(err, &networkErr):
		return "network"
	case errors.As(err, &storageErr):
		return "storage"
	case errors.Is(err, ErrRecordNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// IsRecoverable reports whether a delivery failure should drive the retry
// counter. Quota exhaustion is not recoverable by retrying.
func IsRecoverable(err error) bool {
	var quotaErr *QuotaExceededError
	return err != nil && !errors.As(err, &quotaErr)
}
