package uploader

import (
	"errors"
	"fmt"
)

// ErrNetworkUnreachable tags transport-level failures (DNS, refused
// connections, timeouts) on either phase of a delivery.
var ErrNetworkUnreachable = errors.New("network unreachable")

// ObjectStoreError reports a non-success status from the object storage write.
type ObjectStoreError struct {
	Status int
}

func (e *ObjectStoreError) Error() string {
	return fmt.Sprintf("object store returned %d", e.Status)
}

// MetadataError reports a non-success status from the submission metadata RPC.
// The photo object already exists at its deterministic path when this occurs;
// the next attempt overwrites it.
type MetadataError struct {
	Status int
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata registration returned %d", e.Status)
}

// Retryable reports whether a delivery error is worth another attempt. Every
// delivery failure is retryable up to the queue's eviction budget; the
// distinction between kinds exists for logging only.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var storeErr *ObjectStoreError
	var metaErr *MetadataError
	return errors.Is(err, ErrNetworkUnreachable) || errors.As(err, &storeErr) || errors.As(err, &metaErr)
}
