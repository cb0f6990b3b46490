package queue

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable tags failures of the local durable store itself
// (database unreachable, disk full). Callers must not assume an enqueue
// reached disk when a returned error matches this sentinel; the payload is
// still only in memory.
var ErrStorageUnavailable = errors.New("upload store unavailable")

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
