package diskmask

import (
	"errors"
	"fmt"
	"time"
)

// ErrFallbackToCPU indicates the registered accelerator cannot handle this
// run. The caller should transparently fall back to the CPU classifier.
var ErrFallbackToCPU = errors.New("diskmask: falling back to CPU classification")

// ErrCanceled indicates the run was canceled before the synchronization
// point completed. The result buffer content is undefined and is not
// returned to the caller.
var ErrCanceled = errors.New("diskmask: run canceled")

// ConfigError reports a configuration that violates a stated invariant.
// Configuration is validated eagerly: no work is issued before validation
// passes.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("diskmask: invalid config: %s %s", e.Field, e.Reason)
}

// ResourceError reports a buffer, binding, or pipeline allocation failure.
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("diskmask: allocate %s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// DispatchError reports a submission or execution failure. The failing
// tile's offset identifies which part of the domain was in flight; the
// remaining tile queue is aborted and no partial mask is exposed.
type DispatchError struct {
	TileX uint32
	TileY uint32
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("diskmask: dispatch tile at (%d, %d): %v", e.TileX, e.TileY, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// TimeoutError reports that the synchronization wait exceeded its bound.
// Distinct from DispatchError because the retry policy differs: a timeout
// may be retried with a longer bound, a device failure should not be
// blindly retried.
type TimeoutError struct {
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("diskmask: synchronization wait exceeded %v", e.Wait)
}
