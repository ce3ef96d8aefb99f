package diskmask

import (
	"context"
	"errors"
	"sync"
)

// Classifier computes disk masks. Implementations must produce buffers that
// are bit-identical to the scalar Inside predicate for every point of the
// domain, independent of tiling and dispatch order.
//
// Implementations are provided by backend packages (gpu/ for WebGPU
// compute); the CPU Software classifier is always available.
type Classifier interface {
	// Name returns the classifier name (e.g., "wgpu", "software").
	Name() string

	// Init initializes backend resources. Called once during registration.
	Init() error

	// Close releases backend resources.
	Close()

	// Classify runs one classification and returns the mask.
	// Returns ErrFallbackToCPU if the run cannot be handled by this
	// backend, a ConfigError for invalid configurations, and
	// ResourceError/DispatchError/TimeoutError for backend failures.
	//
	// The context cancels the run; a canceled run returns ctx.Err() (or
	// ErrCanceled) and never exposes a partially written mask.
	Classify(ctx context.Context, cfg Config) (*Mask, error)

	// ClassifyInto runs one classification into a caller-owned buffer of
	// at least cfg.BufferLen() elements, for callers that manage padded
	// buffers themselves.
	ClassifyInto(ctx context.Context, cfg Config, dst []uint32) error
}

// DeviceProviderAware is an optional interface for classifiers that can
// share a GPU device with an external provider (e.g., a gogpu window)
// instead of creating their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	classifierMu sync.RWMutex
	classifier   Classifier
)

// RegisterClassifier registers an accelerated classifier.
//
// Only one classifier can be registered; subsequent calls replace the
// previous one. The classifier's Init() method is called during
// registration, and on failure the classifier is not registered and the
// error is returned.
//
// Typical usage via blank import in backend packages:
//
//	func init() {
//	    diskmask.RegisterClassifier(gpu.NewDispatcher())
//	}
func RegisterClassifier(c Classifier) error {
	if c == nil {
		return errors.New("diskmask: classifier must not be nil")
	}
	if err := c.Init(); err != nil {
		return err
	}
	propagateLogger(c, Logger())
	classifierMu.Lock()
	old := classifier
	classifier = c
	classifierMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// RegisteredClassifier returns the currently registered accelerated
// classifier, or nil if none.
func RegisteredClassifier() Classifier {
	classifierMu.RLock()
	c := classifier
	classifierMu.RUnlock()
	return c
}

// SetClassifierDeviceProvider passes a device provider to the registered
// classifier, enabling GPU device sharing. If no classifier is registered
// or it does not support device sharing, this is a no-op.
func SetClassifierDeviceProvider(provider any) error {
	c := RegisteredClassifier()
	if c == nil {
		return nil
	}
	if dpa, ok := c.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}

// Classify runs one classification with the registered accelerated
// classifier, transparently falling back to the CPU path when none is
// registered or the backend declines the run with ErrFallbackToCPU.
// Any other backend error is returned as-is: a device failure is not
// silently recomputed on the CPU.
func Classify(ctx context.Context, cfg Config) (*Mask, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c := RegisteredClassifier(); c != nil {
		mask, err := c.Classify(ctx, cfg)
		if err == nil {
			return mask, nil
		}
		if !errors.Is(err, ErrFallbackToCPU) {
			return nil, err
		}
		Logger().Warn("accelerated classification declined, using CPU",
			"classifier", c.Name())
	}
	return NewSoftware().Classify(ctx, cfg)
}
