package diskmask

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// mockClassifier implements Classifier for registry tests.
type mockClassifier struct {
	name     string
	initErr  error
	runErr   error
	closed   bool
	runs     int
	mu       sync.Mutex
	lastLog  *slog.Logger
}

func (m *mockClassifier) Name() string { return m.name }

func (m *mockClassifier) Init() error { return m.initErr }

func (m *mockClassifier) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *mockClassifier) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockClassifier) SetLogger(l *slog.Logger) {
	m.mu.Lock()
	m.lastLog = l
	m.mu.Unlock()
}

func (m *mockClassifier) Classify(ctx context.Context, cfg Config) (*Mask, error) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
	if m.runErr != nil {
		return nil, m.runErr
	}
	return newMask(cfg), nil
}

func (m *mockClassifier) ClassifyInto(ctx context.Context, cfg Config, dst []uint32) error {
	_, err := m.Classify(ctx, cfg)
	return err
}

// resetClassifier clears the global registry state between tests.
func resetClassifier() {
	classifierMu.Lock()
	classifier = nil
	classifierMu.Unlock()
}

func TestRegisterClassifierNil(t *testing.T) {
	defer resetClassifier()
	if err := RegisterClassifier(nil); err == nil {
		t.Fatal("RegisterClassifier(nil) = nil, want error")
	}
}

func TestRegisterClassifierInitError(t *testing.T) {
	defer resetClassifier()
	wantErr := errors.New("no device")
	err := RegisterClassifier(&mockClassifier{name: "mock", initErr: wantErr})
	if !errors.Is(err, wantErr) {
		t.Fatalf("RegisterClassifier init error = %v, want %v", err, wantErr)
	}
	if RegisteredClassifier() != nil {
		t.Error("failed Init must not register the classifier")
	}
}

func TestRegisterClassifierReplacesOld(t *testing.T) {
	defer resetClassifier()
	old := &mockClassifier{name: "old"}
	if err := RegisterClassifier(old); err != nil {
		t.Fatal(err)
	}
	replacement := &mockClassifier{name: "new"}
	if err := RegisterClassifier(replacement); err != nil {
		t.Fatal(err)
	}
	if !old.isClosed() {
		t.Error("replaced classifier was not closed")
	}
	if got := RegisteredClassifier(); got != replacement {
		t.Errorf("RegisteredClassifier() = %v, want the replacement", got)
	}
}

func TestClassifyWithoutClassifierUsesSoftware(t *testing.T) {
	defer resetClassifier()
	mask, err := Classify(context.Background(), Config{Size: 5, Width: 5, Height: 5})
	if err != nil {
		t.Fatal(err)
	}
	if mask.At(0, 0) != 1 {
		t.Error("software fallback produced an empty mask")
	}
}

func TestClassifyFallsBackOnErrFallbackToCPU(t *testing.T) {
	defer resetClassifier()
	mock := &mockClassifier{name: "declining", runErr: ErrFallbackToCPU}
	if err := RegisterClassifier(mock); err != nil {
		t.Fatal(err)
	}
	mask, err := Classify(context.Background(), Config{Size: 5, Width: 5, Height: 5})
	if err != nil {
		t.Fatal(err)
	}
	if mock.runs != 1 {
		t.Errorf("accelerated classifier ran %d times, want 1", mock.runs)
	}
	if mask.At(2, 3) != 1 {
		t.Error("fallback mask incorrect at (2, 3)")
	}
}

func TestClassifyDoesNotRetryDeviceFailures(t *testing.T) {
	defer resetClassifier()
	devErr := &DispatchError{TileX: 37, TileY: 74, Err: errors.New("device lost")}
	if err := RegisterClassifier(&mockClassifier{name: "failing", runErr: devErr}); err != nil {
		t.Fatal(err)
	}
	_, err := Classify(context.Background(), Config{Size: 5, Width: 5, Height: 5})
	var dispErr *DispatchError
	if !errors.As(err, &dispErr) {
		t.Fatalf("Classify error = %v, want the *DispatchError surfaced as-is", err)
	}
	if dispErr.TileX != 37 || dispErr.TileY != 74 {
		t.Errorf("failing tile = (%d, %d), want (37, 74)", dispErr.TileX, dispErr.TileY)
	}
}

func TestClassifyValidatesEagerly(t *testing.T) {
	defer resetClassifier()
	mock := &mockClassifier{name: "mock"}
	if err := RegisterClassifier(mock); err != nil {
		t.Fatal(err)
	}
	_, err := Classify(context.Background(), Config{Size: 5, Width: 5, Height: 5, Stride: 3})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Classify error = %v, want *ConfigError", err)
	}
	if mock.runs != 0 {
		t.Error("invalid configuration reached the classifier, want fail-fast")
	}
}

func TestSetClassifierDeviceProviderWithoutClassifier(t *testing.T) {
	defer resetClassifier()
	if err := SetClassifierDeviceProvider(NullDeviceHandle{}); err != nil {
		t.Errorf("SetClassifierDeviceProvider with no classifier = %v, want nil", err)
	}
}
