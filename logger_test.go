package diskmask

import (
	"context"
	"log/slog"
	"os"
	"testing"
)

func TestLoggerDefaultIsSilent(t *testing.T) {
	SetLogger(nil)
	l := Logger()
	if l == nil {
		t.Fatal("Logger() = nil, want nop logger")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger reports enabled, want disabled at every level")
	}
}

func TestSetLoggerPropagatesToClassifier(t *testing.T) {
	defer resetClassifier()
	defer SetLogger(nil)

	mock := &mockClassifier{name: "mock"}
	if err := RegisterClassifier(mock); err != nil {
		t.Fatal(err)
	}

	l := slog.New(slog.NewTextHandler(os.Stderr, nil))
	SetLogger(l)

	mock.mu.Lock()
	got := mock.lastLog
	mock.mu.Unlock()
	if got != l {
		t.Error("SetLogger did not propagate to the registered classifier")
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	SetLogger(slog.Default())
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) did not restore the silent logger")
	}
}
