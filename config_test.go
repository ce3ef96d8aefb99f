package diskmask

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero config", Config{}, false},
		{"typical", Config{Size: 1024, Width: 1024, Height: 1024}, false},
		{"padded stride", Config{Size: 5, Width: 5, Height: 5, Stride: 10}, false},
		{"stride smaller than width", Config{Size: 5, Width: 5, Height: 5, Stride: 4}, true},
		{"size too large", Config{Size: MaxSize + 1, Width: 1, Height: 1}, true},
		{"width too large", Config{Size: 2, Width: MaxExtent + 1, Height: 1}, true},
		{"height too large", Config{Size: 2, Width: 1, Height: MaxExtent + 1}, true},
		{"origin pushes width past bound", Config{Size: 2, Width: 100, Height: 1, OriginX: MaxExtent - 50}, true},
		{"origin pushes height past bound", Config{Size: 2, Width: 1, Height: 100, OriginY: MaxExtent - 50}, true},
		{"max extent exactly", Config{Size: 2, Width: MaxExtent, Height: MaxExtent}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("Validate() error type = %T, want *ConfigError", err)
				}
			}
		})
	}
}

func TestConfigRowStride(t *testing.T) {
	if got := (Config{Width: 7}).RowStride(); got != 7 {
		t.Errorf("RowStride() = %d, want 7 (default to Width)", got)
	}
	if got := (Config{Width: 7, Stride: 12}).RowStride(); got != 12 {
		t.Errorf("RowStride() = %d, want 12", got)
	}
}

func TestConfigBufferLen(t *testing.T) {
	cfg := Config{Width: 5, Height: 3, Stride: 10}
	if got := cfg.BufferLen(); got != 30 {
		t.Errorf("BufferLen() = %d, want 30", got)
	}
}
