package diskmask

import "testing"

func TestInsideSmallSizes(t *testing.T) {
	// size 0 and 1 must mark nothing inside: explicit clamp, not
	// unsigned wraparound.
	for _, size := range []uint32{0, 1} {
		for y := uint32(0); y < 8; y++ {
			for x := uint32(0); x < 8; x++ {
				if Inside(x, y, size) {
					t.Errorf("Inside(%d, %d, %d) = true, want false", x, y, size)
				}
			}
		}
	}
}

func TestInsideKnownPoints(t *testing.T) {
	// size=5: radius 4, threshold 16.
	tests := []struct {
		x, y, size uint32
		want       bool
	}{
		{0, 0, 5, true},
		{3, 3, 5, false}, // 9+9=18 >= 16
		{2, 3, 5, true},  // 4+9=13 < 16
		{4, 0, 5, false}, // exactly on the radius is excluded
		{0, 4, 5, false},
		{3, 0, 5, true},
		{0, 0, 2, true},
		{1, 0, 2, false},           // on radius 1
		{46340, 0, MaxSize, false}, // 46340² == (MaxSize-1)², on the radius
		{46339, 0, MaxSize, true},
	}

	for _, tt := range tests {
		if got := Inside(tt.x, tt.y, tt.size); got != tt.want {
			t.Errorf("Inside(%d, %d, %d) = %v, want %v", tt.x, tt.y, tt.size, got, tt.want)
		}
	}
}

func TestInsideStrictBoundary(t *testing.T) {
	// Pythagorean points land exactly on the radius and must be excluded.
	// 3-4-5 triangle with size=6 (radius 5).
	if Inside(3, 4, 6) {
		t.Error("Inside(3, 4, 6) = true, point on radius must be excluded")
	}
	if !Inside(3, 3, 6) {
		t.Error("Inside(3, 3, 6) = false, want true")
	}
}
