package diskmask

// Overflow safety bounds for 32-bit kernel arithmetic.
//
// The predicate computes x²+y² and (size-1)² in u32. The sum of two squares
// stays below 2^32 as long as both coordinates are at most 46340
// (2*46340² = 4294867200 < 2^32), so any wider domain or size would let the
// kernel wrap and misclassify.
const (
	// MaxSize is the largest supported circle size parameter.
	MaxSize = 46341

	// MaxExtent is the largest supported domain width and height.
	// The largest coordinate produced is MaxExtent-1.
	MaxExtent = 46341
)

// Config describes one classification run. It is immutable for the run's
// duration and shared read-only by every tile dispatch.
type Config struct {
	// Size is the circle size parameter: the disk radius is Size-1.
	// Size values of 0 and 1 are valid and mark no point inside.
	Size uint32

	// Width and Height declare the lattice domain [0,Width) x [0,Height).
	Width  uint32
	Height uint32

	// Stride is the row pitch of the result buffer in elements.
	// Zero means "use Width". Values larger than Width produce padded
	// rows; values smaller than Width are rejected because row writes
	// would alias.
	Stride uint32

	// OriginX and OriginY translate the run to a sub-rectangle of the
	// lattice: the point classified at buffer position (x, y) is
	// (OriginX+x, OriginY+y). Zero origins classify the lattice from
	// its corner. Quadrature callers use nonzero origins to classify
	// only the squares the disk boundary crosses.
	OriginX uint32
	OriginY uint32
}

// RowStride returns the effective stride: Stride, or Width when Stride is 0.
func (c Config) RowStride() uint32 {
	if c.Stride == 0 {
		return c.Width
	}
	return c.Stride
}

// BufferLen returns the number of uint32 elements the result buffer holds.
func (c Config) BufferLen() int {
	return int(c.RowStride()) * int(c.Height)
}

// Validate checks the configuration against the documented invariants.
// It is called eagerly by every classifier before any work is issued, so a
// bad configuration never performs partial work.
func (c Config) Validate() error {
	if c.Size > MaxSize {
		return &ConfigError{Field: "Size", Reason: "exceeds MaxSize"}
	}
	if c.Width > MaxExtent || c.OriginX > MaxExtent-c.Width {
		return &ConfigError{Field: "Width", Reason: "OriginX+Width exceeds MaxExtent"}
	}
	if c.Height > MaxExtent || c.OriginY > MaxExtent-c.Height {
		return &ConfigError{Field: "Height", Reason: "OriginY+Height exceeds MaxExtent"}
	}
	if c.Stride != 0 && c.Stride < c.Width {
		return &ConfigError{Field: "Stride", Reason: "smaller than Width, row writes would alias"}
	}
	return nil
}
