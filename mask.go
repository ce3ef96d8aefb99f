package diskmask

import (
	"fmt"
	"io"
	"strings"
)

// Mask is the result of one classification run: a flat buffer of uint32
// values restricted to {0,1}, addressed as stride*y + x.
//
// Interpretation of the mask (area sum, image, quadrature) belongs to the
// caller; the helpers below run on the host over the already-read-back
// buffer, never on the accelerator.
type Mask struct {
	data   []uint32
	width  uint32
	height uint32
	stride uint32
}

// NewMask wraps an existing buffer. The buffer must hold at least
// stride*height elements; NewMask panics otherwise, because a short buffer
// is a programming error that would otherwise surface as silent aliasing.
func NewMask(data []uint32, width, height, stride uint32) *Mask {
	if uint64(len(data)) < uint64(stride)*uint64(height) {
		panic(fmt.Sprintf("diskmask: buffer holds %d elements, need %d", len(data), uint64(stride)*uint64(height)))
	}
	return &Mask{data: data, width: width, height: height, stride: stride}
}

func newMask(cfg Config) *Mask {
	return &Mask{
		data:   make([]uint32, cfg.BufferLen()),
		width:  cfg.Width,
		height: cfg.Height,
		stride: cfg.RowStride(),
	}
}

// Width returns the domain width in lattice points.
func (m *Mask) Width() uint32 { return m.width }

// Height returns the domain height in lattice points.
func (m *Mask) Height() uint32 { return m.height }

// Stride returns the row pitch of the underlying buffer in elements.
func (m *Mask) Stride() uint32 { return m.stride }

// Data returns the underlying flat buffer, including any row padding.
func (m *Mask) Data() []uint32 { return m.data }

// At returns the classification of the point (x, y): 1 inside, 0 outside.
// Coordinates outside the domain return 0.
func (m *Mask) At(x, y uint32) uint32 {
	if x >= m.width || y >= m.height {
		return 0
	}
	return m.data[int(m.stride)*int(y)+int(x)]
}

// Row returns the y-th row of the mask without padding.
func (m *Mask) Row(y uint32) []uint32 {
	start := int(m.stride) * int(y)
	return m.data[start : start+int(m.width)]
}

// InsideCount sums the mask over the domain, skipping padding elements.
// For a quadrature caller this is the number of lattice points inside the
// disk.
func (m *Mask) InsideCount() uint64 {
	var total uint64
	for y := uint32(0); y < m.height; y++ {
		for _, v := range m.Row(y) {
			total += uint64(v)
		}
	}
	return total
}

// WriteTo writes the mask as rows of '0' and '1' characters, row-major,
// one row per line. It implements io.WriterTo.
func (m *Mask) WriteTo(w io.Writer) (int64, error) {
	var written int64
	var sb strings.Builder
	for y := uint32(0); y < m.height; y++ {
		sb.Reset()
		sb.Grow(int(m.width) + 1)
		for _, v := range m.Row(y) {
			if v == 0 {
				sb.WriteByte('0')
			} else {
				sb.WriteByte('1')
			}
		}
		sb.WriteByte('\n')
		n, err := io.WriteString(w, sb.String())
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
