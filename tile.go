package diskmask

// Tile size constants shared by every backend.
//
// The GPU kernel runs 16x16 invocations per workgroup, so tile dimensions
// are workgroup-aligned. DefaultTileSize keeps one tile within common
// per-dispatch invocation limits while staying a multiple of the workgroup
// edge.
const (
	// WorkgroupSize is the kernel workgroup edge in invocations.
	WorkgroupSize = 16

	// DefaultTileSize is the default tile edge in lattice points.
	DefaultTileSize = 256
)

// Tile is a rectangular sub-region of the lattice sized to fit one
// dispatch.
//
// OffsetX/OffsetY translate tile-local invocation coordinates to global
// lattice coordinates; Width/Height are the clamped extent, so edge tiles
// of a domain not evenly divisible by the tile size are smaller than the
// nominal tile. A tile never covers a coordinate at or beyond the domain
// bounds.
type Tile struct {
	// I and J are the tile's column and row in the tile grid.
	I, J int

	// OffsetX and OffsetY are the tile's global lattice origin.
	OffsetX, OffsetY uint32

	// Width and Height are the tile's extent in lattice points.
	Width, Height uint32
}

// Workgroups returns the dispatch size in 16x16 workgroups, rounded up so
// a non-multiple-of-16 tile is fully covered. The kernel bounds-checks the
// over-dispatched invocations against the tile extent and no-ops them.
func (t Tile) Workgroups() (x, y uint32) {
	return (t.Width + WorkgroupSize - 1) / WorkgroupSize,
		(t.Height + WorkgroupSize - 1) / WorkgroupSize
}

// TileGrid covers the domain [0,width) x [0,height) with tiles of nominal
// size tx by ty, row-major. Every lattice point in the domain belongs to
// exactly one tile, which is what makes concurrent tile dispatch race-free:
// no two tiles ever write the same stride*y + x index.
//
// An empty domain yields no tiles. tx and ty of zero fall back to
// DefaultTileSize.
func TileGrid(width, height, tx, ty uint32) []Tile {
	if width == 0 || height == 0 {
		return nil
	}
	if tx == 0 {
		tx = DefaultTileSize
	}
	if ty == 0 {
		ty = DefaultTileSize
	}

	tilesX := int((width + tx - 1) / tx)
	tilesY := int((height + ty - 1) / ty)

	tiles := make([]Tile, 0, tilesX*tilesY)
	for j := 0; j < tilesY; j++ {
		for i := 0; i < tilesX; i++ {
			t := Tile{
				I: i, J: j,
				OffsetX: uint32(i) * tx,
				OffsetY: uint32(j) * ty,
				Width:   tx,
				Height:  ty,
			}
			// Clamp edge tiles to the domain.
			if t.OffsetX+t.Width > width {
				t.Width = width - t.OffsetX
			}
			if t.OffsetY+t.Height > height {
				t.Height = height - t.OffsetY
			}
			tiles = append(tiles, t)
		}
	}
	return tiles
}
