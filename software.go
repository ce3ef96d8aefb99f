package diskmask

import (
	"context"
	"sync/atomic"

	"github.com/gogpu/diskmask/internal/parallel"
)

// Software is the CPU classifier. It runs the scalar Inside predicate over
// the identical tile grid the GPU dispatcher uses, with tiles executed
// concurrently on a worker pool. Because tiles cover the domain exactly
// once and write disjoint buffer ranges, the output is byte-identical to a
// single-threaded pass regardless of worker count or scheduling order.
//
// Software is also the independent oracle the accelerated backends are
// tested against.
type Software struct {
	tileSize uint32
	pool     *parallel.WorkerPool
}

var _ Classifier = (*Software)(nil)

// NewSoftware creates a CPU classifier with the default tile size and one
// worker per CPU.
func NewSoftware() *Software {
	return &Software{tileSize: DefaultTileSize}
}

// NewSoftwareWithOptions creates a CPU classifier with an explicit tile
// size and worker count, both falling back to defaults when 0. Tests use
// this to force unequal-remainder tile grids.
func NewSoftwareWithOptions(tileSize uint32, workers int) *Software {
	s := &Software{tileSize: tileSize}
	if s.tileSize == 0 {
		s.tileSize = DefaultTileSize
	}
	if workers != 0 {
		s.pool = parallel.NewWorkerPool(workers)
	}
	return s
}

// Name implements Classifier.
func (s *Software) Name() string { return "software" }

// Init implements Classifier. The CPU path has no resources to acquire.
func (s *Software) Init() error { return nil }

// Close releases the worker pool, if this classifier owns one.
func (s *Software) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

// Classify implements Classifier.
func (s *Software) Classify(ctx context.Context, cfg Config) (*Mask, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mask := newMask(cfg)
	if err := s.classify(ctx, cfg, mask.data); err != nil {
		return nil, err
	}
	return mask, nil
}

// ClassifyInto implements Classifier.
func (s *Software) ClassifyInto(ctx context.Context, cfg Config, dst []uint32) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(dst) < cfg.BufferLen() {
		return &ConfigError{Field: "dst", Reason: "shorter than stride*height"}
	}
	return s.classify(ctx, cfg, dst)
}

func (s *Software) classify(ctx context.Context, cfg Config, dst []uint32) error {
	tiles := TileGrid(cfg.Width, cfg.Height, s.tileSize, s.tileSize)
	if len(tiles) == 0 {
		return nil
	}
	stride := cfg.RowStride()

	// A canceled run must not look complete, so every job re-checks the
	// context and the run reports cancellation even when some tiles
	// already wrote their ranges.
	var canceled atomic.Bool
	jobs := make([]func(), len(tiles))
	for i, t := range tiles {
		tile := t
		jobs[i] = func() {
			if ctx.Err() != nil {
				canceled.Store(true)
				return
			}
			classifyTile(tile, cfg, stride, dst)
		}
	}

	pool := s.pool
	if pool == nil {
		pool = parallel.NewWorkerPool(0)
		defer pool.Close()
	}
	pool.ExecuteAll(jobs)

	if canceled.Load() || ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// classifyTile evaluates the predicate for every point of one tile and
// scatters the results at stride*gy + gx. The run origin shifts only the
// predicate coordinate, never the buffer address. This is the host-side
// mirror of the GPU kernel, invocation order irrelevant.
func classifyTile(t Tile, cfg Config, stride uint32, dst []uint32) {
	for ly := uint32(0); ly < t.Height; ly++ {
		gy := t.OffsetY + ly
		row := dst[int(stride)*int(gy):]
		for lx := uint32(0); lx < t.Width; lx++ {
			gx := t.OffsetX + lx
			var v uint32
			if Inside(cfg.OriginX+gx, cfg.OriginY+gy, cfg.Size) {
				v = 1
			}
			row[gx] = v
		}
	}
}
