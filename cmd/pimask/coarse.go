package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/diskmask"
)

// runConfig is the resolved run configuration, assembled from the YAML
// file (when given) and flag overrides.
type runConfig struct {
	Size      uint32 `yaml:"size"`
	Coarse    bool   `yaml:"coarse"`
	Grid      uint32 `yaml:"grid"`
	StridePad uint32 `yaml:"stride_pad"`
}

func (r *runConfig) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type classifyFunc func(context.Context, diskmask.Config) (*diskmask.Mask, error)

// coarseCount counts the quarter-disk lattice points by splitting the
// size x size domain into a grid of squares and dispatching only the
// squares the disk boundary crosses. Squares wholly inside the disk are
// counted full without touching the accelerator; squares wholly outside
// contribute nothing.
//
// The classification is monotone in distance from the origin, so a square
// is wholly inside when its far corner is inside and wholly outside when
// its near corner is not.
func coarseCount(ctx context.Context, run runConfig, classify classifyFunc) (uint64, error) {
	square := (run.Size + run.Grid - 1) / run.Grid

	var total uint64
	for _, t := range diskmask.TileGrid(run.Size, run.Size, square, square) {
		near := diskmask.Inside(t.OffsetX, t.OffsetY, run.Size)
		far := diskmask.Inside(t.OffsetX+t.Width-1, t.OffsetY+t.Height-1, run.Size)

		switch {
		case far:
			total += uint64(t.Width) * uint64(t.Height)
		case !near:
			// Entirely outside.
		default:
			mask, err := classify(ctx, diskmask.Config{
				Size:    run.Size,
				Width:   t.Width,
				Height:  t.Height,
				Stride:  t.Width + run.StridePad,
				OriginX: t.OffsetX,
				OriginY: t.OffsetY,
			})
			if err != nil {
				return 0, fmt.Errorf("classify square (%d, %d): %w", t.OffsetX, t.OffsetY, err)
			}
			total += mask.InsideCount()
		}
	}
	return total, nil
}
