// Command pimask estimates pi by counting the lattice points of a quarter
// disk. It drives the diskmask classification core and owns everything the
// core deliberately does not: aggregation, reporting, and rendering.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/gogpu/diskmask"
	_ "github.com/gogpu/diskmask/gpu" // enable GPU dispatch
)

func main() {
	var (
		size       int64
		coarse     bool
		grid       int64
		stridePad  int64
		forceCPU   bool
		configPath string
		jsonOut    string
		dump       bool
		preview    string
		scale      int64
		verbose    bool
	)

	app := &cli.Command{
		Name:  "pimask",
		Usage: "Estimate pi from a GPU-computed quarter-disk lattice mask",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "size",
				Aliases:     []string{"n"},
				Usage:       "lattice size (disk radius is size-1)",
				Value:       1024,
				Destination: &size,
			},
			&cli.BoolFlag{
				Name:        "coarse",
				Usage:       "count interior squares without dispatch, classify boundary squares only",
				Destination: &coarse,
			},
			&cli.Int64Flag{
				Name:        "grid",
				Usage:       "coarse mode square grid edge",
				Value:       8,
				Destination: &grid,
			},
			&cli.Int64Flag{
				Name:        "stride-pad",
				Usage:       "extra elements of row padding in the result buffer",
				Destination: &stridePad,
			},
			&cli.BoolFlag{
				Name:        "cpu",
				Usage:       "force the CPU classifier",
				Destination: &forceCPU,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "YAML run configuration (flags override it)",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "json",
				Usage:       "write a JSON run report to this file ('-' for stdout)",
				Destination: &jsonOut,
			},
			&cli.BoolFlag{
				Name:        "dump",
				Usage:       "print the mask as rows of 0/1 (fine mode only)",
				Destination: &dump,
			},
			&cli.StringFlag{
				Name:        "preview",
				Usage:       "write a PNG preview of the mask to this file (fine mode only)",
				Destination: &preview,
			},
			&cli.Int64Flag{
				Name:        "scale",
				Usage:       "preview upscaling factor",
				Value:       1,
				Destination: &scale,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "log dispatch internals to stderr",
				Destination: &verbose,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if verbose {
				diskmask.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}

			run := runConfig{
				Size:      uint32(size),
				Coarse:    coarse,
				Grid:      uint32(grid),
				StridePad: uint32(stridePad),
			}
			if configPath != "" {
				if err := run.loadYAML(configPath); err != nil {
					return err
				}
				applyFlagOverrides(cmd, &run, size, coarse, grid, stridePad)
			}
			if run.Size < 2 {
				return fmt.Errorf("size must be at least 2, got %d", run.Size)
			}
			if run.Coarse && run.Grid < 1 {
				return fmt.Errorf("grid must be at least 1, got %d", run.Grid)
			}

			classify := diskmask.Classify
			classifierName := "auto"
			if forceCPU {
				sw := diskmask.NewSoftware()
				classify = sw.Classify
				classifierName = sw.Name()
			} else if c := diskmask.RegisteredClassifier(); c != nil {
				classifierName = c.Name()
			}

			start := time.Now()
			var (
				total uint64
				mask  *diskmask.Mask
				err   error
			)
			if run.Coarse {
				total, err = coarseCount(ctx, run, classify)
			} else {
				mask, err = classify(ctx, diskmask.Config{
					Size:   run.Size,
					Width:  run.Size,
					Height: run.Size,
					Stride: run.Size + run.StridePad,
				})
				if err == nil {
					total = mask.InsideCount()
				}
			}
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			r := uint64(run.Size - 1)
			estimate := 4 * float64(total) / float64(r*r)
			fmt.Printf("pi = %d/%d ≈ %.9f\n", 4*total, r*r, estimate)

			if dump && mask != nil {
				if _, err := mask.WriteTo(os.Stdout); err != nil {
					return err
				}
			}
			if preview != "" && mask != nil {
				if err := writePreview(preview, mask, int(scale)); err != nil {
					return fmt.Errorf("write preview: %w", err)
				}
			}
			if jsonOut != "" {
				rep := newReport(run, classifierName, total, estimate, elapsed)
				if err := rep.write(jsonOut); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlagOverrides re-applies flags the user set explicitly on top of the
// YAML configuration.
func applyFlagOverrides(cmd *cli.Command, run *runConfig, size int64, coarse bool, grid, stridePad int64) {
	if cmd.IsSet("size") {
		run.Size = uint32(size)
	}
	if cmd.IsSet("coarse") {
		run.Coarse = coarse
	}
	if cmd.IsSet("grid") {
		run.Grid = uint32(grid)
	}
	if cmd.IsSet("stride-pad") {
		run.StridePad = uint32(stridePad)
	}
}
