package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// report is the machine-readable summary of one run.
type report struct {
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Classifier string    `json:"classifier"`
	Size       uint32    `json:"size"`
	Coarse     bool      `json:"coarse"`
	Grid       uint32    `json:"grid,omitempty"`
	StridePad  uint32    `json:"stride_pad,omitempty"`
	Total      uint64    `json:"inside_count"`
	Estimate   float64   `json:"pi_estimate"`
	ElapsedMS  float64   `json:"elapsed_ms"`
}

func newReport(run runConfig, classifier string, total uint64, estimate float64, elapsed time.Duration) *report {
	rep := &report{
		RunID:      uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Classifier: classifier,
		Size:       run.Size,
		Coarse:     run.Coarse,
		StridePad:  run.StridePad,
		Total:      total,
		Estimate:   estimate,
		ElapsedMS:  float64(elapsed.Microseconds()) / 1000,
	}
	if run.Coarse {
		rep.Grid = run.Grid
	}
	return rep
}

// write marshals the report to path, with "-" meaning stdout.
func (r *report) write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
