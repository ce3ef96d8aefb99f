package diskmask

import (
	"context"
	"fmt"
	"testing"
)

// BenchmarkSoftwareClassify benchmarks CPU classification of square
// domains of various sizes.
func BenchmarkSoftwareClassify(b *testing.B) {
	sizes := []uint32{100, 512, 1024, 2048}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			sw := NewSoftwareWithOptions(DefaultTileSize, 0)
			defer sw.Close()
			cfg := Config{Size: size, Width: size, Height: size}
			dst := make([]uint32, cfg.BufferLen())

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := sw.ClassifyInto(context.Background(), cfg, dst); err != nil {
					b.Fatal(err)
				}
			}
			// Report element throughput.
			b.SetBytes(int64(size) * int64(size) * 4)
		})
	}
}

// BenchmarkSoftwareWorkers compares worker counts at a fixed domain size,
// showing how tile parallelism scales.
func BenchmarkSoftwareWorkers(b *testing.B) {
	const size = 2048
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("%dworkers", workers), func(b *testing.B) {
			sw := NewSoftwareWithOptions(DefaultTileSize, workers)
			defer sw.Close()
			cfg := Config{Size: size, Width: size, Height: size}
			dst := make([]uint32, cfg.BufferLen())

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := sw.ClassifyInto(context.Background(), cfg, dst); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkTileGrid measures tiling overhead for large domains.
func BenchmarkTileGrid(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tiles := TileGrid(MaxExtent, MaxExtent, DefaultTileSize, DefaultTileSize)
		if len(tiles) == 0 {
			b.Fatal("no tiles")
		}
	}
}
