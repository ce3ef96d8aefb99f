// Package gpu dispatches lattice classification to a WebGPU compute device
// via gogpu/wgpu HAL.
package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/disk_mask.wgsl
var diskMaskShaderWGSL string

// DiskMaskShaderSource returns the embedded WGSL kernel source.
// Exposed for shader validation tests.
func DiskMaskShaderSource() string { return diskMaskShaderWGSL }

// compileShaderToSPIRV compiles WGSL source to a SPIR-V uint32 slice.
// SPIR-V is little-endian 32-bit words.
func compileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}
