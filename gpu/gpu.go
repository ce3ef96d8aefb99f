//go:build !nogpu

// Package gpu registers the WebGPU tile dispatcher for accelerated
// classification.
//
// Import this package to route diskmask.Classify through GPU compute.
// If GPU initialization fails (no Vulkan available), the dispatcher still
// registers and every run transparently falls back to the CPU classifier.
//
// Usage:
//
//	import _ "github.com/gogpu/diskmask/gpu" // enable GPU dispatch
package gpu

import (
	"github.com/gogpu/diskmask"
	gpuimpl "github.com/gogpu/diskmask/internal/gpu"
)

func init() {
	if err := diskmask.RegisterClassifier(gpuimpl.NewDispatcher()); err != nil {
		diskmask.Logger().Warn("GPU dispatcher not available", "err", err)
	}
}

// SetDeviceProvider configures the dispatcher to use a shared GPU device
// from an external provider (e.g., gogpu). This avoids creating a separate
// GPU instance and enables device sharing with a host application.
//
// The provider should be a gpucontext.DeviceProvider that also exposes HAL
// access via HalDevice() and HalQueue().
func SetDeviceProvider(provider any) error {
	return diskmask.SetClassifierDeviceProvider(provider)
}
