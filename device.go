// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package diskmask

import (
	"github.com/gogpu/gpucontext"
)

// DeviceHandle provides GPU device access from a host application.
//
// A host that already owns a GPU device (e.g., a gogpu window) implements
// DeviceHandle and passes it via SetClassifierDeviceProvider, so the
// dispatcher reuses the shared device instead of creating its own.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, giving the
// interface a diskmask-local name while staying compatible with the
// gpucontext ecosystem. Providers that additionally expose HAL access
// (HalDevice()/HalQueue()) let the wgpu dispatcher bind directly to the
// underlying hal.Device.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle that provides no device. Classifiers
// receiving it create their own device as usual.
type NullDeviceHandle struct{}

// Device returns nil: no shared device is available.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil: no shared queue is available.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil: no shared adapter is available.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }
