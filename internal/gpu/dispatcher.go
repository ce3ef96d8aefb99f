//go:build !nogpu

package gpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/diskmask"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// defaultSyncTimeout bounds the fence wait when the caller's context
// carries no deadline.
const defaultSyncTimeout = 5 * time.Second

// fencePollStep is the granularity of the cancelable fence wait. The HAL
// wait itself cannot be interrupted, so the dispatcher waits in short
// slices and re-checks the context between them.
const fencePollStep = 50 * time.Millisecond

// paramsBytes is the group(0) uniform: {size, stride, origin_x, origin_y}.
const paramsBytes = 16

// tileWindowBytes is the per-tile group(1) uniform: {x, y, w, h}.
// The offset lives at bytes 0..8; the trailing pair carries the clamped
// tile extent the kernel bounds-checks over-dispatched invocations
// against.
const tileWindowBytes = 16

// Dispatcher is the WebGPU tile dispatcher. It partitions the lattice
// into tiles, issues one compute pass per tile with that tile's window
// uniform, and reads the shared result buffer back once all passes have
// completed.
//
// The result buffer is bound read-write to every pass, made race-free by
// construction: tiles cover the domain exactly once, so no two passes
// write the same stride*y + x index.
type Dispatcher struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	paramsBL   hal.BindGroupLayout
	tileBL     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	tileSize       uint32
	gpuReady       bool
	externalDevice bool // true when using a shared device (don't destroy on Close)

	log *slog.Logger
}

var _ diskmask.Classifier = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher with the default tile size.
// Init acquires the GPU.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		tileSize: diskmask.DefaultTileSize,
		log:      diskmask.Logger(),
	}
}

// Name implements diskmask.Classifier.
func (d *Dispatcher) Name() string { return "wgpu" }

// SetLogger replaces the dispatcher's logger. Called by diskmask.SetLogger.
func (d *Dispatcher) SetLogger(l *slog.Logger) {
	d.mu.Lock()
	d.log = l
	d.mu.Unlock()
}

// SetTileSize overrides the nominal tile edge. Zero restores the default.
// Tests use this to force multi-tile dispatch on small domains.
func (d *Dispatcher) SetTileSize(size uint32) {
	d.mu.Lock()
	if size == 0 {
		size = diskmask.DefaultTileSize
	}
	d.tileSize = size
	d.mu.Unlock()
}

// Init implements diskmask.Classifier. A missing GPU is not an error:
// the dispatcher registers anyway and declines runs with ErrFallbackToCPU.
func (d *Dispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.initGPU(); err != nil {
		d.log.Warn("GPU init failed, runs will fall back to CPU", "err", err)
	}
	return nil
}

// Close implements diskmask.Classifier.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyPipelines()
	if !d.externalDevice {
		if d.device != nil {
			d.device.Destroy()
			d.device = nil
		}
		if d.instance != nil {
			d.instance.Destroy()
			d.instance = nil
		}
	} else {
		// Shared resources are not ours to destroy.
		d.device = nil
		d.instance = nil
	}
	d.queue = nil
	d.gpuReady = false
	d.externalDevice = false
}

// SetDeviceProvider switches the dispatcher to a shared GPU device from an
// external provider. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func (d *Dispatcher) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("diskmask-gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("diskmask-gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("diskmask-gpu: provider HalQueue is not hal.Queue")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroyPipelines()
	if !d.externalDevice && d.device != nil {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}

	d.device = device
	d.queue = queue
	d.externalDevice = true

	if err := d.createPipelines(); err != nil {
		d.gpuReady = false
		return fmt.Errorf("diskmask-gpu: create pipelines with shared device: %w", err)
	}
	d.gpuReady = true
	d.log.Info("using shared GPU device")
	return nil
}

// Classify implements diskmask.Classifier.
func (d *Dispatcher) Classify(ctx context.Context, cfg diskmask.Config) (*diskmask.Mask, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	buf := make([]uint32, cfg.BufferLen())
	if err := d.classify(ctx, cfg, buf); err != nil {
		return nil, err
	}
	return diskmask.NewMask(buf, cfg.Width, cfg.Height, cfg.RowStride()), nil
}

// ClassifyInto implements diskmask.Classifier.
func (d *Dispatcher) ClassifyInto(ctx context.Context, cfg diskmask.Config, dst []uint32) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(dst) < cfg.BufferLen() {
		return &diskmask.ConfigError{Field: "dst", Reason: "shorter than stride*height"}
	}
	return d.classify(ctx, cfg, dst)
}

func (d *Dispatcher) classify(ctx context.Context, cfg diskmask.Config, dst []uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.gpuReady {
		return diskmask.ErrFallbackToCPU
	}

	tiles := diskmask.TileGrid(cfg.Width, cfg.Height, d.tileSize, d.tileSize)
	if len(tiles) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.log.Debug("dispatching run",
		"size", cfg.Size, "width", cfg.Width, "height", cfg.Height,
		"stride", cfg.RowStride(), "tiles", len(tiles))

	return d.run(ctx, cfg, tiles, dst)
}

// run executes one classification: shared buffers, per-tile bind groups,
// one compute pass per tile in a single command encoder, one submit, one
// fence wait, one readback.
func (d *Dispatcher) run(ctx context.Context, cfg diskmask.Config, tiles []diskmask.Tile, dst []uint32) error {
	stride := cfg.RowStride()
	bufLen := uint64(stride) * uint64(cfg.Height)
	bufBytes := bufLen * 4

	// Shared buffers: run params uniform, result storage, readback staging.
	paramsBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "diskmask_params", Size: paramsBytes,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return &diskmask.ResourceError{Resource: "params uniform", Err: err}
	}
	defer d.device.DestroyBuffer(paramsBuf)

	resultBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "diskmask_result", Size: bufBytes,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return &diskmask.ResourceError{Resource: "result buffer", Err: err}
	}
	defer d.device.DestroyBuffer(resultBuf)

	stagingBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "diskmask_staging", Size: bufBytes,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return &diskmask.ResourceError{Resource: "staging buffer", Err: err}
	}
	defer d.device.DestroyBuffer(stagingBuf)

	params := make([]byte, paramsBytes)
	binary.LittleEndian.PutUint32(params[0:], cfg.Size)
	binary.LittleEndian.PutUint32(params[4:], stride)
	binary.LittleEndian.PutUint32(params[8:], cfg.OriginX)
	binary.LittleEndian.PutUint32(params[12:], cfg.OriginY)
	d.queue.WriteBuffer(paramsBuf, 0, params)

	// Padding rows are part of the returned buffer and must read as zero,
	// not as uninitialized device memory.
	d.queue.WriteBuffer(resultBuf, 0, make([]byte, bufBytes))

	paramsBG, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "diskmask_params_bind", Layout: d.paramsBL,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: paramsBytes}},
		},
	})
	if err != nil {
		return &diskmask.ResourceError{Resource: "params bind group", Err: err}
	}
	defer d.device.DestroyBindGroup(paramsBG)

	tileBufs, tileBGs, err := d.createTileBindings(tiles, resultBuf, bufBytes)
	if err != nil {
		d.cleanupTileBindings(tileBufs, tileBGs)
		return err
	}
	defer d.cleanupTileBindings(tileBufs, tileBGs)

	// Cancellation after this point would leave the result buffer half
	// written, so the last pre-submission check lives here.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := d.encodeAndSubmit(ctx, tiles, paramsBG, tileBGs, resultBuf, stagingBuf, bufBytes); err != nil {
		return err
	}

	readback := make([]byte, bufBytes)
	if err := d.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return &diskmask.DispatchError{Err: fmt.Errorf("readback: %w", err)}
	}
	for i := uint64(0); i < bufLen; i++ {
		dst[i] = binary.LittleEndian.Uint32(readback[i*4:])
	}
	return nil
}

// createTileBindings creates one window uniform and one bind group per
// tile. Every bind group shares the result buffer; only the window uniform
// differs, which is the only per-dispatch mutable configuration.
func (d *Dispatcher) createTileBindings(
	tiles []diskmask.Tile, resultBuf hal.Buffer, bufBytes uint64,
) ([]hal.Buffer, []hal.BindGroup, error) {
	tileBufs := make([]hal.Buffer, 0, len(tiles))
	tileBGs := make([]hal.BindGroup, 0, len(tiles))

	for _, t := range tiles {
		window := make([]byte, tileWindowBytes)
		binary.LittleEndian.PutUint32(window[0:], t.OffsetX)
		binary.LittleEndian.PutUint32(window[4:], t.OffsetY)
		binary.LittleEndian.PutUint32(window[8:], t.Width)
		binary.LittleEndian.PutUint32(window[12:], t.Height)

		tb, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "diskmask_tile", Size: tileWindowBytes,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return tileBufs, tileBGs, &diskmask.DispatchError{
				TileX: t.OffsetX, TileY: t.OffsetY,
				Err: fmt.Errorf("create tile uniform: %w", err),
			}
		}
		tileBufs = append(tileBufs, tb)
		d.queue.WriteBuffer(tb, 0, window)

		bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label: "diskmask_tile_bind", Layout: d.tileBL,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: resultBuf.NativeHandle(), Offset: 0, Size: bufBytes}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: tb.NativeHandle(), Offset: 0, Size: tileWindowBytes}},
			},
		})
		if err != nil {
			return tileBufs, tileBGs, &diskmask.DispatchError{
				TileX: t.OffsetX, TileY: t.OffsetY,
				Err: fmt.Errorf("create tile bind group: %w", err),
			}
		}
		tileBGs = append(tileBGs, bg)
	}
	return tileBufs, tileBGs, nil
}

func (d *Dispatcher) cleanupTileBindings(tileBufs []hal.Buffer, tileBGs []hal.BindGroup) {
	for _, bg := range tileBGs {
		if bg != nil {
			d.device.DestroyBindGroup(bg)
		}
	}
	for _, tb := range tileBufs {
		if tb != nil {
			d.device.DestroyBuffer(tb)
		}
	}
}

// encodeAndSubmit records one compute pass per tile, copies the result to
// staging, submits once, and waits on the fence. Tiles write disjoint
// ranges, so pass order within the encoder is irrelevant to the output.
func (d *Dispatcher) encodeAndSubmit(
	ctx context.Context, tiles []diskmask.Tile,
	paramsBG hal.BindGroup, tileBGs []hal.BindGroup,
	resultBuf, stagingBuf hal.Buffer, bufBytes uint64,
) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "diskmask_encoder"})
	if err != nil {
		return &diskmask.ResourceError{Resource: "command encoder", Err: err}
	}
	if err := encoder.BeginEncoding("diskmask_run"); err != nil {
		return &diskmask.DispatchError{Err: fmt.Errorf("begin encoding: %w", err)}
	}

	for i, t := range tiles {
		wx, wy := t.Workgroups()
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "diskmask_tile_pass"})
		pass.SetPipeline(d.pipeline)
		pass.SetBindGroup(0, paramsBG, nil)
		pass.SetBindGroup(1, tileBGs[i], nil)
		pass.Dispatch(wx, wy, 1)
		pass.End()
	}

	encoder.CopyBufferToBuffer(resultBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: bufBytes},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return &diskmask.DispatchError{Err: fmt.Errorf("end encoding: %w", err)}
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return &diskmask.ResourceError{Resource: "fence", Err: err}
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return &diskmask.DispatchError{Err: fmt.Errorf("submit: %w", err)}
	}
	return d.waitFence(ctx, fence)
}

// waitFence is the run's synchronization point: it guarantees all tile
// writes are visible before readback. The wait is cancelable and bounded;
// expiry of the bound is a TimeoutError, distinct from a device failure.
func (d *Dispatcher) waitFence(ctx context.Context, fence hal.Fence) error {
	timeout := defaultSyncTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	waited := time.Duration(0)
	for {
		step := fencePollStep
		if rest := timeout - waited; rest < step {
			step = rest
		}
		if step <= 0 {
			return &diskmask.TimeoutError{Wait: timeout}
		}

		done, err := d.device.Wait(fence, 1, step)
		if err != nil {
			return &diskmask.DispatchError{Err: fmt.Errorf("wait for GPU: %w", err)}
		}
		if done {
			return nil
		}
		waited += step

		select {
		case <-ctx.Done():
			// The buffer content is undefined from here on and is
			// never handed to the caller.
			return ctx.Err()
		default:
		}
	}
}

func (d *Dispatcher) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	d.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	d.device = openDev.Device
	d.queue = openDev.Queue
	if err := d.createPipelines(); err != nil {
		d.device.Destroy()
		d.device = nil
		d.queue = nil
		return fmt.Errorf("create pipelines: %w", err)
	}
	d.gpuReady = true
	d.log.Info("GPU dispatcher initialized", "adapter", selected.Info.Name)
	return nil
}

func (d *Dispatcher) createPipelines() error {
	spirv, err := compileShaderToSPIRV(diskMaskShaderWGSL)
	if err != nil {
		return fmt.Errorf("compile disk_mask shader: %w", err)
	}
	shader, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "disk_mask",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create disk_mask shader module: %w", err)
	}
	d.shader = shader

	paramsBL, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "diskmask_params_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("create params bind group layout: %w", err)
	}
	d.paramsBL = paramsBL

	tileBL, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "diskmask_tile_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("create tile bind group layout: %w", err)
	}
	d.tileBL = tileBL

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "diskmask_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.paramsBL, d.tileBL},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	d.pipeLayout = pipeLayout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "diskmask_pipeline", Layout: d.pipeLayout,
		Compute: hal.ComputeState{Module: d.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	d.pipeline = pipeline
	return nil
}

func (d *Dispatcher) destroyPipelines() {
	if d.device == nil {
		return
	}
	if d.pipeline != nil {
		d.device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.tileBL != nil {
		d.device.DestroyBindGroupLayout(d.tileBL)
		d.tileBL = nil
	}
	if d.paramsBL != nil {
		d.device.DestroyBindGroupLayout(d.paramsBL)
		d.paramsBL = nil
	}
	if d.shader != nil {
		d.device.DestroyShaderModule(d.shader)
		d.shader = nil
	}
}

// Ready reports whether a GPU device was acquired. Exposed for tests that
// skip when no adapter is available.
func (d *Dispatcher) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gpuReady
}
