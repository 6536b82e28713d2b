// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package gpu is the hardware compute backend built on gogpu/wgpu HAL.
//
// Kernels are WGSL compiled to SPIR-V with naga. Each RunOverDomain records
// one compute pass, dispatches ceil(width/16) x ceil(height/16) workgroups,
// submits, and waits on a fence before returning. Readback copies through a
// MapRead staging buffer.
//
// The device is either opened from the Vulkan backend or borrowed from a
// gpucontext.DeviceProvider that exposes HAL types; a borrowed device is not
// destroyed on Close.
package gpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/life/internal/compute"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Name is the registry name of this backend.
const Name = "gpu"

// maxBindingSize is the default WebGPU maxStorageBufferBindingSize.
// Grids whose buffers exceed it are rejected at allocation.
const maxBindingSize = 128 << 20

// fenceTimeout bounds every wait on submitted work.
const fenceTimeout = 5 * time.Second

// cellBytes and pixelBytes are the per-cell storage sizes: WGSL storage
// buffers have no 8-bit element type.
const (
	cellBytes  = 4
	pixelBytes = 4
)

func init() {
	compute.Register(Name, Open)
}

var errClosed = errors.New("gpu: device closed")

type bufferKind uint8

const (
	kindCells bufferKind = iota + 1
	kindImage
)

type buffer struct {
	kind   bufferKind
	width  int
	height int
	size   uint64
	buf    hal.Buffer
}

func (b *buffer) len() int { return b.width * b.height }

type bindKey struct {
	kernel   compute.Kernel
	src, dst compute.BufferID
}

// Device is a compute.Device running on a HAL device and queue.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  string
	external bool // borrowed from a provider, not destroyed on Close

	kernels *kernels

	params     hal.Buffer
	lastParams [2]uint32

	buffers    map[compute.BufferID]*buffer
	nextID     compute.BufferID
	bindGroups map[bindKey]hal.BindGroup

	staging     hal.Buffer
	stagingSize uint64
	scratch     []byte

	closed bool
}

var _ compute.Device = (*Device)(nil)

// Open creates a Device. With cfg.Provider set, the provider's HAL device
// and queue are used; otherwise the Vulkan backend is opened and a discrete
// or integrated adapter is preferred.
func Open(cfg compute.Config) (compute.Device, error) {
	if cfg.Provider != nil {
		return openShared(cfg.Provider)
	}
	return openVulkan()
}

func openShared(provider any) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: gpu: provider does not expose HAL types", compute.ErrUnavailable)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: gpu: provider HalDevice is not hal.Device", compute.ErrUnavailable)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: gpu: provider HalQueue is not hal.Queue", compute.ErrUnavailable)
	}
	d, err := newDevice(nil, device, queue, "shared", true)
	if err != nil {
		return nil, err
	}
	compute.Logger().Info("gpu: using shared GPU device")
	return d, nil
}

func openVulkan() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: gpu: vulkan backend not available", compute.ErrUnavailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: gpu: create instance: %w", compute.ErrUnavailable, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: gpu: no GPU adapters found", compute.ErrUnavailable)
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
		instance.Destroy()
		return nil, fmt.Errorf("%w: gpu: open device: %w", compute.ErrUnavailable, err)
	}
	d, err := newDevice(instance, openDev.Device, openDev.Queue, selected.Info.Name, false)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	compute.Logger().Info("gpu: adapter selected", "name", selected.Info.Name, "type", selected.Info.DeviceType)
	return d, nil
}

// newDevice builds pipelines and the params buffer on an open HAL device.
// On error nothing it created is left behind; the caller owns device and queue.
func newDevice(instance hal.Instance, device hal.Device, queue hal.Queue, adapter string, external bool) (*Device, error) {
	k, err := createKernels(device)
	if err != nil {
		return nil, fmt.Errorf("%w: gpu: %w", compute.ErrUnavailable, err)
	}
	params, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "life_params",
		Size:  paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		k.destroy(device)
		return nil, fmt.Errorf("%w: gpu: create params buffer: %w", compute.ErrUnavailable, err)
	}
	return &Device{
		instance:   instance,
		device:     device,
		queue:      queue,
		adapter:    adapter,
		external:   external,
		kernels:    k,
		params:     params,
		buffers:    make(map[compute.BufferID]*buffer),
		bindGroups: make(map[bindKey]hal.BindGroup),
	}, nil
}

// Name implements compute.Device.
func (d *Device) Name() string { return fmt.Sprintf("gpu (%s)", d.adapter) }

func (d *Device) create(kind bufferKind, width, height int) (compute.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return compute.InvalidID, errClosed
	}
	n, err := compute.CellCount(width, height)
	if err != nil {
		return compute.InvalidID, err
	}

	elem, label := uint64(cellBytes), "life_cells"
	if kind == kindImage {
		elem, label = pixelBytes, "life_image"
	}
	if uint64(n) > maxBindingSize/elem {
		return compute.InvalidID, fmt.Errorf("%w: %s buffer of %dx%d exceeds binding limit %d bytes",
			compute.ErrAllocation, label, width, height, maxBindingSize)
	}
	size := uint64(n) * elem

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return compute.InvalidID, fmt.Errorf("%w: %s: %w", compute.ErrAllocation, label, err)
	}
	d.queue.WriteBuffer(buf, 0, make([]byte, size))

	d.nextID++
	d.buffers[d.nextID] = &buffer{kind: kind, width: width, height: height, size: size, buf: buf}
	compute.Logger().Debug("gpu: buffer created", "id", d.nextID, "label", label, "bytes", size)
	return d.nextID, nil
}

// CreateCellBuffer implements compute.Device.
func (d *Device) CreateCellBuffer(width, height int) (compute.BufferID, error) {
	return d.create(kindCells, width, height)
}

// CreateImageBuffer implements compute.Device.
func (d *Device) CreateImageBuffer(width, height int) (compute.BufferID, error) {
	return d.create(kindImage, width, height)
}

// DestroyBuffer implements compute.Device. Bind groups that reference the
// buffer are destroyed with it.
func (d *Device) DestroyBuffer(id compute.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	for key, bg := range d.bindGroups {
		if key.src == id || key.dst == id {
			d.device.DestroyBindGroup(bg)
			delete(d.bindGroups, key)
		}
	}
	d.device.DestroyBuffer(b.buf)
	delete(d.buffers, id)
}

// lookup returns the live buffer of the given kind. Caller holds d.mu.
func (d *Device) lookup(id compute.BufferID, kind bufferKind) (*buffer, error) {
	if d.closed {
		return nil, errClosed
	}
	b, ok := d.buffers[id]
	if !ok || b.kind != kind {
		return nil, fmt.Errorf("%w: buffer %d", compute.ErrInvalidBinding, id)
	}
	return b, nil
}

// WriteCells implements compute.Device.
func (d *Device) WriteCells(id compute.BufferID, cells []int8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.lookup(id, kindCells)
	if err != nil {
		return err
	}
	if len(cells) != b.len() {
		return fmt.Errorf("%w: write %d cells into %d", compute.ErrDomainMismatch, len(cells), b.len())
	}
	d.queue.WriteBuffer(b.buf, 0, packCells(cells))
	return nil
}

// ReadCells implements compute.Device.
func (d *Device) ReadCells(id compute.BufferID, dst []int8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.lookup(id, kindCells)
	if err != nil {
		return err
	}
	if len(dst) != b.len() {
		return fmt.Errorf("%w: read %d cells into %d", compute.ErrDomainMismatch, b.len(), len(dst))
	}
	raw, err := d.readback(b)
	if err != nil {
		return err
	}
	unpackCells(raw, dst)
	return nil
}

// ReadImage implements compute.Device.
func (d *Device) ReadImage(id compute.BufferID, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.lookup(id, kindImage)
	if err != nil {
		return err
	}
	if len(dst) != b.len() {
		return fmt.Errorf("%w: read %d pixels into %d", compute.ErrDomainMismatch, b.len(), len(dst))
	}
	raw, err := d.readback(b)
	if err != nil {
		return err
	}
	unpackPixels(raw, dst)
	return nil
}

// RunOverDomain implements compute.Device.
func (d *Device) RunOverDomain(width, height int, k compute.Kernel, bind compute.Bindings) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	src, err := d.lookup(bind.Src, kindCells)
	if err != nil {
		return err
	}
	var dst *buffer
	switch k {
	case compute.KernelTransition:
		if bind.Src == bind.Dst {
			return fmt.Errorf("%w: transition source and destination are the same buffer", compute.ErrInvalidBinding)
		}
		dst, err = d.lookup(bind.Dst, kindCells)
	case compute.KernelGrayscale:
		dst, err = d.lookup(bind.Dst, kindImage)
	default:
		return fmt.Errorf("%w: %v", compute.ErrUnknownKernel, k)
	}
	if err != nil {
		return err
	}
	if err := compute.CheckDomain(width, height, src.len(), dst.len()); err != nil {
		return err
	}

	d.writeParams(width, height)
	bg, err := d.bindGroup(k, bind, src, dst)
	if err != nil {
		return err
	}
	pipeline := d.kernels.pipeline(k)
	gx, gy := compute.Workgroups(width, height)

	return d.submit("life_"+k.String(), func(enc hal.CommandEncoder) {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "life_" + k.String()})
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(uint32(gx), uint32(gy), 1) //nolint:gosec // workgroup counts fit uint32
		pass.End()
	})
}

// writeParams uploads the domain size when it differs from the last dispatch.
func (d *Device) writeParams(width, height int) {
	p := [2]uint32{uint32(width), uint32(height)} //nolint:gosec // dimensions fit uint32
	if p == d.lastParams {
		return
	}
	d.queue.WriteBuffer(d.params, 0, makeParams(p[0], p[1]))
	d.lastParams = p
}

// bindGroup returns the cached bind group for (kernel, src, dst).
func (d *Device) bindGroup(k compute.Kernel, bind compute.Bindings, src, dst *buffer) (hal.BindGroup, error) {
	key := bindKey{kernel: k, src: bind.Src, dst: bind.Dst}
	if bg, ok := d.bindGroups[key]; ok {
		return bg, nil
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "life_bind_" + k.String(),
		Layout: d.kernels.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: d.params.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: src.buf.NativeHandle(), Offset: 0, Size: src.size}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dst.buf.NativeHandle(), Offset: 0, Size: dst.size}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s bind group: %w", k, err)
	}
	d.bindGroups[key] = bg
	compute.Logger().Debug("gpu: bind group created", "kernel", k.String(), "src", bind.Src, "dst", bind.Dst)
	return bg, nil
}

// readback copies b into the staging buffer and returns its bytes.
// The returned slice is reused by the next readback.
func (d *Device) readback(b *buffer) ([]byte, error) {
	if err := d.ensureStaging(b.size); err != nil {
		return nil, err
	}
	err := d.submit("life_readback", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(b.buf, d.staging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: b.size},
		})
	})
	if err != nil {
		return nil, err
	}
	raw := d.scratch[:b.size]
	if err := d.queue.ReadBuffer(d.staging, 0, raw); err != nil {
		return nil, fmt.Errorf("gpu: readback: %w", err)
	}
	return raw, nil
}

func (d *Device) ensureStaging(size uint64) error {
	if d.staging != nil && d.stagingSize >= size {
		return nil
	}
	if d.staging != nil {
		d.device.DestroyBuffer(d.staging)
		d.staging = nil
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "life_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	d.staging = buf
	d.stagingSize = size
	d.scratch = make([]byte, size)
	return nil
}

// submit records commands with encode, submits them, and blocks until the
// GPU signals completion.
func (d *Device) submit(label string, encode func(hal.CommandEncoder)) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	encode(encoder)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("gpu: wait for %s: %w", label, err)
	}
	if !ok {
		return fmt.Errorf("gpu: wait for %s: timed out after %v", label, fenceTimeout)
	}
	return nil
}

// Close implements compute.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	for key, bg := range d.bindGroups {
		d.device.DestroyBindGroup(bg)
		delete(d.bindGroups, key)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
	if d.staging != nil {
		d.device.DestroyBuffer(d.staging)
		d.staging = nil
	}
	if d.params != nil {
		d.device.DestroyBuffer(d.params)
		d.params = nil
	}
	d.kernels.destroy(d.device)

	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
	return nil
}
