//go:build opencl

// Package opencl runs the Life kernels through OpenCL. A GPU device is
// preferred and a CPU device is used when no GPU is exposed. The global
// work size is the domain rounded up to 16x16 work-groups; every enqueue is
// followed by Finish so calls return only when the device is idle.
package opencl

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/gogpu/life/internal/compute"
	"github.com/gogpu/life/internal/kernel"
)

// Name is the registry name of this backend.
const Name = "opencl"

func init() {
	compute.Register(Name, Open)
}

var errClosed = errors.New("opencl: device closed")

type bufferKind uint8

const (
	kindCells bufferKind = iota + 1
	kindImage
)

type buffer struct {
	kind   bufferKind
	width  int
	height int
	mem    *cl.MemObject
}

func (b *buffer) len() int { return b.width * b.height }

// Device is a compute.Device on an OpenCL context and in-order queue.
type Device struct {
	mu sync.Mutex

	name       string
	context    *cl.Context
	queue      *cl.CommandQueue
	program    *cl.Program
	transition *cl.Kernel
	grayscale  *cl.Kernel

	buffers map[compute.BufferID]*buffer
	nextID  compute.BufferID
	closed  bool
}

var _ compute.Device = (*Device)(nil)

func pickDevice() (*cl.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available")
	}
	for _, kind := range []cl.DeviceType{cl.DeviceTypeGPU, cl.DeviceTypeCPU} {
		for _, p := range platforms {
			devices, derr := p.GetDevices(kind)
			if derr != nil && derr != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				return devices[0], nil
			}
		}
	}
	return nil, errors.New("no suitable OpenCL devices found")
}

// Open creates a Device on the first GPU, or failing that CPU, device.
func Open(compute.Config) (compute.Device, error) {
	device, err := pickDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: opencl: %w", compute.ErrUnavailable, err)
	}

	d := &Device{name: device.Name(), buffers: make(map[compute.BufferID]*buffer)}
	if err := d.build(device); err != nil {
		d.release()
		return nil, fmt.Errorf("%w: opencl: %w", compute.ErrUnavailable, err)
	}
	compute.Logger().Info("opencl: device selected", "name", d.name)
	return d, nil
}

func (d *Device) build(device *cl.Device) error {
	var err error
	if d.context, err = cl.CreateContext([]*cl.Device{device}); err != nil {
		return fmt.Errorf("creating context: %w", err)
	}
	if d.queue, err = d.context.CreateCommandQueue(device, 0); err != nil {
		return fmt.Errorf("creating command queue: %w", err)
	}
	if d.program, err = d.context.CreateProgramWithSource([]string{kernel.OpenCLSource()}); err != nil {
		return fmt.Errorf("creating program: %w", err)
	}
	if err := d.program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		var buildErr cl.BuildError
		if errors.As(err, &buildErr) {
			return fmt.Errorf("building program: %s", string(buildErr))
		}
		return fmt.Errorf("building program: %w", err)
	}
	if d.transition, err = d.program.CreateKernel(kernel.OpenCLTransitionName); err != nil {
		return fmt.Errorf("creating %s kernel: %w", kernel.OpenCLTransitionName, err)
	}
	if d.grayscale, err = d.program.CreateKernel(kernel.OpenCLGrayscaleName); err != nil {
		return fmt.Errorf("creating %s kernel: %w", kernel.OpenCLGrayscaleName, err)
	}
	return nil
}

// Name implements compute.Device.
func (d *Device) Name() string { return fmt.Sprintf("opencl (%s)", d.name) }

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
	flags := cl.MemReadWrite
	if kind == kindImage {
		flags = cl.MemWriteOnly
	}
	mem, err := d.context.CreateEmptyBuffer(flags, n)
	if err != nil {
		return compute.InvalidID, fmt.Errorf("%w: opencl: %w", compute.ErrAllocation, err)
	}
	zero := make([]byte, n)
	if _, err := d.queue.EnqueueWriteBuffer(mem, true, 0, n, unsafe.Pointer(&zero[0]), nil); err != nil {
		mem.Release()
		return compute.InvalidID, fmt.Errorf("%w: opencl: clearing buffer: %w", compute.ErrAllocation, err)
	}
	d.nextID++
	d.buffers[d.nextID] = &buffer{kind: kind, width: width, height: height, mem: mem}
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

// DestroyBuffer implements compute.Device.
func (d *Device) DestroyBuffer(id compute.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[id]; ok {
		b.mem.Release()
		delete(d.buffers, id)
	}
}

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
	if _, err := d.queue.EnqueueWriteBuffer(b.mem, true, 0, len(cells), unsafe.Pointer(&cells[0]), nil); err != nil {
		return fmt.Errorf("opencl: write cells: %w", err)
	}
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
	if _, err := d.queue.EnqueueReadBuffer(b.mem, true, 0, len(dst), unsafe.Pointer(&dst[0]), nil); err != nil {
		return fmt.Errorf("opencl: read cells: %w", err)
	}
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
	if _, err := d.queue.EnqueueReadBuffer(b.mem, true, 0, len(dst), unsafe.Pointer(&dst[0]), nil); err != nil {
		return fmt.Errorf("opencl: read image: %w", err)
	}
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
	var kern *cl.Kernel
	switch k {
	case compute.KernelTransition:
		if bind.Src == bind.Dst {
			return fmt.Errorf("%w: transition source and destination are the same buffer", compute.ErrInvalidBinding)
		}
		dst, err = d.lookup(bind.Dst, kindCells)
		kern = d.transition
	case compute.KernelGrayscale:
		dst, err = d.lookup(bind.Dst, kindImage)
		kern = d.grayscale
	default:
		return fmt.Errorf("%w: %v", compute.ErrUnknownKernel, k)
	}
	if err != nil {
		return err
	}
	if err := compute.CheckDomain(width, height, src.len(), dst.len()); err != nil {
		return err
	}

	if err := kern.SetArgs(src.mem, dst.mem, int32(width), int32(height)); err != nil { //nolint:gosec // grid dimensions fit int32
		return fmt.Errorf("opencl: set %s args: %w", k, err)
	}
	gx, gy := compute.Workgroups(width, height)
	global := []int{gx * compute.TileSize, gy * compute.TileSize}
	local := []int{compute.TileSize, compute.TileSize}
	if _, err := d.queue.EnqueueNDRangeKernel(kern, nil, global, local, nil); err != nil {
		return fmt.Errorf("opencl: enqueue %s: %w", k, err)
	}
	if err := d.queue.Finish(); err != nil {
		return fmt.Errorf("opencl: finish %s: %w", k, err)
	}
	return nil
}

func (d *Device) release() {
	for id, b := range d.buffers {
		b.mem.Release()
		delete(d.buffers, id)
	}
	if d.grayscale != nil {
		d.grayscale.Release()
	}
	if d.transition != nil {
		d.transition.Release()
	}
	if d.program != nil {
		d.program.Release()
	}
	if d.queue != nil {
		d.queue.Release()
	}
	if d.context != nil {
		d.context.Release()
	}
}

// Close implements compute.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.release()
	return nil
}
