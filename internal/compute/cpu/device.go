// Package cpu is the portable compute backend. Buffers are Go slices and
// RunOverDomain executes each 16x16 tile as a job on a goroutine pool,
// calling the kernel functions once per invocation position.
package cpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/life/internal/compute"
	"github.com/gogpu/life/internal/kernel"
)

// Name is the registry name of this backend.
const Name = "cpu"

// MaxCells is the largest buffer, in cells, the backend allocates.
// A grid holds three buffers of this size.
const MaxCells = 1 << 28

func init() {
	compute.Register(Name, func(cfg compute.Config) (compute.Device, error) {
		return New(cfg.Workers), nil
	})
}

var errClosed = errors.New("cpu: device closed")

type bufferKind uint8

const (
	kindCells bufferKind = iota + 1
	kindImage
)

type buffer struct {
	kind   bufferKind
	width  int
	height int
	cells  []int8
	image  []byte
}

func (b *buffer) len() int { return b.width * b.height }

// Device is a compute.Device backed by host memory.
type Device struct {
	mu      sync.Mutex
	pool    *Pool
	buffers map[compute.BufferID]*buffer
	nextID  compute.BufferID
	closed  bool
}

var _ compute.Device = (*Device)(nil)

// New creates a device whose pool has the given number of workers.
// Zero means GOMAXPROCS.
func New(workers int) *Device {
	d := &Device{
		pool:    NewPool(workers),
		buffers: make(map[compute.BufferID]*buffer),
	}
	compute.Logger().Debug("cpu: device created", "workers", d.pool.Workers())
	return d
}

// Name implements compute.Device.
func (d *Device) Name() string {
	return fmt.Sprintf("cpu (%d workers)", d.pool.Workers())
}

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
	if n > MaxCells {
		return compute.InvalidID, fmt.Errorf("%w: %dx%d exceeds %d cells", compute.ErrAllocation, width, height, MaxCells)
	}
	b := &buffer{kind: kind, width: width, height: height}
	switch kind {
	case kindCells:
		b.cells = make([]int8, n)
	case kindImage:
		b.image = make([]byte, n)
	}
	d.nextID++
	d.buffers[d.nextID] = b
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
	delete(d.buffers, id)
	d.mu.Unlock()
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
	copy(b.cells, cells)
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
	copy(dst, b.cells)
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
	copy(dst, b.image)
	return nil
}

// RunOverDomain implements compute.Device. Each tile job runs all
// TileSize*TileSize invocations of its block; the kernels skip positions
// outside the domain.
func (d *Device) RunOverDomain(width, height int, k compute.Kernel, bind compute.Bindings) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	src, err := d.lookup(bind.Src, kindCells)
	if err != nil {
		return err
	}

	var invoke func(x, y int)
	var dstLen int
	grid := kernel.Grid{Cells: src.cells, Width: width, Height: height}

	switch k {
	case compute.KernelTransition:
		if bind.Src == bind.Dst {
			return fmt.Errorf("%w: transition source and destination are the same buffer", compute.ErrInvalidBinding)
		}
		dst, err := d.lookup(bind.Dst, kindCells)
		if err != nil {
			return err
		}
		dstLen = dst.len()
		invoke = func(x, y int) { kernel.StepCell(x, y, grid, dst.cells) }
	case compute.KernelGrayscale:
		dst, err := d.lookup(bind.Dst, kindImage)
		if err != nil {
			return err
		}
		dstLen = dst.len()
		invoke = func(x, y int) { kernel.ShadeCell(x, y, grid, dst.image) }
	default:
		return fmt.Errorf("%w: %v", compute.ErrUnknownKernel, k)
	}

	if err := compute.CheckDomain(width, height, src.len(), dstLen); err != nil {
		return err
	}

	tiles := compute.Tiles(width, height)
	jobs := make([]func(), len(tiles))
	for i, t := range tiles {
		jobs[i] = func() {
			for y := t.Y0; y < t.Y0+compute.TileSize; y++ {
				for x := t.X0; x < t.X0+compute.TileSize; x++ {
					invoke(x, y)
				}
			}
		}
	}
	d.pool.Run(jobs)
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
	d.buffers = nil
	d.pool.Close()
	return nil
}
