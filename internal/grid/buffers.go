// Package grid manages the device buffers of one Life instance: the two
// generation buffers that trade the current and next roles, and the image
// buffer the grayscale kernel writes.
package grid

import (
	"fmt"
	"math/rand/v2"

	"github.com/gogpu/life/internal/compute"
)

// Buffers holds a generation pair in a two-slot array plus the image buffer.
// The slot holding the current generation is selected by a single index,
// so swapping roles never touches buffer contents.
type Buffers struct {
	dev    compute.Device
	width  int
	height int

	slots   [2]compute.BufferID
	current int
	image   compute.BufferID

	// scratch is reused for host-side uploads and snapshots.
	scratch []int8
}

// Allocate creates both generation buffers and the image buffer on dev.
// All three are zeroed. On failure any buffer already created is destroyed
// and the error wraps compute.ErrAllocation.
func Allocate(dev compute.Device, width, height int) (*Buffers, error) {
	n, err := compute.CellCount(width, height)
	if err != nil {
		return nil, err
	}
	b := &Buffers{dev: dev, width: width, height: height}

	for i := range b.slots {
		id, err := dev.CreateCellBuffer(width, height)
		if err != nil {
			b.Release()
			return nil, fmt.Errorf("%w: generation buffer %d (%dx%d): %w", compute.ErrAllocation, i, width, height, err)
		}
		b.slots[i] = id
	}

	id, err := dev.CreateImageBuffer(width, height)
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("%w: image buffer (%dx%d): %w", compute.ErrAllocation, width, height, err)
	}
	b.image = id

	b.scratch = make([]int8, n)
	compute.Logger().Debug("grid: buffers allocated",
		"width", width, "height", height,
		"current", b.slots[0], "next", b.slots[1], "image", b.image)
	return b, nil
}

// Size returns the grid dimensions.
func (b *Buffers) Size() (width, height int) { return b.width, b.height }

// Current returns the buffer holding the latest generation.
func (b *Buffers) Current() compute.BufferID { return b.slots[b.current] }

// Next returns the buffer the next transition writes.
func (b *Buffers) Next() compute.BufferID { return b.slots[1-b.current] }

// Image returns the grayscale image buffer.
func (b *Buffers) Image() compute.BufferID { return b.image }

// Swap exchanges the current and next roles.
func (b *Buffers) Swap() { b.current = 1 - b.current }

// Step returns the bindings for one transition: Current in, Next out.
func (b *Buffers) Step() compute.Bindings {
	return compute.Bindings{Src: b.Current(), Dst: b.Next()}
}

// Shade returns the bindings for the grayscale kernel: Current in, Image out.
func (b *Buffers) Shade() compute.Bindings {
	return compute.Bindings{Src: b.Current(), Dst: b.image}
}

// SeedRandom fills the current generation with independent uniform 0/1 cells.
func (b *Buffers) SeedRandom(rng *rand.Rand) error {
	for i := range b.scratch {
		b.scratch[i] = int8(rng.IntN(2))
	}
	return b.dev.WriteCells(b.Current(), b.scratch)
}

// Load replaces the current generation with cells, row-major.
// Nonzero values are stored as 1.
func (b *Buffers) Load(cells []int8) error {
	if len(cells) != len(b.scratch) {
		return fmt.Errorf("%w: load %d cells into %dx%d grid", compute.ErrDomainMismatch, len(cells), b.width, b.height)
	}
	for i, c := range cells {
		if c != 0 {
			b.scratch[i] = 1
		} else {
			b.scratch[i] = 0
		}
	}
	return b.dev.WriteCells(b.Current(), b.scratch)
}

// Snapshot copies the current generation into dst, which must hold
// width*height cells.
func (b *Buffers) Snapshot(dst []int8) error {
	return b.dev.ReadCells(b.Current(), dst)
}

// Release destroys every buffer. The device itself is left open.
func (b *Buffers) Release() {
	for i, id := range b.slots {
		if id != compute.InvalidID {
			b.dev.DestroyBuffer(id)
			b.slots[i] = compute.InvalidID
		}
	}
	if b.image != compute.InvalidID {
		b.dev.DestroyBuffer(b.image)
		b.image = compute.InvalidID
	}
}
