package life

import (
	"fmt"
	"image"
	"math/rand/v2"
	"sync"

	"github.com/gogpu/life/internal/compute"
	"github.com/gogpu/life/internal/frame"
	"github.com/gogpu/life/internal/grid"
)

// Simulation is one Life instance: a compute device, its grid buffers and
// the host pixel array frames are read into.
//
// Methods are safe for concurrent use; they are serialized, so no two
// dispatches ever overlap.
type Simulation struct {
	mu sync.Mutex

	width, height int
	dev           compute.Device
	bufs          *grid.Buffers
	readback      *frame.Readback
	rng           *rand.Rand

	generation uint64
	closed     bool
}

// New opens a compute device, allocates the grid buffers for a
// gridX x gridY torus and seeds the first generation with uniform random
// cells.
func New(gridX, gridY int, opts ...Option) (*Simulation, error) {
	if gridX <= 0 || gridY <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, gridX, gridY)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dev, err := compute.Open(o.backend, compute.Config{Workers: o.workers, Provider: o.provider})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceInitialization, err)
	}

	bufs, err := grid.Allocate(dev, gridX, gridY)
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("%w: %w", ErrResourceAllocation, err)
	}

	s := &Simulation{
		width:    gridX,
		height:   gridY,
		dev:      dev,
		bufs:     bufs,
		readback: frame.NewReadback(gridX, gridY),
		rng:      newRand(o),
	}
	if err := s.bufs.SeedRandom(s.rng); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: seeding grid: %w", ErrResourceAllocation, err)
	}

	Logger().Info("life: simulation created",
		"width", gridX, "height", gridY, "device", dev.Name(), "seeded", o.seeded)
	return s, nil
}

func newRand(o options) *rand.Rand {
	if o.seeded {
		return rand.New(rand.NewPCG(o.seed, 0))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Advance computes one generation: the transition kernel reads the current
// buffer and writes the next one, then the roles swap. On error the current
// generation is left unchanged.
func (s *Simulation) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

func (s *Simulation) advanceLocked() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.dev.RunOverDomain(s.width, s.height, compute.KernelTransition, s.bufs.Step()); err != nil {
		return fmt.Errorf("life: advance generation %d: %w", s.generation, err)
	}
	s.bufs.Swap()
	s.generation++
	return nil
}

// AdvanceN advances n generations, stopping at the first error.
func (s *Simulation) AdvanceN(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range n {
		if err := s.advanceLocked(); err != nil {
			return err
		}
	}
	return nil
}

// RenderImage maps the current generation to intensities (255 live, 0 dead)
// and returns them as a gridX x gridY grayscale image.
//
// The image's pixel array is owned by the Simulation and overwritten by the
// next RenderImage; copy it to keep a frame. A failure returns
// ErrImageUnavailable and leaves the simulation usable.
func (s *Simulation) RenderImage() (*image.Gray, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.dev.RunOverDomain(s.width, s.height, compute.KernelGrayscale, s.bufs.Shade()); err != nil {
		Logger().Warn("life: grayscale dispatch failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrImageUnavailable, err)
	}
	img, err := s.readback.Read(s.dev, s.bufs.Image())
	if err != nil {
		Logger().Warn("life: image readback failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrImageUnavailable, err)
	}
	return img, nil
}

// Reset replaces the current generation with a fresh random state and
// resets the generation counter. No buffers are reallocated.
func (s *Simulation) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.bufs.SeedRandom(s.rng); err != nil {
		return fmt.Errorf("life: reset: %w", err)
	}
	s.generation = 0
	return nil
}

// Load replaces the current generation with cells, row-major, gridX*gridY
// long. Nonzero values are live. The generation counter restarts at 0.
func (s *Simulation) Load(cells []int8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.bufs.Load(cells); err != nil {
		return fmt.Errorf("life: load: %w", err)
	}
	s.generation = 0
	return nil
}

// Cells returns a copy of the current generation, row-major, 0 or 1 per cell.
func (s *Simulation) Cells() ([]int8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	cells := make([]int8, s.width*s.height)
	if err := s.bufs.Snapshot(cells); err != nil {
		return nil, fmt.Errorf("life: snapshot: %w", err)
	}
	return cells, nil
}

// Population returns the number of live cells in the current generation.
func (s *Simulation) Population() (int, error) {
	cells, err := s.Cells()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range cells {
		if c != 0 {
			n++
		}
	}
	return n, nil
}

// Size returns the grid dimensions.
func (s *Simulation) Size() (gridX, gridY int) { return s.width, s.height }

// Generation returns the number of generations since New, Reset or Load.
func (s *Simulation) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Device returns the name of the compute device in use.
func (s *Simulation) Device() string { return s.dev.Name() }

// Close releases the grid buffers and the device. Further calls return
// ErrClosed. Close is idempotent.
func (s *Simulation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.release()
}

func (s *Simulation) release() error {
	s.bufs.Release()
	if err := s.dev.Close(); err != nil {
		Logger().Warn("life: device close failed", "err", err)
		return fmt.Errorf("life: close device: %w", err)
	}
	Logger().Info("life: simulation closed", "generations", s.generation)
	return nil
}
