// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compute defines the dispatcher contract shared by the Life
// backends: opaque device buffers, the two kernels, and a blocking
// RunOverDomain that launches one invocation per cell in 16x16 tiles.
//
// Backends live in sub-packages and register themselves by name:
//
//   - cpu: goroutine tile pool running the Go kernels (always available)
//   - gpu: gogpu/wgpu HAL compute pipelines over WGSL kernels
//   - opencl: OpenCL kernels (requires the "opencl" build tag)
package compute

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
)

// BufferID is an opaque handle to a device buffer.
// Each backend maps IDs to its own storage.
type BufferID uint64

// InvalidID is the zero value, representing no buffer.
const InvalidID BufferID = 0

// Kernel selects the per-cell function RunOverDomain executes.
type Kernel uint8

const (
	// KernelTransition computes the next generation: reads Src cells, writes Dst cells.
	KernelTransition Kernel = iota + 1

	// KernelGrayscale maps cells to intensities: reads Src cells, writes the Dst image.
	KernelGrayscale
)

// String returns the kernel name.
func (k Kernel) String() string {
	switch k {
	case KernelTransition:
		return "transition"
	case KernelGrayscale:
		return "grayscale"
	default:
		return fmt.Sprintf("Kernel(%d)", uint8(k))
	}
}

// Bindings names the buffers a kernel reads and writes.
type Bindings struct {
	Src BufferID
	Dst BufferID
}

// Device executes kernels over a 2-D domain and owns the buffers they use.
//
// Every method blocks until the device has finished the requested work.
// A Device is driven by one goroutine at a time; callers serialize access.
type Device interface {
	// Name identifies the backend and, where known, the hardware.
	Name() string

	// CreateCellBuffer allocates storage for width*height cells, zeroed.
	CreateCellBuffer(width, height int) (BufferID, error)

	// CreateImageBuffer allocates storage for width*height intensities.
	CreateImageBuffer(width, height int) (BufferID, error)

	// DestroyBuffer releases a buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// WriteCells uploads cells into a cell buffer of the same length.
	WriteCells(id BufferID, cells []int8) error

	// ReadCells downloads a cell buffer into dst.
	ReadCells(id BufferID, dst []int8) error

	// ReadImage downloads an image buffer into dst, one byte per pixel.
	ReadImage(id BufferID, dst []byte) error

	// RunOverDomain launches kernel k for every (x, y) in width*height,
	// grouped into TileSize x TileSize tiles with the tile count rounded up.
	// Invocations outside the domain do nothing. It returns once every
	// invocation has completed.
	RunOverDomain(width, height int, k Kernel, b Bindings) error

	// Close releases every buffer and the underlying device.
	Close() error
}

// Errors returned by backends.
var (
	// ErrUnavailable means the backend cannot run on this machine or build.
	ErrUnavailable = errors.New("compute: backend unavailable")

	// ErrAllocation means the device rejected a buffer allocation.
	ErrAllocation = errors.New("compute: buffer allocation failed")

	// ErrUnknownBackend means no backend is registered under the requested name.
	ErrUnknownBackend = errors.New("compute: unknown backend")

	// ErrInvalidBinding means a Bindings field does not name a live buffer of the right kind.
	ErrInvalidBinding = errors.New("compute: invalid buffer binding")

	// ErrDomainMismatch means the domain does not match the bound buffer sizes.
	ErrDomainMismatch = errors.New("compute: domain does not match buffer size")

	// ErrUnknownKernel means RunOverDomain received a Kernel it does not implement.
	ErrUnknownKernel = errors.New("compute: unknown kernel")
)

// Config carries backend construction parameters.
type Config struct {
	// Workers bounds the cpu backend's goroutine pool. Zero means GOMAXPROCS.
	Workers int

	// Provider, when set, supplies a shared GPU device to the gpu backend.
	// The device is not destroyed when the backend closes.
	Provider gpucontext.DeviceProvider
}
