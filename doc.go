// Package life runs Conway's Game of Life on a toroidal grid through a
// compute pipeline and renders each generation as an 8-bit grayscale image.
//
// # Quick Start
//
//	sim, err := life.New(512, 512)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sim.Close()
//
//	for range 100 {
//	    if err := sim.Advance(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	img, err := sim.RenderImage() // *image.Gray, 0 or 255 per cell
//
// # Pipeline
//
// The grid lives on the compute device as two cell buffers that alternate
// between the current and next roles, plus one image buffer. Advance runs
// the transition kernel (B3/S23, neighbors wrap at every edge) from current
// into next and swaps the roles. RenderImage runs the grayscale kernel on
// current and reads the image back into a host array that is reused across
// frames. Both kernels are launched over the grid in 16x16 tiles, rounded up
// at the edges, and every call blocks until the device is done.
//
// # Backends
//
// Backends are selected with WithBackend:
//   - gpu: gogpu/wgpu compute pipelines (Vulkan, or a shared device via WithDeviceProvider)
//   - opencl: OpenCL kernels, built with -tags opencl
//   - cpu: goroutine tile pool, always available
//
// The default "auto" uses the first one that initializes.
//
// # Errors
//
// Initialization problems are reported by New as ErrDeviceInitialization or
// ErrResourceAllocation. A failed RenderImage returns ErrImageUnavailable and
// leaves the simulation usable.
package life
