package life

import "errors"

// Errors returned by Simulation. Causes from the compute backends are
// wrapped alongside these, so errors.Is works for both.
var (
	// ErrDeviceInitialization means no compute device or kernel could be
	// set up. Returned by New; the instance is unusable.
	ErrDeviceInitialization = errors.New("life: device initialization failed")

	// ErrResourceAllocation means the device rejected a grid buffer.
	// Returned by New; the instance is unusable.
	ErrResourceAllocation = errors.New("life: resource allocation failed")

	// ErrImageUnavailable means the current frame could not be produced.
	// The simulation state is intact; callers may keep their previous image
	// and retry on the next frame.
	ErrImageUnavailable = errors.New("life: image unavailable")

	// ErrInvalidDimensions means a grid dimension is not positive.
	ErrInvalidDimensions = errors.New("life: invalid grid dimensions")

	// ErrClosed means the Simulation was used after Close.
	ErrClosed = errors.New("life: simulation closed")
)
