package life

import "github.com/gogpu/gpucontext"

// Option configures a Simulation during creation.
//
// Example:
//
//	// Reproducible run on the CPU backend
//	sim, err := life.New(256, 256, life.WithBackend("cpu"), life.WithSeed(42))
type Option func(*options)

type options struct {
	backend  string
	seed     uint64
	seeded   bool
	workers  int
	provider gpucontext.DeviceProvider
}

func defaultOptions() options {
	return options{backend: "auto"}
}

// WithBackend selects the compute backend: "auto" (default), "gpu",
// "opencl" or "cpu". Auto tries them in that order.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithSeed makes the initial state and every Reset reproducible.
// Without it the generator is seeded from the runtime's random source.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithWorkers sets the goroutine count of the cpu backend.
// Zero or negative means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithDeviceProvider shares an existing GPU device with the gpu backend,
// for example the one a gogpu window renders with. The provider must also
// expose HalDevice() any and HalQueue() any. The shared device is not
// destroyed by Close.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
		if o.backend == "auto" {
			o.backend = "gpu"
		}
	}
}
