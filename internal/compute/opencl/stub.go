//go:build !opencl

// Package opencl runs the Life kernels through OpenCL. This build excludes
// it; rebuild with -tags opencl to enable the backend.
package opencl

import (
	"fmt"

	"github.com/gogpu/life/internal/compute"
)

// Name is the registry name of this backend.
const Name = "opencl"

func init() {
	compute.Register(Name, Open)
}

// Open reports that OpenCL support was not compiled in.
func Open(compute.Config) (compute.Device, error) {
	return nil, fmt.Errorf("%w: opencl: support is not enabled; rebuild with -tags opencl", compute.ErrUnavailable)
}
