//go:build nogpu

// Package gpu is the hardware compute backend. This build excludes it.
package gpu

import (
	"fmt"

	"github.com/gogpu/life/internal/compute"
)

// Name is the registry name of this backend.
const Name = "gpu"

func init() {
	compute.Register(Name, Open)
}

// Open reports that the GPU backend was compiled out with the nogpu tag.
func Open(compute.Config) (compute.Device, error) {
	return nil, fmt.Errorf("%w: gpu: built with nogpu", compute.ErrUnavailable)
}
