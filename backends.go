package life

import (
	// Backends register themselves with compute in init.
	_ "github.com/gogpu/life/internal/compute/cpu"
	_ "github.com/gogpu/life/internal/compute/gpu"
	_ "github.com/gogpu/life/internal/compute/opencl"
)
