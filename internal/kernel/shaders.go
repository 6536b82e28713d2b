// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	_ "embed"
)

// Embedded kernel sources for the device backends.

//go:embed shaders/life_step.wgsl
var lifeStepShaderSource string

//go:embed shaders/grayscale.wgsl
var grayscaleShaderSource string

//go:embed shaders/life.cl
var openCLSource string

// Entry points and workgroup shape shared by every source.
const (
	WGSLEntryPoint       = "main"
	OpenCLTransitionName = "life_step"
	OpenCLGrayscaleName  = "grayscale"

	// WorkgroupSize matches @workgroup_size(16, 16, 1) in the WGSL sources
	// and the local size the OpenCL backend enqueues with.
	WorkgroupSize = 16
)

// TransitionWGSL returns the WGSL source of the transition kernel.
// Bindings: 0 params uniform, 1 source cells (read), 2 destination cells.
func TransitionWGSL() string { return lifeStepShaderSource }

// GrayscaleWGSL returns the WGSL source of the grayscale kernel.
// Bindings: 0 params uniform, 1 source cells (read), 2 image (u32 per pixel).
func GrayscaleWGSL() string { return grayscaleShaderSource }

// OpenCLSource returns the OpenCL C program holding both kernels.
// Kernel arguments: src, dst, width, height.
func OpenCLSource() string { return openCLSource }
