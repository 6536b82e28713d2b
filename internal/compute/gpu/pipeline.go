// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/life/internal/compute"
	"github.com/gogpu/life/internal/kernel"
)

// paramsSize is the byte size of the Params uniform: width, height, 2x pad.
const paramsSize = 16

// kernels holds the compute pipelines. Both kernels share one bind group
// layout: params uniform, read-only source cells, writable destination.
type kernels struct {
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout

	transitionShader   hal.ShaderModule
	transitionPipeline hal.ComputePipeline
	grayscaleShader    hal.ShaderModule
	grayscalePipeline  hal.ComputePipeline
}

func (k *kernels) pipeline(kind compute.Kernel) hal.ComputePipeline {
	if kind == compute.KernelGrayscale {
		return k.grayscalePipeline
	}
	return k.transitionPipeline
}

func createKernels(device hal.Device) (*kernels, error) {
	k := &kernels{}

	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "life_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}
	k.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "life_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		k.destroy(device)
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	k.pipeLayout = pipeLayout

	k.transitionShader, k.transitionPipeline, err = createPipeline(device, k.pipeLayout, "life_step", kernel.TransitionWGSL())
	if err != nil {
		k.destroy(device)
		return nil, err
	}
	k.grayscaleShader, k.grayscalePipeline, err = createPipeline(device, k.pipeLayout, "life_grayscale", kernel.GrayscaleWGSL())
	if err != nil {
		k.destroy(device)
		return nil, err
	}

	compute.Logger().Debug("gpu: pipelines initialized", "kernels", 2, "workgroup", kernel.WorkgroupSize)
	return k, nil
}

func createPipeline(device hal.Device, layout hal.PipelineLayout, label, wgsl string) (hal.ShaderModule, hal.ComputePipeline, error) {
	spirv, err := compileSPIRV(wgsl)
	if err != nil {
		return nil, nil, fmt.Errorf("compile %s shader: %w", label, err)
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s shader module: %w", label, err)
	}
	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   label + "_pipeline",
		Layout:  layout,
		Compute: hal.ComputeState{Module: module, EntryPoint: kernel.WGSLEntryPoint},
	})
	if err != nil {
		device.DestroyShaderModule(module)
		return nil, nil, fmt.Errorf("create %s pipeline: %w", label, err)
	}
	return module, pipeline, nil
}

func (k *kernels) destroy(device hal.Device) {
	if k.transitionPipeline != nil {
		device.DestroyComputePipeline(k.transitionPipeline)
		k.transitionPipeline = nil
	}
	if k.grayscalePipeline != nil {
		device.DestroyComputePipeline(k.grayscalePipeline)
		k.grayscalePipeline = nil
	}
	if k.pipeLayout != nil {
		device.DestroyPipelineLayout(k.pipeLayout)
		k.pipeLayout = nil
	}
	if k.bindLayout != nil {
		device.DestroyBindGroupLayout(k.bindLayout)
		k.bindLayout = nil
	}
	if k.transitionShader != nil {
		device.DestroyShaderModule(k.transitionShader)
		k.transitionShader = nil
	}
	if k.grayscaleShader != nil {
		device.DestroyShaderModule(k.grayscaleShader)
		k.grayscaleShader = nil
	}
}

// compileSPIRV compiles WGSL with naga and returns little-endian SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	raw, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words, nil
}

func makeParams(width, height uint32) []byte {
	out := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(out[0:], width)
	binary.LittleEndian.PutUint32(out[4:], height)
	return out
}

// packCells widens host cells to the i32 elements the shaders read.
func packCells(cells []int8) []byte {
	out := make([]byte, len(cells)*cellBytes)
	for i, c := range cells {
		binary.LittleEndian.PutUint32(out[i*cellBytes:], uint32(int32(c))) //nolint:gosec // sign-preserving widen
	}
	return out
}

func unpackCells(raw []byte, dst []int8) {
	for i := range dst {
		dst[i] = int8(int32(binary.LittleEndian.Uint32(raw[i*cellBytes:]))) //nolint:gosec // shader writes 0 or 1
	}
}

// unpackPixels narrows u32 intensities to bytes.
func unpackPixels(raw []byte, dst []byte) {
	for i := range dst {
		dst[i] = uint8(binary.LittleEndian.Uint32(raw[i*pixelBytes:]) & 0xFF)
	}
}
