package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ComputePipeline is an immutable compiled compute program. It is bound at
// dispatch time and never mutated after creation.
type ComputePipeline struct {
	Device     *Device
	VKPipeline vk.Pipeline
	Layout     *PipelineLayout

	module *ShaderModule
}

type PipelineCache struct {
	Device          *Device
	VKPipelineCache vk.PipelineCache
}

func (d *Device) CreatePipelineCache() (*PipelineCache, error) {
	pipelineCacheCreate := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}

	var pipelineCache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(d.VKDevice, &pipelineCacheCreate, nil, &pipelineCache)); err != nil {
		return nil, err
	}

	return &PipelineCache{Device: d, VKPipelineCache: pipelineCache}, nil
}

func (pc *PipelineCache) Destroy() {
	vk.DestroyPipelineCache(pc.Device.VKDevice, pc.VKPipelineCache, nil)
}

// CreateComputePipeline builds a compute pipeline from a loaded shader module
// and pipeline layout, entry point "main". The pipeline takes ownership of
// both and releases them on Destroy. Failures wrap ErrPipelineBuild.
func (d *Device) CreateComputePipeline(pc *PipelineCache, module *ShaderModule, layout *PipelineLayout) (*ComputePipeline, error) {
	ci := []vk.ComputePipelineCreateInfo{{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  module.VKPipelineShaderStageCreateInfo("main"),
		Layout: layout.VKPipelineLayout,
	}}

	pipelines := make([]vk.Pipeline, 1)
	cache := vk.PipelineCache(vk.NullHandle)
	if pc != nil {
		cache = pc.VKPipelineCache
	}

	if err := vk.Error(vk.CreateComputePipelines(d.VKDevice, cache, 1, ci, nil, pipelines)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPipelineBuild, err)
	}

	return &ComputePipeline{
		Device:     d,
		VKPipeline: pipelines[0],
		Layout:     layout,
		module:     module,
	}, nil
}

// Destroy releases the pipeline together with the layout and shader module it
// was built from.
func (c *ComputePipeline) Destroy() {
	vk.DestroyPipeline(c.Device.VKDevice, c.VKPipeline, nil)
	if c.Layout != nil {
		c.Layout.Destroy()
		c.Layout = nil
	}
	if c.module != nil {
		c.module.Destroy()
		c.module = nil
	}
}
