package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// GraphicsPipelineConfig is a utility object to ease construction of graphics
// pipelines. The zero-value-ish defaults from NewGraphicsPipelineConfig suit
// a simple offscreen color pass: triangle list, filled polygons, no culling,
// no depth attachment, viewport from the render target extent.
type GraphicsPipelineConfig struct {
	Device       *Device
	ShaderStages []vk.PipelineShaderStageCreateInfo

	PipelineLayout *PipelineLayout

	// PrimitiveTopology see https://www.khronos.org/registry/vulkan/specs/1.1-extensions/man/html/VkPrimitiveTopology.html
	PrimitiveTopology vk.PrimitiveTopology

	// PolygonMode see https://www.khronos.org/registry/vulkan/specs/1.1-extensions/man/html/VkPolygonMode.html
	PolygonMode vk.PolygonMode

	// LineWidth of rasterized lines, defaults to 1.0
	LineWidth float32

	// CullMode specifies which triangles will be culled, defaults to none so
	// winding order cannot silently discard the demo geometry
	CullMode vk.CullModeFlagBits

	// FrontFace specifies how the front face of a triangle is determined
	FrontFace vk.FrontFace

	// BlendAttachments defaults to one attachment with blending disabled
	BlendAttachments []vk.PipelineColorBlendAttachmentState

	VertexInputBindingDescriptions   []vk.VertexInputBindingDescription
	VertexInputAttributeDescriptions []vk.VertexInputAttributeDescription

	modules []*ShaderModule
}

// NewGraphicsPipelineConfig creates a config with offscreen-friendly defaults.
func (d *Device) NewGraphicsPipelineConfig() *GraphicsPipelineConfig {
	return &GraphicsPipelineConfig{
		Device:            d,
		PrimitiveTopology: vk.PrimitiveTopologyTriangleList,
		PolygonMode:       vk.PolygonModeFill,
		LineWidth:         1.0,
		CullMode:          vk.CullModeNone,
		FrontFace:         vk.FrontFaceCounterClockwise,
	}
}

// AddShaderStage adds a loaded shader module as a pipeline stage.
func (g *GraphicsPipelineConfig) AddShaderStage(module *ShaderModule, entryPoint string) *GraphicsPipelineConfig {
	g.ShaderStages = append(g.ShaderStages, module.VKPipelineShaderStageCreateInfo(entryPoint))
	g.modules = append(g.modules, module)
	return g
}

// AddShaderStageFromFile compiles and loads a shader file as a pipeline stage.
func (g *GraphicsPipelineConfig) AddShaderStageFromFile(file string, entryPoint string, stage ShaderStage) error {
	module, err := g.Device.LoadShaderModuleFromFile(file, stage)
	if err != nil {
		return err
	}
	g.AddShaderStage(module, entryPoint)
	return nil
}

// SetPipelineLayout sets the pipeline layout.
func (g *GraphicsPipelineConfig) SetPipelineLayout(layout *PipelineLayout) *GraphicsPipelineConfig {
	g.PipelineLayout = layout
	return g
}

// AddVertexDescriptor adds vertex binding and attribute descriptions from the
// given vertex source description.
func (g *GraphicsPipelineConfig) AddVertexDescriptor(v VertexDescriptor) *GraphicsPipelineConfig {
	g.VertexInputBindingDescriptions = append(g.VertexInputBindingDescriptions, v.GetBindingDescription())
	g.VertexInputAttributeDescriptions = append(g.VertexInputAttributeDescriptions, v.GetAttributeDescriptions()...)
	return g
}

// VertexDescriptor describes the in-memory layout of a vertex type.
type VertexDescriptor interface {
	GetBindingDescription() vk.VertexInputBindingDescription
	GetAttributeDescriptions() []vk.VertexInputAttributeDescription
}

// VKGraphicsPipelineCreateInfo assembles the create info for the given target
// extent and render pass.
func (g *GraphicsPipelineConfig) VKGraphicsPipelineCreateInfo(extent vk.Extent2D, renderPass vk.RenderPass) vk.GraphicsPipelineCreateInfo {
	vertexInputState := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(g.VertexInputBindingDescriptions)),
		PVertexBindingDescriptions:      g.VertexInputBindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(g.VertexInputAttributeDescriptions)),
		PVertexAttributeDescriptions:    g.VertexInputAttributeDescriptions,
	}

	inputAssemblyState := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               g.PrimitiveTopology,
		PrimitiveRestartEnable: vk.False,
	}

	viewport := vk.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MaxDepth: 1.0,
	}

	scissor := vk.Rect2D{Extent: extent}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	rasterState := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             g.PolygonMode,
		LineWidth:               g.LineWidth,
		CullMode:                vk.CullModeFlags(g.CullMode),
		FrontFace:               g.FrontFace,
		DepthBiasEnable:         vk.False,
	}

	multisampleState := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	blendAttachments := g.BlendAttachments
	if blendAttachments == nil {
		blendAttachments = []vk.PipelineColorBlendAttachmentState{{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
			BlendEnable:    vk.False,
		}}
	}

	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	var pipelineLayout vk.PipelineLayout
	if g.PipelineLayout != nil {
		pipelineLayout = g.PipelineLayout.VKPipelineLayout
	}

	return vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(g.ShaderStages)),
		PStages:             g.ShaderStages,
		PVertexInputState:   &vertexInputState,
		PInputAssemblyState: &inputAssemblyState,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState:   &multisampleState,
		PColorBlendState:    &colorBlendState,
		Layout:              pipelineLayout,
		RenderPass:          renderPass,
		Subpass:             0,
	}
}

// GraphicsPipeline is an immutable compiled graphics program plus fixed
// function state, bound at draw time.
type GraphicsPipeline struct {
	Device     *Device
	VKPipeline vk.Pipeline
	Layout     *PipelineLayout

	modules []*ShaderModule
}

// CreateGraphicsPipeline builds a graphics pipeline targeting the given
// render target. Failures wrap ErrPipelineBuild.
func (d *Device) CreateGraphicsPipeline(pc *PipelineCache, cfg *GraphicsPipelineConfig, target *RenderTarget) (*GraphicsPipeline, error) {
	configs := []vk.GraphicsPipelineCreateInfo{
		cfg.VKGraphicsPipelineCreateInfo(target.Extent, target.VKRenderPass),
	}

	cache := vk.PipelineCache(vk.NullHandle)
	if pc != nil {
		cache = pc.VKPipelineCache
	}

	pipelines := make([]vk.Pipeline, 1)
	err := vk.Error(vk.CreateGraphicsPipelines(d.VKDevice, cache, 1, configs, nil, pipelines))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPipelineBuild, err)
	}

	return &GraphicsPipeline{
		Device:     d,
		VKPipeline: pipelines[0],
		Layout:     cfg.PipelineLayout,
		modules:    cfg.modules,
	}, nil
}

func (g *GraphicsPipeline) Destroy() {
	vk.DestroyPipeline(g.Device.VKDevice, g.VKPipeline, nil)
	for _, m := range g.modules {
		m.Destroy()
	}
	g.modules = nil
}
