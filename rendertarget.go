package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// RenderTarget is an offscreen render destination: a device-local color image
// plus the render pass and framebuffer that draw into it. The render pass
// clears on load and leaves the image in transfer-src layout, so a
// CopyTargetToBuffer recorded after the pass needs no extra barrier.
type RenderTarget struct {
	Device        *Device
	Image         *DeviceImage
	VKRenderPass  vk.RenderPass
	VKFramebuffer vk.Framebuffer
	Extent        vk.Extent2D
}

// CreateRenderTarget builds an offscreen target of the given size and color
// format. Failures wrap ErrAllocationFailed.
func (d *Device) CreateRenderTarget(width, height int, format vk.Format) (*RenderTarget, error) {
	img, err := d.CreateDeviceImage(width, height, format,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageTransferSrcBit))
	if err != nil {
		return nil, err
	}

	t := &RenderTarget{
		Device: d,
		Image:  img,
		Extent: vk.Extent2D{Width: uint32(width), Height: uint32(height)},
	}

	if err := t.createRenderPass(); err != nil {
		img.Destroy()
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	if err := t.createFramebuffer(); err != nil {
		t.Destroy()
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	return t, nil
}

// VKRenderPassCreateInfo describes the target's single color subpass.
func (t *RenderTarget) VKRenderPassCreateInfo() vk.RenderPassCreateInfo {
	attachmentDescriptions := []vk.AttachmentDescription{{
		Format:         t.Image.VKFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutTransferSrcOptimal,
	}}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpassDescriptions := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachments,
	}}

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: 0,
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstAccessMask: vk.AccessFlags(vk.AccessTransferReadBit),
		},
	}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      subpassDescriptions,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
}

func (t *RenderTarget) createRenderPass() error {
	renderPassCreateInfo := t.VKRenderPassCreateInfo()

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(t.Device.VKDevice, &renderPassCreateInfo, nil, &renderPass)); err != nil {
		return err
	}

	t.VKRenderPass = renderPass
	return nil
}

func (t *RenderTarget) createFramebuffer() error {
	attachments := []vk.ImageView{t.Image.View.VKImageView}

	fbCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      t.VKRenderPass,
		Layers:          1,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           t.Extent.Width,
		Height:          t.Extent.Height,
	}

	return vk.Error(vk.CreateFramebuffer(t.Device.VKDevice, &fbCreateInfo, nil, &t.VKFramebuffer))
}

func (t *RenderTarget) Destroy() {
	if t.VKFramebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(t.Device.VKDevice, t.VKFramebuffer, nil)
		t.VKFramebuffer = vk.NullFramebuffer
	}
	if t.VKRenderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(t.Device.VKDevice, t.VKRenderPass, nil)
		t.VKRenderPass = vk.NullRenderPass
	}
	if t.Image != nil {
		t.Image.Destroy()
		t.Image = nil
	}
}
