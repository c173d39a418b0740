package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Recorder builds a CommandBuffer from chainable operations. Operations are
// appended in call order and executed by the device strictly in that order.
// The chain carries its first validation error to Finish, so call sites stay
// linear:
//
//	cb, err := ctx.Record().
//		CopyBuffer(src, dst).
//		Finish()
//
// Recording after Finish is a programmer error and surfaces as
// ErrRecorderFinished. A Recorder is for a single host goroutine.
type Recorder struct {
	ctx  *Context
	ops  []func(cb vk.CommandBuffer)
	err  error
	pass *RenderTarget
	// destinations of device writes, stamped with the Completion at submit
	writes   []*HostBuffer
	finished bool
}

// Record starts a new recording.
func (c *Context) Record() *Recorder {
	return &Recorder{ctx: c}
}

func (r *Recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// recordable guards every operation: nothing is appended once the recorder is
// finished or failed.
func (r *Recorder) recordable() bool {
	if r.finished {
		r.fail(ErrRecorderFinished)
		return false
	}
	return r.err == nil
}

// CopyBuffer records a device-side copy of src into dst. The buffers must be
// the same size; dst is marked as written.
func (r *Recorder) CopyBuffer(src, dst *HostBuffer) *Recorder {
	if !r.recordable() {
		return r
	}
	if r.pass != nil {
		r.fail(fmt.Errorf("CopyBuffer inside an open render pass"))
		return r
	}
	if src.Size != dst.Size {
		r.fail(fmt.Errorf("CopyBuffer size mismatch: src %d bytes, dst %d bytes", src.Size, dst.Size))
		return r
	}

	srcBuf, dstBuf, size := src.VKBuffer, dst.VKBuffer, src.Size
	r.ops = append(r.ops, func(cb vk.CommandBuffer) {
		vk.CmdCopyBuffer(cb, srcBuf, dstBuf, 1, []vk.BufferCopy{{
			Size: vk.DeviceSize(size),
		}})
	})

	r.writes = append(r.writes, dst)
	return r
}

// Dispatch records a compute dispatch of the given group counts with the
// given binding set. Storage buffers the set binds are marked as written;
// storage images are transitioned to general layout on first use.
func (r *Recorder) Dispatch(p *ComputePipeline, set *DescriptorSet, gx, gy, gz int) *Recorder {
	if !r.recordable() {
		return r
	}
	if r.pass != nil {
		r.fail(fmt.Errorf("Dispatch inside an open render pass"))
		return r
	}

	for _, img := range set.boundImages {
		if img.layout != vk.ImageLayoutGeneral {
			r.transitionImage(img, vk.ImageLayoutGeneral,
				vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0,
				vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), vk.AccessFlags(vk.AccessShaderWriteBit))
		}
	}

	pipeline, layout, dset := p.VKPipeline, p.Layout.VKPipelineLayout, set.VKDescriptorSet
	r.ops = append(r.ops, func(cb vk.CommandBuffer) {
		vk.CmdBindPipeline(cb, vk.PipelineBindPointCompute, pipeline)
		vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointCompute, layout, 0, 1, []vk.DescriptorSet{dset}, 0, nil)
		vk.CmdDispatch(cb, uint32(gx), uint32(gy), uint32(gz))
	})

	r.writes = append(r.writes, set.boundBuffers...)
	return r
}

// BeginRenderPass opens the target's render pass, clearing the color
// attachment to the given value.
func (r *Recorder) BeginRenderPass(t *RenderTarget, clear [4]float32) *Recorder {
	if !r.recordable() {
		return r
	}
	if r.pass != nil {
		r.fail(fmt.Errorf("BeginRenderPass while a render pass is already open"))
		return r
	}
	r.pass = t

	renderPass, framebuffer, extent := t.VKRenderPass, t.VKFramebuffer, t.Extent
	r.ops = append(r.ops, func(cb vk.CommandBuffer) {
		renderPassBeginInfo := vk.RenderPassBeginInfo{
			SType:       vk.StructureTypeRenderPassBeginInfo,
			RenderPass:  renderPass,
			Framebuffer: framebuffer,
			RenderArea: vk.Rect2D{
				Extent: extent,
			},
			ClearValueCount: 1,
			PClearValues:    []vk.ClearValue{vk.NewClearValue(clear[:])},
		}
		vk.CmdBeginRenderPass(cb, &renderPassBeginInfo, vk.SubpassContentsInline)
	})
	return r
}

// Draw records a draw of vertexCount vertices from the given vertex buffer
// with the given pipeline. A render pass must be open.
func (r *Recorder) Draw(p *GraphicsPipeline, vertices *HostBuffer, vertexCount int) *Recorder {
	if !r.recordable() {
		return r
	}
	if r.pass == nil {
		r.fail(fmt.Errorf("Draw outside a render pass"))
		return r
	}

	pipeline, vbuf := p.VKPipeline, vertices.VKBuffer
	r.ops = append(r.ops, func(cb vk.CommandBuffer) {
		vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, pipeline)
		vk.CmdBindVertexBuffers(cb, 0, 1, []vk.Buffer{vbuf}, []vk.DeviceSize{0})
		vk.CmdDraw(cb, uint32(vertexCount), 1, 0, 0)
	})
	return r
}

// EndRenderPass closes the open render pass. The target image is left in
// transfer-src layout by the pass itself.
func (r *Recorder) EndRenderPass() *Recorder {
	if !r.recordable() {
		return r
	}
	if r.pass == nil {
		r.fail(fmt.Errorf("EndRenderPass without an open render pass"))
		return r
	}

	r.pass.Image.layout = vk.ImageLayoutTransferSrcOptimal
	r.pass = nil

	r.ops = append(r.ops, func(cb vk.CommandBuffer) {
		vk.CmdEndRenderPass(cb)
	})
	return r
}

// CopyImageToBuffer records a copy of the image's pixels into dst, which must
// be at least the image's byte size. The image is transitioned to
// transfer-src layout if it is not there already; dst is marked as written.
// The open render pass, if any, must be ended first.
func (r *Recorder) CopyImageToBuffer(img *DeviceImage, dst *HostBuffer) *Recorder {
	if !r.recordable() {
		return r
	}
	if r.pass != nil {
		r.fail(fmt.Errorf("CopyImageToBuffer inside an open render pass"))
		return r
	}
	if dst.Size < uint64(img.ByteSize()) {
		r.fail(fmt.Errorf("CopyImageToBuffer: dst %d bytes, image needs %d", dst.Size, img.ByteSize()))
		return r
	}

	if img.layout != vk.ImageLayoutTransferSrcOptimal {
		srcStage := vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		srcAccess := vk.AccessFlags(0)
		if img.layout == vk.ImageLayoutGeneral {
			srcStage = vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
			srcAccess = vk.AccessFlags(vk.AccessShaderWriteBit)
		}
		r.transitionImage(img, vk.ImageLayoutTransferSrcOptimal,
			srcStage, srcAccess,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferReadBit))
	}

	src, dstBuf := img.VKImage, dst.VKBuffer
	width, height := img.Width, img.Height
	r.ops = append(r.ops, func(cb vk.CommandBuffer) {
		vk.CmdCopyImageToBuffer(cb, src, vk.ImageLayoutTransferSrcOptimal, dstBuf, 1, []vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{
				Width:  uint32(width),
				Height: uint32(height),
				Depth:  1,
			},
		}})
	})

	r.writes = append(r.writes, dst)
	return r
}

// CopyTargetToBuffer records a readback of a render target's color image.
func (r *Recorder) CopyTargetToBuffer(t *RenderTarget, dst *HostBuffer) *Recorder {
	return r.CopyImageToBuffer(t.Image, dst)
}

// transitionImage appends a layout-transition barrier and updates the
// record-time layout.
func (r *Recorder) transitionImage(img *DeviceImage, newLayout vk.ImageLayout,
	srcStage vk.PipelineStageFlags, srcAccess vk.AccessFlags,
	dstStage vk.PipelineStageFlags, dstAccess vk.AccessFlags) {

	oldLayout := img.layout
	img.layout = newLayout

	image := img.VKImage
	r.ops = append(r.ops, func(cb vk.CommandBuffer) {
		barrier := vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               image,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
			SrcAccessMask: srcAccess,
			DstAccessMask: dstAccess,
		}
		vk.CmdPipelineBarrier(cb, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	})
}

// Finish validates the recording, encodes the accumulated operations into a
// one-time-submit Vulkan command buffer and returns it. The recorder cannot
// be used afterwards.
func (r *Recorder) Finish() (*CommandBuffer, error) {
	if r.finished {
		return nil, ErrRecorderFinished
	}
	if r.err != nil {
		r.finished = true
		return nil, r.err
	}
	if r.pass != nil {
		r.finished = true
		return nil, fmt.Errorf("Finish with an open render pass")
	}
	r.finished = true

	vkcb, err := r.ctx.CommandPool.AllocateBuffer()
	if err != nil {
		return nil, err
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(vkcb, &beginInfo)); err != nil {
		r.ctx.CommandPool.FreeBuffer(vkcb)
		return nil, err
	}

	for _, op := range r.ops {
		op(vkcb)
	}

	if err := vk.Error(vk.EndCommandBuffer(vkcb)); err != nil {
		r.ctx.CommandPool.FreeBuffer(vkcb)
		return nil, err
	}

	return &CommandBuffer{
		Pool:            r.ctx.CommandPool,
		VKCommandBuffer: vkcb,
		writes:          r.writes,
	}, nil
}

// CommandBuffer is a recorded, ordered list of GPU operations submitted as
// one unit. It is immutable once built and submitted exactly once.
type CommandBuffer struct {
	Pool            *CommandPool
	VKCommandBuffer vk.CommandBuffer

	writes    []*HostBuffer
	submitted bool
}

// Free returns the command buffer to its pool. Only free a submitted buffer
// after its Completion has signaled.
func (c *CommandBuffer) Free() {
	if c.VKCommandBuffer != nil {
		c.Pool.FreeBuffer(c.VKCommandBuffer)
		c.VKCommandBuffer = nil
	}
}
