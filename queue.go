package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Queue is an ordered channel through which command buffers reach the device.
type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	VKQueue     vk.Queue
}

func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}

// SubmitWithFence submits command buffers to the queue with the given fence
// signaled on completion. Most callers want Context.Submit, which wraps the
// fence in a Completion and stamps written resources.
func (q *Queue) SubmitWithFence(fence vk.Fence, buffers ...*CommandBuffer) error {
	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKCommandBuffer
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(buffers)),
		PCommandBuffers:    b,
	}

	if err := vk.Error(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, fence)); err != nil {
		return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	return nil
}

func (q *Queue) String() string {
	return fmt.Sprintf("{Device: %s QueueFamily: %s}", q.Device.String(), q.QueueFamily.String())
}
