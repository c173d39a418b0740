package vkc

import (
	"fmt"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

// Completion represents in-flight GPU work. It is returned by Context.Submit
// and must be waited on before any host buffer the submitted work writes is
// read. Completion is not safe for concurrent use; this package's usage model
// is a single host goroutine.
type Completion struct {
	Device   *Device
	VKFence  vk.Fence
	signaled bool

	// buffers whose last writer is the submitted work; cleared on signal
	resources []*HostBuffer
}

func (d *Device) createFence(signaled bool) (vk.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence)); err != nil {
		return vk.NullFence, err
	}
	return fence, nil
}

// Wait blocks until the submitted work completes. A timeout of 0 waits
// unboundedly; a positive timeout returns ErrWaitTimeout on expiry, in which
// case the work is still in flight and Wait may be called again.
func (c *Completion) Wait(timeout time.Duration) error {
	if c.signaled {
		return nil
	}

	ns := uint64(vk.MaxUint64)
	if timeout > 0 {
		ns = uint64(timeout.Nanoseconds())
	}

	res := vk.WaitForFences(c.Device.VKDevice, 1, []vk.Fence{c.VKFence}, vk.True, ns)
	if res == vk.Timeout {
		return ErrWaitTimeout
	}
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("waiting for fence: %w", err)
	}

	c.markSignaled()
	return nil
}

// Poll reports whether the submitted work has completed, without blocking.
func (c *Completion) Poll() (bool, error) {
	if c.signaled {
		return true, nil
	}

	res := vk.GetFenceStatus(c.Device.VKDevice, c.VKFence)
	switch res {
	case vk.Success:
		c.markSignaled()
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, vk.Error(res)
	}
}

// Signaled reports whether a Wait or Poll has observed completion.
func (c *Completion) Signaled() bool {
	return c.signaled
}

func (c *Completion) markSignaled() {
	c.signaled = true
	for _, b := range c.resources {
		if b.lastWriter == c {
			b.lastWriter = nil
		}
	}
	c.resources = nil
}

func (c *Completion) Destroy() {
	if c.VKFence != vk.NullFence {
		vk.DestroyFence(c.Device.VKDevice, c.VKFence, nil)
		c.VKFence = vk.NullFence
	}
}
