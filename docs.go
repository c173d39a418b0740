/*
Package vkc is a small toolkit for batch compute and offscreen rendering with
Vulkan. It wraps the pieces of the Vulkan API a one-shot GPU program needs -
device acquisition, host-visible buffers, compute and graphics pipelines,
command recording, fenced submission and host readback - behind a surface that
keeps the one correctness rule such programs have explicit: a host read of a
buffer the device writes is only possible after the completion handle of its
last writer has signaled.

The intended usage is strictly sequential:

	ctx, err := vkc.AcquireDevice(vkc.AcquireOptions{})
	// allocate buffers and images
	// build a pipeline
	cb, err := ctx.Record().
		Dispatch(pipeline, set, 1024, 1, 1).
		Finish()
	done, err := ctx.Submit(cb)
	err = done.Wait(0)
	view, err := buf.Acquire()
	// read view.Bytes()
	view.Release()

Native Vulkan objects are exposed on every wrapper with a VK prefix, so callers
are not limited by what this package chooses to wrap.

Presentation is out of scope: there is no window, no surface and no swapchain.
Rendering targets an offscreen image which is copied back to a host buffer.
*/
package vkc
