package vkc

import (
	"fmt"
)

// HostBuffer is a host-visible buffer sub-allocated from a Context's pool. It
// may be the source or destination of a device-side copy, a storage buffer for
// a compute pass, or a vertex source.
//
// The one correctness rule of this package is enforced here: while a command
// buffer that writes this buffer is in flight, neither Write nor Acquire will
// succeed. The last writer is stamped at submission and cleared when its
// Completion signals.
type HostBuffer struct {
	Buffer
	Pool       *BufferPool
	Allocation *Allocation

	mapped     []byte
	lastWriter *Completion
	views      int
}

func (h *HostBuffer) pending() bool {
	return h.lastWriter != nil && !h.lastWriter.signaled
}

func (h *HostBuffer) setLastWriter(c *Completion) {
	h.lastWriter = c
}

// Write copies data into the buffer through the pool's mapped memory. It
// fails with ErrBufferInFlight while a device writer is pending or a read view
// is still acquired.
func (h *HostBuffer) Write(data []byte) error {
	if h.pending() {
		return fmt.Errorf("%w: write would race the device", ErrBufferInFlight)
	}
	if h.views > 0 {
		return fmt.Errorf("%w: release outstanding read views first", ErrBufferInFlight)
	}
	if len(data) > len(h.mapped) {
		return fmt.Errorf("write of %d bytes exceeds buffer size %d", len(data), len(h.mapped))
	}
	copy(h.mapped, data)
	return nil
}

// Acquire returns a scoped read view of the buffer contents. It is only
// obtainable once the completion handle of the last device writer has
// signaled, which makes wait-before-read mandatory at the type level. The
// view must be Released before the buffer can be written again.
func (h *HostBuffer) Acquire() (*BufferView, error) {
	if h.pending() {
		return nil, fmt.Errorf("%w: wait on the completion handle first", ErrBufferInFlight)
	}
	h.views++
	return &BufferView{buffer: h, data: h.mapped}, nil
}

// Free returns the sub-allocation to the pool and destroys the buffer.
func (h *HostBuffer) Free() {
	if h.Allocation != nil {
		h.Pool.Allocator.Free(h.Allocation)
		h.Allocation = nil
	}
	h.mapped = nil
	h.Buffer.Destroy()
}

// BufferView is a scoped, read-only view of a HostBuffer acquired after its
// last writer completed.
type BufferView struct {
	buffer   *HostBuffer
	data     []byte
	released bool
}

// Bytes returns the viewed contents. The slice aliases mapped device memory
// and is only valid until Release.
func (v *BufferView) Bytes() []byte {
	if v.released {
		return nil
	}
	return v.data
}

// Release ends the view. Releasing twice is a no-op.
func (v *BufferView) Release() {
	if v.released {
		return
	}
	v.released = true
	v.data = nil
	v.buffer.views--
}
