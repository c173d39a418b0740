package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// BufferPool is one host-visible, host-coherent DeviceMemory allocation which
// stays persistently mapped and sub-allocates buffers through a
// LinearAllocator. All HostBuffers a Context hands out come from its pool.
type BufferPool struct {
	Device    *Device
	Size      uint64
	Allocator IAllocator
	Memory    *DeviceMemory
}

// CreateHostBufferPool allocates and maps a pool of host-visible memory. A
// throwaway buffer is created first to learn which memory types can back
// buffers of the usage classes the pool serves.
func (d *Device) CreateHostBufferPool(size uint64, usage vk.BufferUsageFlagBits) (*BufferPool, error) {
	probe, err := d.CreateBufferWithOptions(size, vk.BufferUsageFlags(usage), vk.SharingModeExclusive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}
	defer probe.Destroy()

	mr := probe.VKMemoryRequirements()
	mr.Deref()

	memory, err := d.Allocate(int(size), mr.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	if _, err := memory.Map(); err != nil {
		memory.Destroy()
		return nil, fmt.Errorf("%w: mapping pool memory: %v", ErrAllocationFailed, err)
	}

	return &BufferPool{
		Device:    d,
		Size:      size,
		Allocator: &LinearAllocator{Size: size},
		Memory:    memory,
	}, nil
}

// AllocateBuffer sub-allocates a buffer of the given byte size and usage from
// the pool. Pool exhaustion wraps ErrAllocationFailed.
func (p *BufferPool) AllocateBuffer(size uint64, usage vk.BufferUsageFlagBits) (*HostBuffer, error) {
	buffer, err := p.Device.CreateBufferWithOptions(size, vk.BufferUsageFlags(usage), vk.SharingModeExclusive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	mr := buffer.VKMemoryRequirements()
	mr.Deref()

	allocation := p.Allocator.Allocate(uint64(mr.Size), uint64(mr.Alignment))
	if allocation == nil {
		buffer.Destroy()
		return nil, fmt.Errorf("%w: insufficient space in buffer pool", ErrAllocationFailed)
	}

	if err := buffer.Bind(p.Memory, allocation.Offset); err != nil {
		p.Allocator.Free(allocation)
		buffer.Destroy()
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	hb := &HostBuffer{
		Buffer:     *buffer,
		Pool:       p,
		Allocation: allocation,
		mapped:     ToBytes(p.Memory.Ptr, int(p.Memory.Size))[allocation.Offset : allocation.Offset+size],
	}
	return hb, nil
}

func (p *BufferPool) Destroy() {
	if p.Memory != nil {
		if p.Memory.IsMapped() {
			p.Memory.Unmap()
		}
		p.Memory.Destroy()
		p.Memory = nil
	}
	p.Allocator = nil
}
