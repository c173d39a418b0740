package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Capability selects what kind of queue a Context needs.
type Capability int

const (
	// CapCompute requires a compute-capable queue family.
	CapCompute Capability = iota
	// CapGraphics requires a family with both graphics and compute, which is
	// what the demo workloads need since they mix dispatches and draws.
	CapGraphics
)

// AcquireOptions configures AcquireDevice. The zero value acquires the first
// compute-capable device with a 64 MiB host buffer pool.
type AcquireOptions struct {
	AppName string

	// DeviceIndex selects among the enumerated physical devices.
	DeviceIndex int

	// Caps is the queue capability the workload needs.
	Caps Capability

	// EnableValidation turns on the Khronos validation layer and debug
	// reporting. Acquisition proceeds without them if the loader lacks them.
	EnableValidation bool

	// HostPoolSize is the byte size of the persistently mapped host buffer
	// pool, 64 MiB when zero.
	HostPoolSize uint64
}

const defaultHostPoolSize = 64 << 20

// Context owns one acquired device and everything the demo workloads need on
// it. All resources a Context hands out live until the Context is destroyed
// or the resource is freed explicitly.
//
// A Context is intended for a single host goroutine.
type Context struct {
	Instance       *Instance
	PhysicalDevice *PhysicalDevice
	Device         *Device
	Queue          *Queue
	CommandPool    *CommandPool
	PipelineCache  *PipelineCache
	Pool           *BufferPool
}

// AcquireDevice initializes Vulkan, picks a physical device and queue family
// per the options, opens a logical device and builds the supporting objects.
// No device at all yields ErrNoDeviceAvailable; a device whose queue families
// cannot satisfy the requested capability yields ErrNoSuitableQueueFamily.
func AcquireDevice(opts AcquireOptions) (*Context, error) {
	if err := InitVulkan(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDeviceAvailable, err)
	}

	app := &App{
		Name:       opts.AppName,
		APIVersion: Version{Major: 1},
	}
	if app.Name == "" {
		app.Name = "vkc"
	}
	if opts.EnableValidation {
		app.EnableValidation()
	}

	instance, err := app.CreateInstance()
	if err != nil {
		return nil, fmt.Errorf("%w: creating instance: %v", ErrNoDeviceAvailable, err)
	}

	ctx, err := acquireOnInstance(instance, opts)
	if err != nil {
		instance.Destroy()
		return nil, err
	}

	if opts.EnableValidation {
		// best effort, the extension may be absent
		ctx.Instance.UseDefaultDebugCallback()
	}
	return ctx, nil
}

func acquireOnInstance(instance *Instance, opts AcquireOptions) (*Context, error) {
	devices, err := instance.PhysicalDevices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDeviceAvailable, err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no physical devices enumerated", ErrNoDeviceAvailable)
	}
	if opts.DeviceIndex < 0 || opts.DeviceIndex >= len(devices) {
		return nil, fmt.Errorf("%w: device index %d out of range, have %d device(s)",
			ErrNoDeviceAvailable, opts.DeviceIndex, len(devices))
	}
	physical := devices[opts.DeviceIndex]

	families, err := physical.QueueFamilies()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSuitableQueueFamily, err)
	}

	switch opts.Caps {
	case CapGraphics:
		families = families.FilterGraphicsAndCompute()
	default:
		families = families.FilterCompute()
	}
	if len(families) == 0 {
		return nil, fmt.Errorf("%w: device %q has no %v queue family",
			ErrNoSuitableQueueFamily, physical.DeviceName, opts.Caps)
	}
	family := families[0]

	device, err := physical.CreateLogicalDevice(QueueFamilySlice{family})
	if err != nil {
		return nil, fmt.Errorf("%w: opening logical device: %v", ErrNoDeviceAvailable, err)
	}

	ctx := &Context{
		Instance:       instance,
		PhysicalDevice: physical,
		Device:         device,
		Queue:          device.GetQueue(family),
	}

	if ctx.CommandPool, err = device.CreateCommandPool(family); err != nil {
		ctx.Destroy()
		return nil, err
	}
	if ctx.PipelineCache, err = device.CreatePipelineCache(); err != nil {
		ctx.Destroy()
		return nil, err
	}

	poolSize := opts.HostPoolSize
	if poolSize == 0 {
		poolSize = defaultHostPoolSize
	}
	// the probe must carry every usage class the pool will serve so the
	// chosen memory type is compatible with all of them
	poolUsage := hostBufferUsage(vk.BufferUsageStorageBufferBit | vk.BufferUsageVertexBufferBit)
	if ctx.Pool, err = device.CreateHostBufferPool(poolSize, poolUsage); err != nil {
		ctx.Destroy()
		return nil, err
	}

	return ctx, nil
}

func (c Capability) String() string {
	if c == CapGraphics {
		return "graphics+compute"
	}
	return "compute"
}

// hostBufferUsage widens the requested usage so every host buffer can be the
// source and destination of transfers, which keeps the pool's memory type
// uniform across usage classes.
func hostBufferUsage(usage vk.BufferUsageFlagBits) vk.BufferUsageFlagBits {
	return usage | vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit
}

// AllocateHostBuffer sub-allocates a host-visible buffer of the given byte
// size from the context pool. Transfer usage is always included.
func (c *Context) AllocateHostBuffer(size uint64, usage vk.BufferUsageFlagBits) (*HostBuffer, error) {
	return c.Pool.AllocateBuffer(size, hostBufferUsage(usage))
}

// AllocateStorageBuffer sub-allocates a host-visible buffer usable as a
// compute storage buffer.
func (c *Context) AllocateStorageBuffer(size uint64) (*HostBuffer, error) {
	return c.AllocateHostBuffer(size, vk.BufferUsageStorageBufferBit)
}

// AllocateVertexBuffer sub-allocates a host-visible buffer usable as a vertex
// source.
func (c *Context) AllocateVertexBuffer(size uint64) (*HostBuffer, error) {
	return c.AllocateHostBuffer(size, vk.BufferUsageVertexBufferBit)
}

// AllocateDeviceImage creates a device-local image. Transfer-src usage is
// always included so the image can be read back into a host buffer.
func (c *Context) AllocateDeviceImage(width, height int, format vk.Format, usage vk.ImageUsageFlagBits) (*DeviceImage, error) {
	return c.Device.CreateDeviceImage(width, height, format,
		vk.ImageUsageFlags(usage|vk.ImageUsageTransferSrcBit))
}

// AllocateStorageImage creates a device-local storage image for compute
// output.
func (c *Context) AllocateStorageImage(width, height int, format vk.Format) (*DeviceImage, error) {
	return c.AllocateDeviceImage(width, height, format, vk.ImageUsageStorageBit)
}

// CreateRenderTarget builds an offscreen render target on this context's
// device.
func (c *Context) CreateRenderTarget(width, height int, format vk.Format) (*RenderTarget, error) {
	return c.Device.CreateRenderTarget(width, height, format)
}

// BuildComputePipeline loads a compiled compute program and builds a pipeline
// over the given descriptor set layout. The layout must already have been
// created on the device.
func (c *Context) BuildComputePipeline(prog *ShaderProgram, dsl *DescriptorSetLayout) (*ComputePipeline, error) {
	module, err := c.Device.LoadShaderModule(prog)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPipelineBuild, err)
	}

	layout, err := c.Device.CreatePipelineLayout(dsl)
	if err != nil {
		module.Destroy()
		return nil, fmt.Errorf("%w: %v", ErrPipelineBuild, err)
	}

	pipeline, err := c.Device.CreateComputePipeline(c.PipelineCache, module, layout)
	if err != nil {
		layout.Destroy()
		module.Destroy()
		return nil, err
	}
	return pipeline, nil
}

// BuildGraphicsPipeline builds a graphics pipeline from the config, targeting
// the render target, through this context's pipeline cache.
func (c *Context) BuildGraphicsPipeline(cfg *GraphicsPipelineConfig, target *RenderTarget) (*GraphicsPipeline, error) {
	return c.Device.CreateGraphicsPipeline(c.PipelineCache, cfg, target)
}

// Submit hands a finished command buffer to the device and returns the
// Completion representing it. Every host buffer the command buffer writes is
// stamped with the Completion, so reads of those buffers are refused until it
// signals. A command buffer submits exactly once.
func (c *Context) Submit(cb *CommandBuffer) (*Completion, error) {
	if cb.submitted {
		return nil, fmt.Errorf("%w: command buffer already submitted", ErrSubmissionFailed)
	}

	fence, err := c.Device.createFence(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	completion := &Completion{
		Device:    c.Device,
		VKFence:   fence,
		resources: cb.writes,
	}

	if err := c.Queue.SubmitWithFence(fence, cb); err != nil {
		completion.Destroy()
		return nil, err
	}

	cb.submitted = true
	for _, b := range cb.writes {
		b.setLastWriter(completion)
	}
	return completion, nil
}

// Destroy waits for the device to go idle and tears the context down in
// reverse creation order. The context is unusable afterwards.
func (c *Context) Destroy() {
	if c.Device != nil {
		c.Device.WaitIdle()
	}
	if c.Pool != nil {
		c.Pool.Destroy()
		c.Pool = nil
	}
	if c.PipelineCache != nil {
		c.PipelineCache.Destroy()
		c.PipelineCache = nil
	}
	if c.CommandPool != nil {
		c.CommandPool.Destroy()
		c.CommandPool = nil
	}
	if c.Device != nil {
		c.Device.Destroy()
		c.Device = nil
	}
	if c.Instance != nil {
		c.Instance.Destroy()
		c.Instance = nil
	}
}
