package vkc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

// acquireOrSkip opens a device context or skips the test on machines without a
// usable Vulkan implementation. The skip path still asserts the typed error.
func acquireOrSkip(t *testing.T, caps Capability) *Context {
	t.Helper()

	ctx, err := AcquireDevice(AcquireOptions{AppName: "vkc test", Caps: caps})
	if err != nil {
		if !errors.Is(err, ErrNoDeviceAvailable) && !errors.Is(err, ErrNoSuitableQueueFamily) {
			t.Fatalf("acquisition failed with untyped error: %v", err)
		}
		t.Skipf("no usable device: %v", err)
	}
	return ctx
}

func requireShaderCompiler(t *testing.T) {
	t.Helper()
	if !haveBinary("glslc") && !haveBinary("glslangValidator") {
		t.Skip("no shader compiler on PATH")
	}
}

func TestAcquireDevice(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	defer ctx.Destroy()

	if ctx.Device == nil || ctx.Queue == nil || ctx.CommandPool == nil || ctx.Pool == nil {
		t.Fatal("context is missing components")
	}
	if !ctx.Queue.QueueFamily.IsCompute() {
		t.Error("acquired queue family lacks compute")
	}
}

func TestAcquireDeviceBadIndex(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	ctx.Destroy()

	_, err := AcquireDevice(AcquireOptions{AppName: "vkc test", DeviceIndex: 1 << 20})
	if !errors.Is(err, ErrNoDeviceAvailable) {
		t.Errorf("got %v, want ErrNoDeviceAvailable", err)
	}
}

func copyRoundTrip(t *testing.T, ctx *Context, n int) {
	t.Helper()

	src, err := ctx.AllocateHostBuffer(uint64(n), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Free()

	dst, err := ctx.AllocateHostBuffer(uint64(n), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Free()

	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	if err := src.Write(data); err != nil {
		t.Fatal(err)
	}

	cb, err := ctx.Record().CopyBuffer(src, dst).Finish()
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Free()

	done, err := ctx.Submit(cb)
	if err != nil {
		t.Fatal(err)
	}
	defer done.Destroy()

	// the last-writer stamp must gate reads until Wait
	if _, err := dst.Acquire(); !errors.Is(err, ErrBufferInFlight) {
		t.Errorf("acquire before wait: got %v, want ErrBufferInFlight", err)
	}

	if err := done.Wait(0); err != nil {
		t.Fatal(err)
	}

	view, err := dst.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer view.Release()

	if !bytes.Equal(view.Bytes(), data) {
		t.Errorf("copied %d bytes do not match source", n)
	}
}

func TestCopyRoundTrip(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	defer ctx.Destroy()

	copyRoundTrip(t, ctx, 64)
	copyRoundTrip(t, ctx, 4096)
}

func TestSubmitTwice(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	defer ctx.Destroy()

	src, err := ctx.AllocateHostBuffer(16, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Free()

	dst, err := ctx.AllocateHostBuffer(16, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Free()

	cb, err := ctx.Record().CopyBuffer(src, dst).Finish()
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Free()

	done, err := ctx.Submit(cb)
	if err != nil {
		t.Fatal(err)
	}
	defer done.Destroy()
	if err := done.Wait(0); err != nil {
		t.Fatal(err)
	}

	if _, err := ctx.Submit(cb); !errors.Is(err, ErrSubmissionFailed) {
		t.Errorf("second submit: got %v, want ErrSubmissionFailed", err)
	}
}

// multiplyPass fills a buffer with ascending uint32s, dispatches the x12
// shader over the first count elements and verifies the result. The buffer is
// padded to whole workgroups so the shader never writes out of bounds.
func multiplyPass(t *testing.T, ctx *Context, count int) {
	t.Helper()

	const groupSize = 64
	groups := (count + groupSize - 1) / groupSize
	capacity := groups * groupSize
	if capacity == 0 {
		capacity = groupSize
	}

	buf, err := ctx.AllocateStorageBuffer(uint64(capacity * 4))
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Free()

	data := make([]byte, capacity*4)
	for i := 0; i < capacity; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(i))
	}
	if err := buf.Write(data); err != nil {
		t.Fatal(err)
	}

	prog, err := CompileShader("shaders/multiply.comp", StageCompute)
	if err != nil {
		t.Fatal(err)
	}

	dsl := ctx.Device.NewDescriptorSetLayout()
	dsl.AddStorageBuffer(0, vk.ShaderStageComputeBit)
	if _, err := ctx.Device.CreateDescriptorSetLayout(dsl); err != nil {
		t.Fatal(err)
	}
	defer dsl.Destroy()

	pipeline, err := ctx.BuildComputePipeline(prog, dsl)
	if err != nil {
		t.Fatal(err)
	}
	defer pipeline.Destroy()

	dp := ctx.Device.NewDescriptorPool()
	dp.AddPoolSize(vk.DescriptorTypeStorageBuffer, 1)
	if _, err := ctx.Device.CreateDescriptorPool(dp, 1); err != nil {
		t.Fatal(err)
	}
	defer dp.Destroy()

	set, err := dp.Allocate(dsl)
	if err != nil {
		t.Fatal(err)
	}
	set.AddBuffer(0, vk.DescriptorTypeStorageBuffer, buf, 0)
	set.Write()

	cb, err := ctx.Record().Dispatch(pipeline, set, groups, 1, 1).Finish()
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Free()

	done, err := ctx.Submit(cb)
	if err != nil {
		t.Fatal(err)
	}
	defer done.Destroy()
	if err := done.Wait(0); err != nil {
		t.Fatal(err)
	}

	view, err := buf.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer view.Release()

	// elements inside dispatched workgroups come back multiplied; the rest of
	// the padded buffer must be untouched, so dispatching zero groups leaves
	// the whole buffer as written
	out := view.Bytes()
	dispatched := groups * groupSize
	for i := 0; i < capacity; i++ {
		want := uint32(i)
		if i < dispatched {
			want = uint32(i * 12)
		}
		if got := binary.LittleEndian.Uint32(out[i*4:]); got != want {
			t.Fatalf("element %d: got %d, want %d", i, got, want)
		}
	}
}

func TestComputeMultiply(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	defer ctx.Destroy()
	requireShaderCompiler(t)

	multiplyPass(t, ctx, 65536)
}

func TestComputeMultiplySingleElement(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	defer ctx.Destroy()
	requireShaderCompiler(t)

	multiplyPass(t, ctx, 1)
}

func TestComputeMultiplyZeroElements(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	defer ctx.Destroy()
	requireShaderCompiler(t)

	// zero elements dispatch zero workgroups and the pass is a no-op
	multiplyPass(t, ctx, 0)
}

func TestComputePipelineDestroyReleasesOwned(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	defer ctx.Destroy()
	requireShaderCompiler(t)

	prog, err := CompileShader("shaders/multiply.comp", StageCompute)
	if err != nil {
		t.Fatal(err)
	}

	dsl := ctx.Device.NewDescriptorSetLayout()
	dsl.AddStorageBuffer(0, vk.ShaderStageComputeBit)
	if _, err := ctx.Device.CreateDescriptorSetLayout(dsl); err != nil {
		t.Fatal(err)
	}
	defer dsl.Destroy()

	pipeline, err := ctx.BuildComputePipeline(prog, dsl)
	if err != nil {
		t.Fatal(err)
	}

	pipeline.Destroy()

	if pipeline.Layout != nil || pipeline.module != nil {
		t.Error("destroy should release the owned layout and shader module")
	}
}

func TestHostBufferPoolUsageClasses(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	defer ctx.Destroy()

	storage, err := ctx.AllocateStorageBuffer(256)
	if err != nil {
		t.Fatalf("storage buffer: %v", err)
	}
	defer storage.Free()

	vertex, err := ctx.AllocateVertexBuffer(256)
	if err != nil {
		t.Fatalf("vertex buffer: %v", err)
	}
	defer vertex.Free()

	plain, err := ctx.AllocateHostBuffer(256, 0)
	if err != nil {
		t.Fatalf("transfer buffer: %v", err)
	}
	defer plain.Free()

	// every usage class must bind to the pool's memory type and map cleanly
	for _, b := range []*HostBuffer{storage, vertex, plain} {
		if err := b.Write([]byte{1, 2, 3}); err != nil {
			t.Fatal(err)
		}
		view, err := b.Acquire()
		if err != nil {
			t.Fatal(err)
		}
		if got := view.Bytes(); got[0] != 1 || got[2] != 3 {
			t.Errorf("mapped contents differ: %v", got[:3])
		}
		view.Release()
	}
}

func mandelbrotRender(t *testing.T, ctx *Context, size int) []byte {
	t.Helper()

	img, err := ctx.AllocateStorageImage(size, size, vk.FormatR8g8b8a8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	defer img.Destroy()

	readback, err := ctx.AllocateHostBuffer(uint64(img.ByteSize()), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer readback.Free()

	prog, err := CompileShader("shaders/mandelbrot.comp", StageCompute)
	if err != nil {
		t.Fatal(err)
	}

	dsl := ctx.Device.NewDescriptorSetLayout()
	dsl.AddStorageImage(0, vk.ShaderStageComputeBit)
	if _, err := ctx.Device.CreateDescriptorSetLayout(dsl); err != nil {
		t.Fatal(err)
	}
	defer dsl.Destroy()

	pipeline, err := ctx.BuildComputePipeline(prog, dsl)
	if err != nil {
		t.Fatal(err)
	}
	defer pipeline.Destroy()

	dp := ctx.Device.NewDescriptorPool()
	dp.AddPoolSize(vk.DescriptorTypeStorageImage, 1)
	if _, err := ctx.Device.CreateDescriptorPool(dp, 1); err != nil {
		t.Fatal(err)
	}
	defer dp.Destroy()

	set, err := dp.Allocate(dsl)
	if err != nil {
		t.Fatal(err)
	}
	set.AddStorageImage(0, img)
	set.Write()

	cb, err := ctx.Record().
		Dispatch(pipeline, set, size/8, size/8, 1).
		CopyImageToBuffer(img, readback).
		Finish()
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Free()

	done, err := ctx.Submit(cb)
	if err != nil {
		t.Fatal(err)
	}
	defer done.Destroy()
	if err := done.Wait(0); err != nil {
		t.Fatal(err)
	}

	view, err := readback.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer view.Release()

	pixels := make([]byte, len(view.Bytes()))
	copy(pixels, view.Bytes())
	return pixels
}

func TestMandelbrotDeterministic(t *testing.T) {
	ctx := acquireOrSkip(t, CapCompute)
	defer ctx.Destroy()
	requireShaderCompiler(t)

	const size = 512
	first := mandelbrotRender(t, ctx, size)
	second := mandelbrotRender(t, ctx, size)

	if !bytes.Equal(first, second) {
		t.Error("two mandelbrot renders differ")
	}

	// every alpha byte is written as 1.0
	for i := 3; i < len(first); i += 4 {
		if first[i] != 255 {
			t.Fatalf("pixel %d has alpha %d, want 255", i/4, first[i])
		}
	}
}

type testVertex struct {
	x, y float32
}

func (testVertex) GetBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    8,
		InputRate: vk.VertexInputRateVertex,
	}
}

func (testVertex) GetAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{{
		Binding:  0,
		Location: 0,
		Format:   vk.FormatR32g32Sfloat,
	}}
}

func TestTriangleRender(t *testing.T) {
	ctx := acquireOrSkip(t, CapGraphics)
	defer ctx.Destroy()
	requireShaderCompiler(t)

	const size = 512

	target, err := ctx.CreateRenderTarget(size, size, vk.FormatR8g8b8a8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()

	vertices := []testVertex{
		{-0.5, -0.5},
		{0.0, 0.5},
		{0.5, -0.25},
	}

	vbuf, err := ctx.AllocateVertexBuffer(uint64(len(vertices) * 8))
	if err != nil {
		t.Fatal(err)
	}
	defer vbuf.Free()

	data := make([]byte, 0, len(vertices)*8)
	for _, v := range vertices {
		var b [8]byte
		binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v.x))
		binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v.y))
		data = append(data, b[:]...)
	}
	if err := vbuf.Write(data); err != nil {
		t.Fatal(err)
	}

	readback, err := ctx.AllocateHostBuffer(uint64(target.Image.ByteSize()), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer readback.Free()

	layout, err := ctx.Device.CreatePipelineLayout()
	if err != nil {
		t.Fatal(err)
	}
	defer layout.Destroy()

	cfg := ctx.Device.NewGraphicsPipelineConfig()
	cfg.SetPipelineLayout(layout)
	cfg.AddVertexDescriptor(testVertex{})
	if err := cfg.AddShaderStageFromFile("shaders/triangle.vert", "main", StageVertex); err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddShaderStageFromFile("shaders/triangle.frag", "main", StageFragment); err != nil {
		t.Fatal(err)
	}

	pipeline, err := ctx.BuildGraphicsPipeline(cfg, target)
	if err != nil {
		t.Fatal(err)
	}
	defer pipeline.Destroy()

	cb, err := ctx.Record().
		BeginRenderPass(target, [4]float32{0, 0, 0, 0}).
		Draw(pipeline, vbuf, len(vertices)).
		EndRenderPass().
		CopyTargetToBuffer(target, readback).
		Finish()
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Free()

	done, err := ctx.Submit(cb)
	if err != nil {
		t.Fatal(err)
	}
	defer done.Destroy()
	if err := done.Wait(0); err != nil {
		t.Fatal(err)
	}

	view, err := readback.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer view.Release()

	pixels := view.Bytes()
	at := func(x, y int) []byte {
		i := (y*size + x) * 4
		return pixels[i : i+4]
	}

	// NDC origin maps to the image center under any y convention, and the
	// origin lies inside the triangle
	center := at(size/2, size/2)
	if center[0] != 255 || center[3] != 255 {
		t.Errorf("center pixel %v, want opaque red", center)
	}

	for _, corner := range [][2]int{{0, 0}, {size - 1, 0}, {0, size - 1}, {size - 1, size - 1}} {
		px := at(corner[0], corner[1])
		if px[0] != 0 || px[1] != 0 || px[2] != 0 || px[3] != 0 {
			t.Errorf("corner %v pixel %v, want clear color", corner, px)
		}
	}
}
