package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Image is a raw Vulkan image wrapper.
type Image struct {
	Device   *Device
	VKImage  vk.Image
	VKFormat vk.Format
}

func (d *Device) CreateImage(extent vk.Extent2D, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags) (*Image, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	var image vk.Image
	if err := vk.Error(vk.CreateImage(d.VKDevice, &imageInfo, nil, &image)); err != nil {
		return nil, err
	}

	return &Image{Device: d, VKImage: image, VKFormat: format}, nil
}

func (i *Image) VKMemoryRequirements() vk.MemoryRequirements {
	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(i.Device.VKDevice, i.VKImage, &memRequirements)
	return memRequirements
}

func (i *Image) Destroy() {
	if i.VKImage != vk.NullImage {
		vk.DestroyImage(i.Device.VKDevice, i.VKImage, nil)
		i.VKImage = vk.NullImage
	}
}

// ImageView describes how an image is accessed by pipelines.
type ImageView struct {
	Device      *Device
	VKImageView vk.ImageView
}

func (i *Image) CreateImageView() (*ImageView, error) {
	return i.CreateImageViewWithAspectMask(vk.ImageAspectFlags(vk.ImageAspectColorBit))
}

func (i *Image) CreateImageViewWithAspectMask(mask vk.ImageAspectFlags) (*ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.VKImage,
		ViewType: vk.ImageViewType2d,
		Format:   i.VKFormat,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: mask,
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(i.Device.VKDevice, createInfo, nil, &view)); err != nil {
		return nil, err
	}

	return &ImageView{Device: i.Device, VKImageView: view}, nil
}

func (v *ImageView) Destroy() {
	vk.DestroyImageView(v.Device.VKDevice, v.VKImageView, nil)
}

// DeviceImage is a device-local image with a dedicated memory allocation and a
// color view. It is written only by device-side passes (compute stores or
// rasterization) and read back by copying into a HostBuffer.
type DeviceImage struct {
	Image
	Memory *DeviceMemory
	View   *ImageView
	Width  int
	Height int

	// current layout, tracked at record time by the Recorder
	layout vk.ImageLayout
}

// CreateDeviceImage creates, allocates and binds a device-local image and its
// color view.
func (d *Device) CreateDeviceImage(width, height int, format vk.Format, usage vk.ImageUsageFlags) (*DeviceImage, error) {
	extent := vk.Extent2D{Width: uint32(width), Height: uint32(height)}

	img, err := d.CreateImage(extent, format, vk.ImageTilingOptimal, usage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	mr := img.VKMemoryRequirements()
	mr.Deref()

	mem, err := d.Allocate(int(mr.Size), mr.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		img.Destroy()
		return nil, err
	}

	if err := vk.Error(vk.BindImageMemory(d.VKDevice, img.VKImage, mem.VKDeviceMemory, 0)); err != nil {
		mem.Destroy()
		img.Destroy()
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	di := &DeviceImage{
		Image:  *img,
		Memory: mem,
		Width:  width,
		Height: height,
		layout: vk.ImageLayoutUndefined,
	}

	di.View, err = di.CreateImageView()
	if err != nil {
		di.Destroy()
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	return di, nil
}

// ByteSize returns the size of the image's pixel data in bytes, assuming a
// 4-byte pixel format.
func (i *DeviceImage) ByteSize() int {
	return i.Width * i.Height * 4
}

func (i *DeviceImage) Destroy() {
	if i.View != nil {
		i.View.Destroy()
		i.View = nil
	}
	i.Image.Destroy()
	if i.Memory != nil {
		i.Memory.Destroy()
		i.Memory = nil
	}
}
