package vkc

import (
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSet binds concrete buffers and images to the input slots a shader
// expects, per a specific DescriptorSetLayout. Building one is a precondition
// for Dispatch. The set remembers which resources it binds so the Recorder
// can track writes and layouts.
type DescriptorSet struct {
	Device               *Device
	DescriptorPool       *DescriptorPool
	VKDescriptorSet      vk.DescriptorSet
	VKWriteDescriptorSet []vk.WriteDescriptorSet

	boundBuffers []*HostBuffer
	boundImages  []*DeviceImage
}

// AddBuffer binds a buffer to the given slot.
func (du *DescriptorSet) AddBuffer(dstBinding int, dtype vk.DescriptorType, b *HostBuffer, offset int) {
	descriptorBufferInfo := vk.DescriptorBufferInfo{
		Buffer: b.VKBuffer,
		Offset: vk.DeviceSize(offset),
		Range:  vk.DeviceSize(b.Size),
	}

	du.VKWriteDescriptorSet = append(du.VKWriteDescriptorSet, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      uint32(dstBinding),
		DescriptorCount: 1,
		DescriptorType:  dtype,
		PBufferInfo:     []vk.DescriptorBufferInfo{descriptorBufferInfo},
	})

	du.boundBuffers = append(du.boundBuffers, b)
}

// AddStorageImage binds an image, in general layout, to the given slot.
func (du *DescriptorSet) AddStorageImage(dstBinding int, img *DeviceImage) {
	descriptorImageInfo := vk.DescriptorImageInfo{
		ImageView:   img.View.VKImageView,
		ImageLayout: vk.ImageLayoutGeneral,
	}

	du.VKWriteDescriptorSet = append(du.VKWriteDescriptorSet, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      uint32(dstBinding),
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageImage,
		PImageInfo:      []vk.DescriptorImageInfo{descriptorImageInfo},
	})

	du.boundImages = append(du.boundImages, img)
}

// Write flushes the accumulated bindings to the device.
func (du *DescriptorSet) Write() {
	for i := range du.VKWriteDescriptorSet {
		du.VKWriteDescriptorSet[i].DstSet = du.VKDescriptorSet
	}
	vk.UpdateDescriptorSets(du.Device.VKDevice, uint32(len(du.VKWriteDescriptorSet)), du.VKWriteDescriptorSet, 0, nil)
}
