package commands

import (
	"fmt"

	gu "github.com/docker/go-units"
	"github.com/spf13/cobra"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkc"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List Vulkan devices, queue families and memory heaps",
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := vkc.InitVulkan(); err != nil {
		return fmt.Errorf("%w: %v", vkc.ErrNoDeviceAvailable, err)
	}

	extensions, err := vkc.SupportedExtensions()
	if err != nil {
		return err
	}
	list("Extensions", extensions)

	layers, err := vkc.SupportedLayers()
	if err != nil {
		return err
	}
	list("Layers", layers)

	app := &vkc.App{Name: "vkc info"}
	instance, err := app.CreateInstance()
	if err != nil {
		return err
	}
	defer instance.Destroy()

	devices, err := instance.PhysicalDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no physical devices enumerated", vkc.ErrNoDeviceAvailable)
	}

	for _, device := range devices {
		if err := showPhysicalDevice(device); err != nil {
			return err
		}
	}
	return nil
}

func list(title string, data []string) {
	fmt.Printf("%s\n", title)
	fmt.Printf("-----------------------------\n")
	for _, d := range data {
		fmt.Printf("\t%s\n", d)
	}
	fmt.Printf("\n")
}

func showPhysicalDevice(pd *vkc.PhysicalDevice) error {
	fmt.Printf("\n%s\n", pd.DeviceName)
	fmt.Printf("-----------------------------\n")

	fmt.Printf("\n\tQueue Families\n")
	queueFamilies, err := pd.QueueFamilies()
	if err != nil {
		return err
	}
	for _, qf := range queueFamilies {
		fmt.Printf("\t\t%s\n", qf.String())
	}

	fmt.Printf("\n\tMemory Types\n")
	fmt.Printf("\t\tHeapIdx\tFlags\n")
	for _, mt := range pd.MemoryTypes() {
		fmt.Printf("\t\t%d\t%s\n", mt.HeapIndex, memoryPropertyFlags(vk.MemoryPropertyFlagBits(mt.PropertyFlags)))
	}

	fmt.Printf("\n\tMemory Heaps\n")
	for _, h := range pd.MemoryHeaps() {
		fmt.Printf("\t\t%s\t%s\n", gu.BytesSize(float64(h.Size)), memoryHeapFlags(vk.MemoryHeapFlagBits(h.Flags)))
	}

	fmt.Printf("\n\tSupported Extensions\n")
	extensions, err := pd.SupportedExtensions()
	if err != nil {
		return err
	}
	for _, ext := range extensions {
		ext.Deref()
		fmt.Printf("\t\t%s (%d)\n", vk.ToString(ext.ExtensionName[:]), ext.SpecVersion)
	}
	return nil
}

func memoryHeapFlags(f vk.MemoryHeapFlagBits) string {
	s := ""
	if f&vk.MemoryHeapDeviceLocalBit != 0 {
		s += "DeviceLocal|"
	}
	if f&vk.MemoryHeapMultiInstanceBit != 0 {
		s += "MultiInstance|"
	}
	if len(s) > 0 {
		s = s[:len(s)-1]
	}
	return s + fmt.Sprintf(" (%x)", f)
}

func memoryPropertyFlags(f vk.MemoryPropertyFlagBits) string {
	s := ""
	if f&vk.MemoryPropertyHostVisibleBit != 0 {
		s += "HostVisible|"
	}
	if f&vk.MemoryPropertyHostCoherentBit != 0 {
		s += "HostCoherent|"
	}
	if f&vk.MemoryPropertyHostCachedBit != 0 {
		s += "HostCached|"
	}
	if f&vk.MemoryPropertyDeviceLocalBit != 0 {
		s += "DeviceLocal|"
	}
	if f&vk.MemoryPropertyLazilyAllocatedBit != 0 {
		s += "LazilyAllocated|"
	}
	if f&vk.MemoryPropertyProtectedBit != 0 {
		s += "Protected|"
	}
	if len(s) > 0 {
		s = s[:len(s)-1]
	}
	return s + fmt.Sprintf(" (%x)", f)
}
