package commands

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkc"
)

const mandelbrotGroupSize = 8

var (
	mandelbrotOut  string
	mandelbrotSize int
)

var mandelbrotCmd = &cobra.Command{
	Use:   "mandelbrot",
	Short: "Render the mandelbrot set with a compute shader and write a PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := acquire(vkc.CapCompute)
		if err != nil {
			return err
		}
		defer ctx.Destroy()
		return runMandelbrot(ctx, mandelbrotOut, mandelbrotSize)
	},
}

func init() {
	mandelbrotCmd.Flags().StringVar(&mandelbrotOut, "out", "mandelbrot.png", "output PNG file")
	mandelbrotCmd.Flags().IntVar(&mandelbrotSize, "size", 512, "image width and height in pixels")
	rootCmd.AddCommand(mandelbrotCmd)
}

func runMandelbrot(ctx *vkc.Context, out string, size int) error {
	img, err := ctx.AllocateStorageImage(size, size, vk.FormatR8g8b8a8Unorm)
	if err != nil {
		return err
	}
	defer img.Destroy()

	readback, err := ctx.AllocateHostBuffer(uint64(img.ByteSize()), 0)
	if err != nil {
		return err
	}
	defer readback.Free()

	prog, err := vkc.CompileShader(shaderPath("mandelbrot.comp"), vkc.StageCompute)
	if err != nil {
		return err
	}

	dsl := ctx.Device.NewDescriptorSetLayout()
	dsl.AddStorageImage(0, vk.ShaderStageComputeBit)
	if _, err := ctx.Device.CreateDescriptorSetLayout(dsl); err != nil {
		return err
	}
	defer dsl.Destroy()

	pipeline, err := ctx.BuildComputePipeline(prog, dsl)
	if err != nil {
		return err
	}
	defer pipeline.Destroy()

	dp := ctx.Device.NewDescriptorPool()
	dp.AddPoolSize(vk.DescriptorTypeStorageImage, 1)
	if _, err := ctx.Device.CreateDescriptorPool(dp, 1); err != nil {
		return err
	}
	defer dp.Destroy()

	set, err := dp.Allocate(dsl)
	if err != nil {
		return err
	}
	set.AddStorageImage(0, img)
	set.Write()

	groups := size / mandelbrotGroupSize
	cb, err := ctx.Record().
		Dispatch(pipeline, set, groups, groups, 1).
		CopyImageToBuffer(img, readback).
		Finish()
	if err != nil {
		return err
	}
	defer cb.Free()

	done, err := ctx.Submit(cb)
	if err != nil {
		return err
	}
	defer done.Destroy()

	if err := done.Wait(0); err != nil {
		return err
	}

	view, err := readback.Acquire()
	if err != nil {
		return err
	}
	defer view.Release()

	if err := vkc.EncodePNG(size, size, view.Bytes(), out); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"out":  out,
		"size": size,
	}).Info("mandelbrot rendered")
	return nil
}
