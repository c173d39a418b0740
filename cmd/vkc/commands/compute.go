package commands

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkc"
)

const (
	computeCount     = 65536
	computeGroupSize = 64
	computeFactor    = 12
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Run a multiply compute pass over a buffer and verify the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := acquire(vkc.CapCompute)
		if err != nil {
			return err
		}
		defer ctx.Destroy()
		return runCompute(ctx)
	},
}

func init() {
	rootCmd.AddCommand(computeCmd)
}

func runCompute(ctx *vkc.Context) error {
	buf, err := ctx.AllocateStorageBuffer(computeCount * 4)
	if err != nil {
		return err
	}
	defer buf.Free()

	data := make([]byte, computeCount*4)
	for i := 0; i < computeCount; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(i))
	}
	if err := buf.Write(data); err != nil {
		return err
	}

	prog, err := vkc.CompileShader(shaderPath("multiply.comp"), vkc.StageCompute)
	if err != nil {
		return err
	}

	dsl := ctx.Device.NewDescriptorSetLayout()
	dsl.AddStorageBuffer(0, vk.ShaderStageComputeBit)
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
	dp.AddPoolSize(vk.DescriptorTypeStorageBuffer, 1)
	if _, err := ctx.Device.CreateDescriptorPool(dp, 1); err != nil {
		return err
	}
	defer dp.Destroy()

	set, err := dp.Allocate(dsl)
	if err != nil {
		return err
	}
	set.AddBuffer(0, vk.DescriptorTypeStorageBuffer, buf, 0)
	set.Write()

	cb, err := ctx.Record().
		Dispatch(pipeline, set, computeCount/computeGroupSize, 1, 1).
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

	view, err := buf.Acquire()
	if err != nil {
		return err
	}
	defer view.Release()

	out := view.Bytes()
	for i := 0; i < computeCount; i++ {
		if got := binary.LittleEndian.Uint32(out[i*4:]); got != uint32(i*computeFactor) {
			return fmt.Errorf("compute mismatch at %d: got %d, want %d", i, got, i*computeFactor)
		}
	}

	log.WithFields(log.Fields{
		"elements": computeCount,
		"factor":   computeFactor,
	}).Info("compute pass verified")
	return nil
}
