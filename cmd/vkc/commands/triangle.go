package commands

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkc"
)

var (
	triangleOut  string
	triangleSize int
)

var triangleCmd = &cobra.Command{
	Use:   "triangle",
	Short: "Rasterize a triangle into an offscreen target and write a PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := acquire(vkc.CapGraphics)
		if err != nil {
			return err
		}
		defer ctx.Destroy()
		return runTriangle(ctx, triangleOut, triangleSize)
	},
}

func init() {
	triangleCmd.Flags().StringVar(&triangleOut, "out", "triangle.png", "output PNG file")
	triangleCmd.Flags().IntVar(&triangleSize, "size", 512, "image width and height in pixels")
	rootCmd.AddCommand(triangleCmd)
}

// vertex is the demo vertex format: a single 2D position.
type vertex struct {
	Pos mgl32.Vec2
}

func (vertex) GetBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    8,
		InputRate: vk.VertexInputRateVertex,
	}
}

func (vertex) GetAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{{
		Binding:  0,
		Location: 0,
		Format:   vk.FormatR32g32Sfloat,
	}}
}

func (v vertex) bytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v.Pos.X()))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v.Pos.Y()))
	return b
}

var triangleVertices = []vertex{
	{Pos: mgl32.Vec2{-0.5, -0.5}},
	{Pos: mgl32.Vec2{0.0, 0.5}},
	{Pos: mgl32.Vec2{0.5, -0.25}},
}

func runTriangle(ctx *vkc.Context, out string, size int) error {
	target, err := ctx.CreateRenderTarget(size, size, vk.FormatR8g8b8a8Unorm)
	if err != nil {
		return err
	}
	defer target.Destroy()

	vbuf, err := ctx.AllocateVertexBuffer(uint64(len(triangleVertices) * 8))
	if err != nil {
		return err
	}
	defer vbuf.Free()

	var data []byte
	for _, v := range triangleVertices {
		data = append(data, v.bytes()...)
	}
	if err := vbuf.Write(data); err != nil {
		return err
	}

	readback, err := ctx.AllocateHostBuffer(uint64(target.Image.ByteSize()), 0)
	if err != nil {
		return err
	}
	defer readback.Free()

	layout, err := ctx.Device.CreatePipelineLayout()
	if err != nil {
		return err
	}
	defer layout.Destroy()

	cfg := ctx.Device.NewGraphicsPipelineConfig()
	cfg.SetPipelineLayout(layout)
	cfg.AddVertexDescriptor(vertex{})
	if err := cfg.AddShaderStageFromFile(shaderPath("triangle.vert"), "main", vkc.StageVertex); err != nil {
		return err
	}
	if err := cfg.AddShaderStageFromFile(shaderPath("triangle.frag"), "main", vkc.StageFragment); err != nil {
		return err
	}

	pipeline, err := ctx.BuildGraphicsPipeline(cfg, target)
	if err != nil {
		return err
	}
	defer pipeline.Destroy()

	cb, err := ctx.Record().
		BeginRenderPass(target, [4]float32{0, 0, 0, 0}).
		Draw(pipeline, vbuf, len(triangleVertices)).
		EndRenderPass().
		CopyTargetToBuffer(target, readback).
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
	}).Info("triangle rendered")
	return nil
}
