package commands

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/celer/vkc"
)

var (
	allMandelbrotOut string
	allTriangleOut   string
	allSize          int
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every demo in order: copy, compute, mandelbrot, triangle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := acquire(vkc.CapGraphics)
		if err != nil {
			return err
		}
		defer ctx.Destroy()

		steps := []struct {
			name string
			run  func() error
		}{
			{"copy", func() error { return runCopy(ctx) }},
			{"compute", func() error { return runCompute(ctx) }},
			{"mandelbrot", func() error { return runMandelbrot(ctx, allMandelbrotOut, allSize) }},
			{"triangle", func() error { return runTriangle(ctx, allTriangleOut, allSize) }},
		}

		for _, step := range steps {
			log.WithField("demo", step.name).Info("running")
			if err := step.run(); err != nil {
				log.WithField("demo", step.name).WithError(err).Error("demo failed")
				return err
			}
		}

		log.Info("all demos passed")
		return nil
	},
}

func init() {
	allCmd.Flags().StringVar(&allMandelbrotOut, "mandelbrot-out", "mandelbrot.png", "mandelbrot output PNG file")
	allCmd.Flags().StringVar(&allTriangleOut, "triangle-out", "triangle.png", "triangle output PNG file")
	allCmd.Flags().IntVar(&allSize, "size", 512, "image width and height in pixels")
	rootCmd.AddCommand(allCmd)
}
