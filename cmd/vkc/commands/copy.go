package commands

import (
	"bytes"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/celer/vkc"
)

const copySize = 64

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy a buffer on the GPU and verify the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := acquire(vkc.CapCompute)
		if err != nil {
			return err
		}
		defer ctx.Destroy()
		return runCopy(ctx)
	},
}

func init() {
	rootCmd.AddCommand(copyCmd)
}

func runCopy(ctx *vkc.Context) error {
	src, err := ctx.AllocateHostBuffer(copySize, 0)
	if err != nil {
		return err
	}
	defer src.Free()

	dst, err := ctx.AllocateHostBuffer(copySize, 0)
	if err != nil {
		return err
	}
	defer dst.Free()

	data := make([]byte, copySize)
	for i := range data {
		data[i] = byte(i)
	}
	if err := src.Write(data); err != nil {
		return err
	}

	cb, err := ctx.Record().CopyBuffer(src, dst).Finish()
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

	view, err := dst.Acquire()
	if err != nil {
		return err
	}
	defer view.Release()

	if !bytes.Equal(view.Bytes(), data) {
		return fmt.Errorf("copy mismatch: destination differs from source")
	}

	log.WithField("bytes", copySize).Info("buffer copy verified")
	return nil
}
