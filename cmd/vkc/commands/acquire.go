package commands

import (
	"fmt"
	"path/filepath"

	"github.com/docker/go-units"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/celer/vkc"
)

// acquire opens a device context per the global flags.
func acquire(caps vkc.Capability) (*vkc.Context, error) {
	poolSize, err := units.RAMInBytes(viper.GetString("host-pool"))
	if err != nil {
		return nil, fmt.Errorf("parsing --host-pool: %w", err)
	}

	ctx, err := vkc.AcquireDevice(vkc.AcquireOptions{
		AppName:          "vkc",
		DeviceIndex:      viper.GetInt("device"),
		Caps:             caps,
		EnableValidation: viper.GetBool("validation"),
		HostPoolSize:     uint64(poolSize),
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"device":    ctx.PhysicalDevice.DeviceName,
		"queue":     ctx.Queue.QueueFamily.Index,
		"host-pool": units.BytesSize(float64(poolSize)),
	}).Info("device acquired")

	return ctx, nil
}

// shaderPath resolves a shader file name against --shader-dir.
func shaderPath(name string) string {
	return filepath.Join(viper.GetString("shader-dir"), name)
}
