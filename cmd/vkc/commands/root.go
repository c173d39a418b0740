package commands

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vkc",
	Short: "Vulkan compute and offscreen rendering demos",
	Long: `vkc drives a small Vulkan toolkit through a sequence of demo
workloads: a GPU buffer copy, a compute pass over a large buffer, a
mandelbrot render via a compute shader, and a triangle rasterized
offscreen. Image-producing demos write PNG files.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vkc/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("shader-dir", "shaders", "directory containing shader sources")
	rootCmd.PersistentFlags().Int("device", 0, "physical device index")
	rootCmd.PersistentFlags().Bool("validation", false, "enable Vulkan validation layers")
	rootCmd.PersistentFlags().String("host-pool", "64MiB", "host buffer pool size")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("shader-dir", rootCmd.PersistentFlags().Lookup("shader-dir"))
	viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("validation", rootCmd.PersistentFlags().Lookup("validation"))
	viper.BindPFlag("host-pool", rootCmd.PersistentFlags().Lookup("host-pool"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME/.vkc")
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("VKC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("using config file: %s", viper.ConfigFileUsed())
	}

	lvl, err := log.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
