package main

import (
	"os"

	"github.com/celer/vkc/cmd/vkc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
