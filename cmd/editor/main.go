package main

import (
	"os"

	"github.com/heimdex/heimdex-editor/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
