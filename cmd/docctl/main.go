package main

import (
	"os"

	"stealthcompany.com/docgateway/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
