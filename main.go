package main

import (
	"os"

	"github.com/refnlabs/refbuild/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
