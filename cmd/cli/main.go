package main

import (
	"os"

	"github.com/davomat-dev/davomat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
