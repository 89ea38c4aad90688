package main

import (
	"os"

	"github.com/omramin/omramin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
