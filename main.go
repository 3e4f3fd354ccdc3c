package main

import (
	"os"

	"github.com/origolabs/origo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
