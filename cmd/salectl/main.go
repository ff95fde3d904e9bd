// Package main is the entry point for the salescope CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/salescope/cmd/salectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
