// Package main is the entry point for the jsettings tool.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/jsettings/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := cli.NewRootCommand(os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
