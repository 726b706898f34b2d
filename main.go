// Package main is the entry point for the slidecast command.
package main

import (
	"fmt"
	"os"

	"github.com/slidecast/slidecast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
