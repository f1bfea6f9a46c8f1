// Package main is the entry point for the devicelink CLI.
package main

import (
	"os"

	"github.com/devicelink/devicelink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
