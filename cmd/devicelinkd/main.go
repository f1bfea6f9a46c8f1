// Package main is the entry point for the devicelinkd daemon.
package main

import (
	"log"
	"os"

	"github.com/devicelink/devicelink/internal/daemon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Printf("devicelinkd: %v", err)
		os.Exit(1)
	}
}
