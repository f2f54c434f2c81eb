// Package main is the entry point for the alertwatch daemon and CLI.
package main

import (
	"os"

	"github.com/good-yellow-bee/alertwatch/cmd/alertwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
