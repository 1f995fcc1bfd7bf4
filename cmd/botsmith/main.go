// Package main is the entry point for the botsmith CLI.
package main

import (
	"os"

	"github.com/botsmith-dev/botsmith/cmd/botsmith/app"
	"github.com/botsmith-dev/botsmith/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
