// Package main is the entry point for the Holocron API server.
package main

import (
	"os"

	"github.com/holocron-dev/holocron/cmd/holocron-api/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
