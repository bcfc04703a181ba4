// Package main is the entry point for the repolens CLI.
package main

import (
	"github.com/huangsam/repolens/cmd"
	"github.com/huangsam/repolens/internal/contract"
)

func main() {
	err := cmd.Execute()
	if stopErr := cmd.Shutdown(); stopErr != nil {
		contract.LogWarn("Shutdown failed", stopErr)
	}
	if err != nil {
		contract.LogFatal("Error starting CLI", err)
	}
}
