// Package main provides the entry point for the candidex CLI.
package main

import (
	"os"

	"github.com/candidex/candidex/cmd/candidex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
