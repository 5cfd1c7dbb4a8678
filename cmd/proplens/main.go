// Package main is the entry point for proplens.
package main

import (
	"os"

	"github.com/dohyunlee/proplens/cmd/proplens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
