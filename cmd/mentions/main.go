// Package main is the mentions command: mention extraction, resolution and pricing.
package main

import (
	"fmt"
	"os"

	"solana-mention-tracker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
