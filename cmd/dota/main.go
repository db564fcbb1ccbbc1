// Package main is the entry point for the dota CLI binary.
package main

import (
	"os"

	"dota/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
