// Package main is the entry point for the rulegate CLI binary.
package main

import (
	"os"

	"rulegate/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
