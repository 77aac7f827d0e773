// Package main is the korika command-line entry point.
package main

import (
	"os"

	"github.com/oojn4/korika/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
