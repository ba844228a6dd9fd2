// Package main is the entry point for the cube CLI binary.
package main

import (
	"os"

	cli "cubeclient/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
