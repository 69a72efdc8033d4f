package main

import (
	"fmt"
	"os"

	"github.com/Serdar715/pathguard/internal/cli"
)

func main() {
	// PathGuard Entry Point
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
