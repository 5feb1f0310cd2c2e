// ABOUTME: Entry point for the carportal CLI
// ABOUTME: Session-aware command-line client for the Car Portal backend

package main

import (
	"fmt"
	"os"

	"github.com/carportal/carportal-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
