// Command wwmc is the entry point for the "where with my card" assistant.
// It provides a CLI interface (via Cobra) and an HTTP server that streams
// location-aware card acceptance answers to clients.
package main

import (
	"fmt"
	"os"

	"github.com/wwmc-ai/wwmc-go/cmd/wwmc/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
