// Package main is the entry point for the whsm command. It can run an
// in-memory module behind a QUIC or gRPC listener, and drive a module as a
// client for quick checks.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigbrett/wolfHSM/cmd/whsm/internal/commands"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "whsm",
		Short: "Security module client and reference server",
		Long: `whsm talks to a security module over the comm protocol.

"serve" runs the reference module on QUIC or gRPC. The other commands
connect as a client using a JSON settings file (--config) or the
--transport and --address flags, and offload one operation each.`,
		SilenceUsage: true,
	}

	commands.InitRootFlags(rootCmd)
	commands.InitServeCommand(rootCmd)
	commands.InitCryptoCommands(rootCmd)
	commands.InitKeyCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stderr)
}
