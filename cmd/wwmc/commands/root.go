// Package commands defines all Cobra CLI commands for the wwmc binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wwmc-ai/wwmc-go/internal/audit"
	"github.com/wwmc-ai/wwmc-go/internal/config"
	"github.com/wwmc-ai/wwmc-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wwmc",
		Short: "wwmc — the \"where with my card\" assistant",
		Long: `wwmc answers where a payment card is accepted near the caller.

It streams LLM chat responses grounded in the caller's location and in
reference documents retrieved from a vector store, logs conversations to
MongoDB, and ingests PDF documents and merchant category code tables.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.wwmc/config.yaml).
See 'wwmc --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Pick up a local .env first so YAML and audit see its values.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.wwmc/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewMCCCmd(),
		NewVersionCmd(),
	)

	return root
}
