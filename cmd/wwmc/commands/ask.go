package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wwmc-ai/wwmc-go/internal/chat"
	"github.com/wwmc-ai/wwmc-go/internal/docstore"
	"github.com/wwmc-ai/wwmc-go/internal/logging"
	"github.com/wwmc-ai/wwmc-go/internal/provider"
)

// NewAskCmd constructs the `wwmc ask` command, which sends a single question
// to the assistant and streams the response to stdout.
//
// Ask runs as test traffic: there are no geo headers on a terminal, so the
// fixed fallback location is used and the exchange is not logged.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the assistant a one-off question",
		Long: `Ask the wwmc assistant a natural language question and stream the
answer to stdout.

Examples:
  wwmc ask "where can I pay contactless near Orchard Road?"
  wwmc ask "which merchant category covers bakeries?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			// Augmentation wiring failures are non-fatal here: a one-off
			// question is still worth answering from the base prompt.
			cfg := &chat.Config{ChatModel: chatModel}
			ragDeps, closeRAG, err := buildRAG(ctx, log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v — answering without reference excerpts\n", err)
			} else if ragDeps != nil {
				cfg.Retriever = ragDeps.Retriever
			}
			defer closeRAG()

			svc, err := chat.New(cfg)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			req := &chat.Request{
				Messages: []docstore.ChatMessage{{Role: "user", Content: args[0]}},
				Debug:    true,
			}
			if err := svc.Respond(ctx, req, os.Stdout); err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			fmt.Println()
			return nil
		},
	}

	return cmd
}
