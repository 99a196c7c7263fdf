package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wwmc-ai/wwmc-go/internal/embedder"
	"github.com/wwmc-ai/wwmc-go/internal/ingestion"
	"github.com/wwmc-ai/wwmc-go/internal/logging"
)

// NewIngestCmd constructs the `wwmc ingest` command, which rebuilds the
// vector store from a directory of PDF documents.
func NewIngestCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest PDF documents into the vector store",
		Long: `Extract text from every PDF under a directory, chunk it, embed it,
and replace the Qdrant collection contents with the result.

The collection is rebuilt wholesale: existing points are deleted first, so
the store always reflects exactly the current document set. A directory
with no PDFs leaves the store untouched.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: wwmc-docs)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: openai, azure, ollama (default: openai)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  wwmc ingest
  wwmc ingest --dir ./documents`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if dir == "" {
				dir = getEnvOrDefault("RAG_DIRECTORY_PATH", "./documents")
			}

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			store, err := buildVectorStore(ctx)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			pipeline, err := ingestion.NewPipeline(emb, store, nil)
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion", slog.String("dir", dir))

			summary, err := pipeline.IngestDirectory(ctx, dir, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			for _, res := range summary.Results {
				if res.Status == ingestion.StatusError {
					log.Warn("document skipped",
						slog.String("file", res.File),
						slog.String("reason", res.Message),
					)
				}
			}
			fmt.Println(summary.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory of PDF documents (default: $RAG_DIRECTORY_PATH or ./documents)")

	return cmd
}
