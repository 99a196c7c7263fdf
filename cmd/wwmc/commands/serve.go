package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/wwmc-ai/wwmc-go/internal/chat"
	"github.com/wwmc-ai/wwmc-go/internal/docstore"
	"github.com/wwmc-ai/wwmc-go/internal/ingestion"
	"github.com/wwmc-ai/wwmc-go/internal/logging"
	"github.com/wwmc-ai/wwmc-go/internal/provider"
	"github.com/wwmc-ai/wwmc-go/internal/server"
	"github.com/wwmc-ai/wwmc-go/internal/tracing"
)

// logQueueSize bounds the async conversation log queue. Exchanges beyond
// this backlog are dropped with a warning rather than blocking chat.
const logQueueSize = 256

// NewServeCmd constructs the `wwmc serve` command, which starts the HTTP
// server that fronts chat, ingestion, and merchant lookup.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the wwmc HTTP server",
		Long: `Start the wwmc HTTP server on localhost.

The server streams chat responses on POST /api/chat, echoes resolved
location on GET /api/geo, rebuilds the vector store from PDF documents on
GET /api/ingest/documents, reloads merchant category codes on
GET /api/ingest/mcc, and answers merchant lookups on GET /api/mcc.

Examples:
  wwmc serve
  wwmc serve --port 9090
  MODEL_PROVIDER=openai wwmc serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "claude")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}

			ragDeps, closeRAG, err := buildRAG(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeRAG()

			var pingers []server.Pinger
			if ragDeps != nil {
				pingers = append(pingers, server.NewQdrantPinger(ragDeps.Store.Client()))
			}

			// Conversation logging: MongoDB when configured, an embedded SQLite
			// file otherwise. WWMC_CHATLOG_DB overrides the SQLite path; set it
			// to "disabled" to turn logging off entirely.
			var logBackend docstore.ConversationLog
			var merchants *docstore.MongoMerchants

			if uri := os.Getenv("MONGODB_URI"); uri != "" {
				client, connErr := docstore.Connect(ctx, uri)
				if connErr != nil {
					return fmt.Errorf("serve: mongodb: %w", connErr)
				}
				defer func() {
					dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = client.Disconnect(dctx)
				}()
				pingers = append(pingers, server.NewMongoPinger(client))

				fallbackDB := getEnvOrDefault("MONGODB_DATABASE", "wwmc")

				ml, mlErr := docstore.NewMongoLog(client, getEnvOrDefault("MONGODB_LOGS_NAMESPACE", "wwmc.chat_logs"), fallbackDB)
				if mlErr != nil {
					return fmt.Errorf("serve: %w", mlErr)
				}
				logBackend = ml

				merchants, err = docstore.NewMongoMerchants(client, getEnvOrDefault("MONGODB_MCC_NAMESPACE", "wwmc.mcc"), fallbackDB)
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				log.Info("mongodb document store ready", slog.String("database", fallbackDB))
			} else {
				logBackend = openSQLiteFallback(log)
			}

			var logQueue chat.LogEnqueuer
			if logBackend != nil {
				async := docstore.NewAsyncLog(logBackend, log, logQueueSize)
				defer func() {
					dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					_ = async.Close(dctx)
				}()
				logQueue = async
			}

			timeout := chat.DefaultTimeout
			if raw := os.Getenv("WWMC_LLM_TIMEOUT"); raw != "" {
				d, parseErr := time.ParseDuration(raw)
				if parseErr != nil {
					return fmt.Errorf("serve: invalid WWMC_LLM_TIMEOUT %q: %w", raw, parseErr)
				}
				timeout = d
			}

			chatCfg := &chat.Config{
				ChatModel: chatModel,
				Log:       logQueue,
				Timeout:   timeout,
			}
			if ragDeps != nil {
				chatCfg.Retriever = ragDeps.Retriever
			}
			chatSvc, err := chat.New(chatCfg)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			deps := server.Deps{Chat: chatSvc}
			if ragDeps != nil {
				pipeline, pErr := ingestion.NewPipeline(ragDeps.Embedder, ragDeps.Store, nil)
				if pErr != nil {
					return fmt.Errorf("serve: %w", pErr)
				}
				deps.Ingestor = pipeline
			}
			if merchants != nil {
				loader, lErr := ingestion.NewMerchantLoader(merchants)
				if lErr != nil {
					return fmt.Errorf("serve: %w", lErr)
				}
				deps.MCCLoader = loader
				deps.Merchants = merchants
			}

			srv, err := server.New(deps, &server.Config{
				Host:         host,
				Port:         port,
				Logger:       log,
				Pingers:      pingers,
				APIKey:       os.Getenv("WWMC_API_KEY"),
				Debug:        os.Getenv("WWMC_DEBUG") == "true",
				DocumentsDir: getEnvOrDefault("RAG_DIRECTORY_PATH", "./documents"),
				MCCPath:      os.Getenv("MCC_CSV_PATH"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}

// openSQLiteFallback opens the embedded conversation log used when no
// MongoDB is configured. Any failure degrades to no logging with a warning.
func openSQLiteFallback(log *slog.Logger) docstore.ConversationLog {
	path := os.Getenv("WWMC_CHATLOG_DB")
	if path == "disabled" {
		log.Info("conversation logging disabled via WWMC_CHATLOG_DB=disabled")
		return nil
	}
	if path == "" {
		var err error
		path, err = docstore.DefaultLogDBPath()
		if err != nil {
			log.Warn("chatlog: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}
	sl, err := docstore.OpenSQLiteLog(path)
	if err != nil {
		log.Warn("chatlog: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("chatlog: embedded store opened", slog.String("path", path))
	return sl
}
