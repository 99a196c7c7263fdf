package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wwmc-ai/wwmc-go/internal/chat"
	"github.com/wwmc-ai/wwmc-go/internal/docstore"
	"github.com/wwmc-ai/wwmc-go/internal/geo"
	"github.com/wwmc-ai/wwmc-go/internal/ingestion"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Debug marks all chat traffic as test traffic: exchanges are not logged
	// and unresolved locations fall back to a fixed point.
	Debug bool
	// DocumentsDir is the directory scanned by GET /api/ingest/documents.
	DocumentsDir string
	// MCCPath is the CSV file loaded by GET /api/ingest/mcc.
	MCCPath string
	// Registry receives the server's Prometheus metrics and backs GET /metrics.
	// If nil, a fresh registry is created.
	Registry *prometheus.Registry
}

// chatter is the interface handleChat calls to stream a response.
// *chat.Service satisfies it; tests inject a fake.
type chatter interface {
	// Respond streams the reply for req to w, chunk by chunk.
	Respond(ctx context.Context, req *chat.Request, w io.Writer) error
	// Augmented reports whether retrieval augmentation is active.
	Augmented() bool
}

// documentIngestor is the interface behind GET /api/ingest/documents.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type documentIngestor interface {
	IngestDirectory(ctx context.Context, dir string, progress func(msg string)) (*ingestion.Summary, error)
}

// merchantLoader is the interface behind GET /api/ingest/mcc.
// *ingestion.MerchantLoader satisfies it; tests inject a fake.
type merchantLoader interface {
	LoadCSV(ctx context.Context, path string) (int, error)
}

// merchantSearcher is the interface behind GET /api/mcc.
// docstore.MerchantStore implementations satisfy it; tests inject a fake.
type merchantSearcher interface {
	Search(ctx context.Context, query string) ([]docstore.MerchantRecord, error)
}

// Deps bundles the service dependencies the server exposes over HTTP.
// Ingestor, MCCLoader, and Merchants are optional: their endpoints return
// 503 with an explanatory message when the dependency is not configured.
type Deps struct {
	// Chat runs chat exchanges. Required.
	Chat chatter
	// Ingestor rebuilds the vector store from the documents directory.
	Ingestor documentIngestor
	// MCCLoader reloads the merchant category table from CSV.
	MCCLoader merchantLoader
	// Merchants answers merchant category lookups.
	Merchants merchantSearcher
}

// Server is the HTTP server that fronts the chat, ingestion, and merchant
// lookup services.
type Server struct {
	// deps holds the wired service dependencies.
	deps Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Messages is the conversation so far, oldest first. The last entry must
	// be the user's current message.
	Messages []docstore.ChatMessage `json:"messages"`
	// Debug marks this exchange as test traffic: any non-empty value
	// suppresses conversation logging and substitutes a fixed location when
	// none resolves from headers.
	Debug string `json:"debug,omitempty"`
}

// geoResponse is the JSON body for GET /api/geo.
type geoResponse struct {
	// Location is the location resolved from the request headers.
	Location geo.Context `json:"location"`
}

// errorResponse is the JSON body for error replies.
type errorResponse struct {
	// Message describes what went wrong.
	Message string `json:"message"`
}

// mccReloadResponse is the JSON body for GET /api/ingest/mcc.
type mccReloadResponse struct {
	// Message is a human-readable outcome.
	Message string `json:"message"`
	// Count is the number of merchant records now stored.
	Count int `json:"count"`
}

// mccSearchResponse is the JSON body for GET /api/mcc.
type mccSearchResponse struct {
	// Results holds the matching merchant records.
	Results []docstore.MerchantRecord `json:"results"`
}
