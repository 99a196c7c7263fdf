package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/wwmc-ai/wwmc-go/internal/chat"
	"github.com/wwmc-ai/wwmc-go/internal/docstore"
	"github.com/wwmc-ai/wwmc-go/internal/geo"
	"github.com/wwmc-ai/wwmc-go/internal/logging"
)

// handleChat handles POST /api/chat. The reply streams back as chunked plain
// text, flushed per model chunk so clients render tokens as they arrive.
//
// Error shape depends on how far the response got: before the first byte the
// client receives a JSON error with a proper status code; once streaming has
// begun the only option is to stop and log, since the 200 and partial body
// are already on the wire.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "messages are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	cw := &countingFlushWriter{w: w, flusher: flusher}

	s.metrics.chatActiveStreams.Inc()
	defer s.metrics.chatActiveStreams.Dec()
	start := time.Now()

	err := s.deps.Chat.Respond(r.Context(), &chat.Request{
		Messages: req.Messages,
		Location: geo.FromRequest(r),
		Debug:    s.cfg.Debug || req.Debug != "",
	}, cw)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if cw.written == 0 {
			// Nothing sent yet: the client still gets a clean JSON error.
			// Malformed input is the caller's fault and gets a 400; anything
			// else is an upstream failure reported opaquely as a 500.
			if errors.Is(err, chat.ErrInvalidRequest) {
				log.Warn("chat request rejected", slog.Any("error", err))
				writeJSONError(w, http.StatusBadRequest, "invalid messages")
			} else {
				log.Error("chat failed before first byte", slog.Any("error", err))
				writeJSONError(w, http.StatusInternalServerError, "error processing request")
			}
		} else {
			// Mid-stream failure: the response is already underway.
			log.Error("chat stream aborted",
				slog.Int64("bytes_sent", cw.written),
				slog.Any("error", err),
			)
		}
	}

	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// countingFlushWriter writes plain-text chunks, setting streaming headers on
// the first write and flushing after every chunk. The byte count lets the
// chat handler tell "failed clean" from "failed mid-stream".
type countingFlushWriter struct {
	// w is the underlying response writer.
	w http.ResponseWriter
	// flusher pushes buffered data to the client after each write.
	flusher http.Flusher
	// written is the total number of body bytes sent.
	written int64
}

// Write sends p to the client and flushes immediately.
func (c *countingFlushWriter) Write(p []byte) (int, error) {
	if c.written == 0 {
		c.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		c.w.Header().Set("Cache-Control", "no-cache")
	}
	n, err := c.w.Write(p)
	c.written += int64(n)
	if err != nil {
		return n, err
	}
	c.flusher.Flush()
	return n, nil
}

// handleGeo handles GET /api/geo. It echoes the location resolved from the
// request headers, or 404 when no location information was present.
func (s *Server) handleGeo(w http.ResponseWriter, r *http.Request) {
	loc := geo.FromRequest(r)
	if !loc.Resolved() {
		writeJSONError(w, http.StatusNotFound, "location could not be determined")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(geoResponse{Location: loc})
}

// handleIngestDocuments handles GET /api/ingest/documents. It rebuilds the
// vector store from the configured documents directory and reports the
// per-file outcomes.
func (s *Server) handleIngestDocuments(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.deps.Ingestor == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "document ingestion is not configured")
		return
	}

	summary, err := s.deps.Ingestor.IngestDirectory(r.Context(), s.cfg.DocumentsDir, func(msg string) {
		log.Info("ingest", slog.String("step", msg))
	})
	if err != nil {
		log.Error("document ingestion failed", slog.Any("error", err))
		writeJSONError(w, http.StatusInternalServerError, "error ingesting documents")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// handleIngestMCC handles GET /api/ingest/mcc. It reloads the merchant
// category table from the configured CSV file.
func (s *Server) handleIngestMCC(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.deps.MCCLoader == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "merchant code ingestion is not configured")
		return
	}

	count, err := s.deps.MCCLoader.LoadCSV(r.Context(), s.cfg.MCCPath)
	if err != nil {
		log.Error("merchant code ingestion failed", slog.Any("error", err))
		writeJSONError(w, http.StatusInternalServerError, "error ingesting merchant codes")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mccReloadResponse{
		Message: "merchant codes reloaded",
		Count:   count,
	})
}

// handleMCC handles GET /api/mcc. The optional q parameter filters records by
// name, code, or category type; without it the full table is returned.
func (s *Server) handleMCC(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.deps.Merchants == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "merchant lookup is not configured")
		return
	}

	recs, err := s.deps.Merchants.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		log.Error("merchant lookup failed", slog.Any("error", err))
		writeJSONError(w, http.StatusInternalServerError, "error looking up merchant codes")
		return
	}
	if recs == nil {
		recs = []docstore.MerchantRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mccSearchResponse{Results: recs})
}
