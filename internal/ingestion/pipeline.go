// Package ingestion implements the reference-document ingestion pipeline.
// It walks a directory of PDF guides, extracts and chunks their text, embeds
// each chunk, and replaces the vector store contents with the results. It is
// invoked by the `wwmc ingest` CLI command and the ingestion HTTP endpoints.
package ingestion

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/wwmc-ai/wwmc-go/internal/pdftext"
	"github.com/wwmc-ai/wwmc-go/internal/rag"
)

// Extractor converts a document file into plain text. The production
// implementation reads PDFs; tests substitute a fake.
type Extractor func(path string) (string, error)

// Status values for per-file ingestion results.
const (
	// StatusSuccess marks a file whose chunks were all embedded and stored.
	StatusSuccess = "success"
	// StatusError marks a file that failed at any stage; Message carries the cause.
	StatusError = "error"
)

// FileResult reports the outcome of ingesting a single document file.
type FileResult struct {
	// File is the base name of the source document.
	File string `json:"file"`
	// Status is StatusSuccess or StatusError.
	Status string `json:"status"`
	// Chunks is the number of chunks stored (success only).
	Chunks int `json:"chunks,omitempty"`
	// Message carries the failure cause (error only).
	Message string `json:"message,omitempty"`
}

// Summary reports the outcome of a full ingestion run.
type Summary struct {
	// Message is a human-readable overall outcome.
	Message string `json:"message"`
	// Results holds one entry per document file, in processing order.
	Results []FileResult `json:"details,omitempty"`
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive
	// chunks. Defaults to 100 if zero or out of range.
	ChunkOverlap int

	// Extract converts a document file into plain text.
	// Defaults to the PDF extractor.
	Extract Extractor
}

// Pipeline orchestrates the walk → extract → chunk → embed → upsert flow for
// a directory of reference documents.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap <= 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 100
		if cfg.ChunkOverlap >= cfg.ChunkSize {
			cfg.ChunkOverlap = cfg.ChunkSize / 10
		}
	}
	if cfg.Extract == nil {
		cfg.Extract = pdftext.Extract
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}, nil
}

// IngestDirectory rebuilds the vector store from every PDF under dir
// (searched recursively). The existing store contents are deleted first, so
// each run replaces the index wholesale — re-running after adding or editing
// documents never leaves stale chunks behind.
//
// Files are processed independently: one broken PDF is reported in its
// FileResult without aborting the rest. The returned error covers run-level
// failures only (unreadable directory, store wipe failure).
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string, progress func(msg string)) (*Summary, error) {
	if progress == nil {
		progress = func(string) {}
	}

	files, err := findPDFs(dir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return &Summary{Message: fmt.Sprintf("no PDF documents found in %s", dir)}, nil
	}

	progress(fmt.Sprintf("clearing vector store before ingesting %d documents", len(files)))
	if err := p.store.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("ingestion: clear store: %w", err)
	}

	summary := &Summary{}
	succeeded := 0
	for _, path := range files {
		result := p.ingestFile(ctx, path, progress)
		if result.Status == StatusSuccess {
			succeeded++
		}
		summary.Results = append(summary.Results, result)
	}

	summary.Message = fmt.Sprintf("ingested %d of %d documents", succeeded, len(files))
	return summary, nil
}

// ingestFile extracts, chunks, embeds, and stores a single document.
func (p *Pipeline) ingestFile(ctx context.Context, path string, progress func(msg string)) FileResult {
	name := filepath.Base(path)

	text, err := p.cfg.Extract(path)
	if err != nil {
		return FileResult{File: name, Status: StatusError, Message: fmt.Sprintf("extract: %v", err)}
	}

	chunks := p.chunk(text)
	if len(chunks) == 0 {
		return FileResult{File: name, Status: StatusError, Message: "no text content"}
	}
	progress(fmt.Sprintf("chunked %s into %d chunks", name, len(chunks)))

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return FileResult{File: name, Status: StatusError, Message: fmt.Sprintf("embed: %v", err)}
	}

	docs := make([]rag.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, rag.Document{
			ID:      chunkID(name, i),
			Content: chunk,
			Source:  name,
			Metadata: map[string]string{
				"chunk_index": fmt.Sprintf("%d", i),
			},
		})
	}

	if err := p.store.Upsert(ctx, docs, embeddings); err != nil {
		return FileResult{File: name, Status: StatusError, Message: fmt.Sprintf("store: %v", err)}
	}

	progress(fmt.Sprintf("ingested %d chunks from %s", len(chunks), name))
	return FileResult{File: name, Status: StatusSuccess, Chunks: len(chunks)}
}

// findPDFs returns every .pdf file under dir, recursively, in walk order.
func findPDFs(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// chunk splits text into overlapping chunks of cfg.ChunkSize characters.
// It windows over runes, not bytes: extracted PDF text is full of accented
// and non-Latin characters, and a byte boundary could split one in half.
func (p *Pipeline) chunk(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	size := p.cfg.ChunkSize
	overlap := p.cfg.ChunkOverlap

	for start := 0; start < len(runes); start += size - overlap {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// chunkID generates a deterministic UUID-formatted ID for a document chunk
// from its source file name and chunk index, so re-ingesting the same file
// overwrites rather than duplicates its points.
func chunkID(source string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, index)))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
