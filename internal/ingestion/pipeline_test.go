package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/wwmc-ai/wwmc-go/internal/rag"
)

// fakeEmbedder returns a fixed-size vector per input text.
type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("embedder down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

// fakeStore records upserts and wipes in memory.
type fakeStore struct {
	docs       map[string]rag.Document
	deleteAlls int
	failUpsert bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]rag.Document)}
}

func (f *fakeStore) Upsert(ctx context.Context, docs []rag.Document, embeddings [][]float32) error {
	if f.failUpsert {
		return fmt.Errorf("store down")
	}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return nil
}

func (f *fakeStore) Search(ctx context.Context, queryEmbedding []float32, topK int, withVectors bool) ([]rag.Document, error) {
	return nil, nil
}

func (f *fakeStore) DeleteAll(ctx context.Context) error {
	f.deleteAlls++
	f.docs = make(map[string]rag.Document)
	return nil
}

func (f *fakeStore) Close() error { return nil }

// writeDocs creates a temp directory holding placeholder .pdf files whose
// "text" comes from the fake extractor, keyed by base name.
func writeDocs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func textByName(texts map[string]string) Extractor {
	return func(path string) (string, error) {
		text, ok := texts[filepath.Base(path)]
		if !ok {
			return "", fmt.Errorf("unreadable document")
		}
		return text, nil
	}
}

func TestPipeline_IngestDirectory(t *testing.T) {
	t.Parallel()

	dir := writeDocs(t, "guide.pdf", "codes.pdf", "notes.txt")
	store := newFakeStore()
	p, err := NewPipeline(&fakeEmbedder{}, store, &Config{
		Extract: textByName(map[string]string{
			"guide.pdf": strings.Repeat("a", 2500),
			"codes.pdf": "short",
		}),
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	summary, err := p.IngestDirectory(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if store.deleteAlls != 1 {
		t.Errorf("deleteAlls = %d, want 1", store.deleteAlls)
	}
	// .txt files are skipped entirely.
	if len(summary.Results) != 2 {
		t.Fatalf("want 2 file results, got %d: %+v", len(summary.Results), summary.Results)
	}
	for _, r := range summary.Results {
		if r.Status != StatusSuccess {
			t.Errorf("%s: status %s (%s), want success", r.File, r.Status, r.Message)
		}
	}
	// 2500 chars at size 1000 / overlap 100: starts 0, 900, 1800 → 3 chunks.
	// Plus 1 chunk for the short file.
	if len(store.docs) != 4 {
		t.Errorf("stored %d chunks, want 4", len(store.docs))
	}
}

func TestPipeline_ChunkOverlapBoundaries(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(&fakeEmbedder{}, newFakeStore(), &Config{ChunkSize: 10, ChunkOverlap: 3})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	chunks := p.chunk("abcdefghijklmnop") // 16 chars, stride 7
	want := []string{"abcdefghij", "hijklmnop"}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %q, want %q", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

// TestPipeline_ChunkBoundariesAreRuneSafe verifies the window never lands
// inside a multi-byte character: every chunk must round-trip as valid UTF-8
// and boundaries count characters, not bytes.
func TestPipeline_ChunkBoundariesAreRuneSafe(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(&fakeEmbedder{}, newFakeStore(), &Config{ChunkSize: 4, ChunkOverlap: 1})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	chunks := p.chunk("日本語のテキストです") // 10 runes, 30 bytes, stride 3
	want := []string{"日本語の", "のテキス", "ストです"}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %q, want %q", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
		if !utf8.ValidString(chunks[i]) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, chunks[i])
		}
	}
}

func TestPipeline_BrokenFileDoesNotAbortRun(t *testing.T) {
	t.Parallel()

	dir := writeDocs(t, "good.pdf", "broken.pdf")
	store := newFakeStore()
	p, err := NewPipeline(&fakeEmbedder{}, store, &Config{
		Extract: textByName(map[string]string{"good.pdf": "usable text"}),
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	summary, err := p.IngestDirectory(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	statuses := make(map[string]string)
	for _, r := range summary.Results {
		statuses[r.File] = r.Status
	}
	if statuses["good.pdf"] != StatusSuccess {
		t.Errorf("good.pdf status = %s, want success", statuses["good.pdf"])
	}
	if statuses["broken.pdf"] != StatusError {
		t.Errorf("broken.pdf status = %s, want error", statuses["broken.pdf"])
	}
	if len(store.docs) == 0 {
		t.Errorf("good file chunks should be stored despite broken sibling")
	}
}

func TestPipeline_EmptyDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := newFakeStore()
	p, err := NewPipeline(&fakeEmbedder{}, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	summary, err := p.IngestDirectory(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !strings.Contains(summary.Message, "no PDF documents") {
		t.Errorf("message = %q, want a no-documents notice", summary.Message)
	}
	if store.deleteAlls != 0 {
		t.Errorf("store must not be wiped when there is nothing to ingest")
	}
}

func TestPipeline_ReingestIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := writeDocs(t, "guide.pdf")
	store := newFakeStore()
	p, err := NewPipeline(&fakeEmbedder{}, store, &Config{
		Extract: textByName(map[string]string{"guide.pdf": strings.Repeat("b", 1500)}),
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	ctx := context.Background()
	if _, err := p.IngestDirectory(ctx, dir, nil); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	first := len(store.docs)

	if _, err := p.IngestDirectory(ctx, dir, nil); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if len(store.docs) != first {
		t.Errorf("chunk count changed across identical runs: %d → %d", first, len(store.docs))
	}
}

func TestChunkID_DeterministicUUIDShape(t *testing.T) {
	t.Parallel()

	a := chunkID("guide.pdf", 0)
	b := chunkID("guide.pdf", 0)
	c := chunkID("guide.pdf", 1)

	if a != b {
		t.Errorf("same input produced different IDs: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("different chunk index produced identical ID")
	}

	parts := strings.Split(a, "-")
	if len(parts) != 5 {
		t.Fatalf("ID %q is not UUID-shaped", a)
	}
	for i, wantLen := range []int{8, 4, 4, 4, 12} {
		if len(parts[i]) != wantLen {
			t.Errorf("ID %q segment %d has length %d, want %d", a, i, len(parts[i]), wantLen)
		}
	}
}
