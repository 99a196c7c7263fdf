package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wwmc-ai/wwmc-go/internal/docstore"
)

// MerchantLoader reads merchant category code records from a CSV file and
// replaces the merchant store contents with them.
type MerchantLoader struct {
	store docstore.MerchantStore
}

// NewMerchantLoader constructs a MerchantLoader over the given store.
func NewMerchantLoader(store docstore.MerchantStore) (*MerchantLoader, error) {
	if store == nil {
		return nil, fmt.Errorf("ingestion: merchant store must not be nil")
	}
	return &MerchantLoader{store: store}, nil
}

// LoadCSV parses the CSV file at path and replaces the merchant store
// contents with its rows. The first row must be a header naming at least the
// id, name, mcc, and type columns (case-insensitive, any order). The load is
// all-or-nothing: a malformed row aborts before the store is touched.
//
// Returns the number of records stored.
func (l *MerchantLoader) LoadCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("ingestion: open %s: %w", path, err)
	}
	defer f.Close()

	recs, err := parseMerchantCSV(f)
	if err != nil {
		return 0, fmt.Errorf("ingestion: parse %s: %w", path, err)
	}

	if err := l.store.ReplaceAll(ctx, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// parseMerchantCSV reads and validates merchant records from CSV data.
func parseMerchantCSV(r io.Reader) ([]docstore.MerchantRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	// Map column name → index so column order in the source file is free.
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"id", "name", "mcc", "type"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var recs []docstore.MerchantRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := docstore.MerchantRecord{
			ID:   strings.TrimSpace(row[idx["id"]]),
			Name: strings.TrimSpace(row[idx["name"]]),
			MCC:  strings.TrimSpace(row[idx["mcc"]]),
			Type: strings.TrimSpace(row[idx["type"]]),
		}
		if rec.MCC == "" || rec.Name == "" {
			return nil, fmt.Errorf("line %d: name and mcc must not be empty", line)
		}
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return recs, nil
}
