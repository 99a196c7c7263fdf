package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wwmc-ai/wwmc-go/internal/docstore"
)

// fakeMerchantStore keeps the latest ReplaceAll batch in memory.
type fakeMerchantStore struct {
	recs     []docstore.MerchantRecord
	replaces int
}

func (f *fakeMerchantStore) ReplaceAll(ctx context.Context, recs []docstore.MerchantRecord) error {
	f.recs = recs
	f.replaces++
	return nil
}

func (f *fakeMerchantStore) Search(ctx context.Context, query string) ([]docstore.MerchantRecord, error) {
	return f.recs, nil
}

func (f *fakeMerchantStore) Close(ctx context.Context) error { return nil }

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcc.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestMerchantLoader_LoadCSV(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, strings.Join([]string{
		"id,name,mcc,type",
		"1,Eating Places and Restaurants,5812,dining",
		"2,Taxicabs and Limousines,4121,transport",
		"3,Grocery Stores,5411,groceries",
	}, "\n"))

	store := &fakeMerchantStore{}
	loader, err := NewMerchantLoader(store)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	n, err := loader.LoadCSV(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 3 {
		t.Errorf("loaded %d records, want 3", n)
	}
	if len(store.recs) != 3 {
		t.Fatalf("stored %d records, want 3", len(store.recs))
	}
	if store.recs[0].MCC != "5812" || store.recs[0].Type != "dining" {
		t.Errorf("first record = %+v", store.recs[0])
	}
}

func TestMerchantLoader_ReloadReplaces(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, strings.Join([]string{
		"id,name,mcc,type",
		"1,Eating Places and Restaurants,5812,dining",
		"2,Taxicabs and Limousines,4121,transport",
	}, "\n"))

	store := &fakeMerchantStore{}
	loader, err := NewMerchantLoader(store)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := loader.LoadCSV(ctx, path); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}
	if len(store.recs) != 2 {
		t.Errorf("stored %d records after reload, want 2", len(store.recs))
	}
	if store.replaces != 2 {
		t.Errorf("replaces = %d, want 2", store.replaces)
	}
}

func TestMerchantLoader_ColumnOrderIndependent(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, strings.Join([]string{
		"mcc,type,id,name",
		"5812,dining,1,Eating Places and Restaurants",
	}, "\n"))

	store := &fakeMerchantStore{}
	loader, _ := NewMerchantLoader(store)

	if _, err := loader.LoadCSV(context.Background(), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.recs[0].Name != "Eating Places and Restaurants" || store.recs[0].MCC != "5812" {
		t.Errorf("record = %+v", store.recs[0])
	}
}

func TestMerchantLoader_RejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		csv  string
	}{
		{"missing column", "id,name,mcc\n1,Restaurants,5812"},
		{"empty mcc", "id,name,mcc,type\n1,Restaurants,,dining"},
		{"header only", "id,name,mcc,type"},
		{"ragged row", "id,name,mcc,type\n1,Restaurants,5812"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeCSV(t, tc.csv)
			store := &fakeMerchantStore{}
			loader, _ := NewMerchantLoader(store)
			if _, err := loader.LoadCSV(context.Background(), path); err == nil {
				t.Errorf("want error")
			}
			if store.replaces != 0 {
				t.Errorf("store must not be touched on a failed load")
			}
		})
	}
}
