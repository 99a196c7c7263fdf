package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/wwmc-ai/wwmc-go/internal/geo"
)

func openTestLog(t *testing.T) *SQLiteLog {
	t.Helper()
	l, err := OpenSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close(context.Background()) })
	return l
}

func TestSQLiteLog_InsertAndRecent(t *testing.T) {
	t.Parallel()

	l := openTestLog(t)
	ctx := context.Background()

	rec := LogRecord{
		Messages: []ChatMessage{
			{Role: "user", Content: "any good hawker centres nearby?"},
		},
		Response: "Try Maxwell Food Centre.",
		Location: geo.Context{Latitude: "1.3521", Longitude: "103.8198", Country: "SG", City: "Singapore"},
	}
	if err := l.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 record, got %d", len(got))
	}
	if got[0].Response != rec.Response {
		t.Errorf("response = %q, want %q", got[0].Response, rec.Response)
	}
	if len(got[0].Messages) != 1 || got[0].Messages[0].Content != rec.Messages[0].Content {
		t.Errorf("messages round-trip mismatch: %+v", got[0].Messages)
	}
	if got[0].Location.City != "Singapore" {
		t.Errorf("location round-trip mismatch: %+v", got[0].Location)
	}
	if got[0].CreatedAt.IsZero() {
		t.Errorf("created_at not set")
	}
}

func TestSQLiteLog_RecentNewestFirst(t *testing.T) {
	t.Parallel()

	l := openTestLog(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, resp := range []string{"first", "second", "third"} {
		rec := LogRecord{
			Messages:  []ChatMessage{{Role: "user", Content: "q"}},
			Response:  resp,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := l.Insert(ctx, rec); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	got, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 records, got %d", len(got))
	}
	if got[0].Response != "third" || got[1].Response != "second" {
		t.Errorf("order = [%s, %s], want [third, second]", got[0].Response, got[1].Response)
	}
}

func TestSQLiteLog_RecentEmpty(t *testing.T) {
	t.Parallel()

	l := openTestLog(t)

	got, err := l.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want no records, got %d", len(got))
	}
}

func TestSplitNamespace(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ns, fallback string
		wantDB       string
		wantColl     string
		wantErr      bool
	}{
		{ns: "wwmc.chat_logs", wantDB: "wwmc", wantColl: "chat_logs"},
		{ns: "chat_logs", fallback: "wwmc", wantDB: "wwmc", wantColl: "chat_logs"},
		{ns: "chat_logs", wantErr: true},
		{ns: "", fallback: "wwmc", wantErr: true},
		{ns: ".chat_logs", wantErr: true},
		{ns: "wwmc.", wantErr: true},
	}
	for _, tc := range cases {
		db, coll, err := splitNamespace(tc.ns, tc.fallback)
		if tc.wantErr {
			if err == nil {
				t.Errorf("splitNamespace(%q, %q): want error", tc.ns, tc.fallback)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitNamespace(%q, %q): %v", tc.ns, tc.fallback, err)
			continue
		}
		if db != tc.wantDB || coll != tc.wantColl {
			t.Errorf("splitNamespace(%q, %q) = (%q, %q), want (%q, %q)",
				tc.ns, tc.fallback, db, coll, tc.wantDB, tc.wantColl)
		}
	}
}
