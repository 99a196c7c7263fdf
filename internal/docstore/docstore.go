// Package docstore provides persistence for conversation logs and merchant
// category records. The primary backend is MongoDB; a SQLite store is
// available as a local fallback for conversation logs so development
// environments do not require a Mongo deployment.
package docstore

import (
	"context"
	"time"

	"github.com/wwmc-ai/wwmc-go/internal/geo"
)

// ChatMessage is a single turn of a conversation as received from a client.
type ChatMessage struct {
	// Role is "user" or "assistant".
	Role string `bson:"role" json:"role"`
	// Content is the text of the message.
	Content string `bson:"content" json:"content"`
}

// LogRecord is one completed chat exchange: the full inbound message history,
// the assistant's reply, and the location context the reply was produced under.
type LogRecord struct {
	// Messages is the conversation history the client sent, newest last.
	Messages []ChatMessage `bson:"messages" json:"messages"`
	// Response is the assistant's full reply text.
	Response string `bson:"response" json:"response"`
	// Location is the geo context resolved for the request.
	Location geo.Context `bson:"location" json:"location"`
	// CreatedAt is when the exchange completed.
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// MerchantRecord is a single merchant category code entry loaded from the
// reference CSV.
type MerchantRecord struct {
	// ID is the row identifier from the source data.
	ID string `bson:"id" json:"id"`
	// Name is the human-readable merchant or category name.
	Name string `bson:"name" json:"name"`
	// MCC is the four-digit merchant category code.
	MCC string `bson:"mcc" json:"mcc"`
	// Type describes the category grouping (e.g. "dining", "transport").
	Type string `bson:"type" json:"type"`
}

// ConversationLog persists completed chat exchanges. Implementations must be
// safe for concurrent use.
type ConversationLog interface {
	// Insert persists a single log record.
	Insert(ctx context.Context, rec LogRecord) error
	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}

// MerchantStore persists and queries merchant category code records.
// Implementations must be safe for concurrent use.
type MerchantStore interface {
	// ReplaceAll atomically replaces the full merchant record set: it deletes
	// every existing record, then inserts the given batch.
	ReplaceAll(ctx context.Context, recs []MerchantRecord) error
	// Search returns records whose name, code, or type match the query.
	// An empty query returns all records.
	Search(ctx context.Context, query string) ([]MerchantRecord, error)
	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}
