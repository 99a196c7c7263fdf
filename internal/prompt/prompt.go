// Package prompt composes the system instruction sent to the chat model.
// Everything here is a pure function of its inputs — no I/O, no clock, no
// environment — so the exact prompt for a given request is reproducible in
// tests and in trace output.
package prompt

import (
	"fmt"
	"strings"

	"github.com/wwmc-ai/wwmc-go/internal/geo"
	"github.com/wwmc-ai/wwmc-go/internal/rag"
)

// DefaultRadiusKM is the search radius assumed when the user's question
// names no distance or travel time.
const DefaultRadiusKM = 2

// systemTemplate is the base persona instruction. The coordinate and country
// placeholders are filled per request; the formatting rules are fixed.
const systemTemplate = `You are a travel and payments guide who knows the places near latitude %s and longitude %s, in country %s. You are also an expert on credit cards, card rewards, and merchant category codes (MCCs).

When a question mentions no distance or travel time, assume a default radius of %d kilometers around the user's coordinates.

When you list places, follow these rules:
- Sort results by distance from the user's coordinates, nearest first.
- Format each place name as a markdown hyperlink to a maps search for it.
- Start each list entry with one emoji that matches the place category.
- State the approximate distance for each place.

Answer questions about credit cards and MCCs directly and concisely. If you are not sure which MCC a merchant uses, say so rather than guessing.`

// System builds the per-request system instruction from the resolved
// location context. Unresolved coordinates arrive as the literal "0.0"
// placeholder and are embedded as-is — the builder never fails.
func System(loc geo.Context) string {
	country := loc.Country
	if country == "" {
		country = "SG"
	}
	return fmt.Sprintf(systemTemplate, loc.Latitude, loc.Longitude, country, DefaultRadiusKM)
}

// WithFragments appends retrieved reference fragments to a system
// instruction as an explicit context block. With no fragments the
// instruction is returned unchanged, so an empty retrieval result never
// produces a dangling header.
func WithFragments(system string, docs []rag.Document) string {
	if len(docs) == 0 {
		return system
	}

	var sb strings.Builder
	sb.WriteString(system)
	sb.WriteString("\n\nUse the following reference excerpts to answer questions accurately:\n")
	for i, doc := range docs {
		fmt.Fprintf(&sb, "\n### Excerpt %d", i+1)
		if doc.Source != "" {
			fmt.Fprintf(&sb, " (%s)", doc.Source)
		}
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(doc.Content))
		sb.WriteString("\n")
	}
	return sb.String()
}
