package prompt

import (
	"strings"
	"testing"

	"github.com/wwmc-ai/wwmc-go/internal/geo"
	"github.com/wwmc-ai/wwmc-go/internal/rag"
)

func TestSystem_EmbedsCoordinatesAndCountry(t *testing.T) {
	t.Parallel()

	s := System(geo.Context{Latitude: "1.3521", Longitude: "103.8198", Country: "SG"})

	if !strings.Contains(s, "latitude 1.3521") {
		t.Errorf("latitude missing from prompt:\n%s", s)
	}
	if !strings.Contains(s, "longitude 103.8198") {
		t.Errorf("longitude missing from prompt:\n%s", s)
	}
	if !strings.Contains(s, "country SG") {
		t.Errorf("country missing from prompt:\n%s", s)
	}
}

func TestSystem_UnresolvedContextUsesZeroPlaceholder(t *testing.T) {
	t.Parallel()

	s := System(geo.Context{Latitude: "0.0", Longitude: "0.0"})

	if !strings.Contains(s, "latitude 0.0") || !strings.Contains(s, "longitude 0.0") {
		t.Errorf("expected literal 0.0 placeholders, got:\n%s", s)
	}
}

func TestSystem_DefaultRadiusRule(t *testing.T) {
	t.Parallel()

	s := System(geo.DebugFallback())
	if !strings.Contains(s, "default radius of 2 kilometers") {
		t.Errorf("default radius rule missing:\n%s", s)
	}
}

func TestSystem_Deterministic(t *testing.T) {
	t.Parallel()

	loc := geo.DebugFallback()
	if System(loc) != System(loc) {
		t.Errorf("System must be a pure function of its input")
	}
}

func TestWithFragments_Empty_ReturnsUnchanged(t *testing.T) {
	t.Parallel()

	base := System(geo.DebugFallback())
	if got := WithFragments(base, nil); got != base {
		t.Errorf("empty fragment list must not modify the instruction")
	}
}

func TestWithFragments_AppendsContentAndSource(t *testing.T) {
	t.Parallel()

	base := "base instruction"
	got := WithFragments(base, []rag.Document{
		{Content: "MCC 5814 covers fast food restaurants.", Source: "mcc-guide.pdf"},
		{Content: "MCC 5812 covers sit-down restaurants."},
	})

	if !strings.HasPrefix(got, base) {
		t.Errorf("instruction prefix lost:\n%s", got)
	}
	for _, want := range []string{"MCC 5814", "MCC 5812", "mcc-guide.pdf", "Excerpt 1", "Excerpt 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}
