// Package geo resolves the approximate location of an inbound HTTP request
// from edge-proxy geolocation headers. The service runs behind an edge that
// annotates requests with X-Vercel-IP-* headers; nothing here performs a
// network lookup of its own.
//
// Coordinates are carried as strings because they are only ever interpolated
// into prompt text and JSON responses — parsing them to float64 and
// re-formatting would change the edge's own representation for no benefit.
package geo

import "net/http"

// Header names set by the edge proxy on every forwarded request.
const (
	headerLatitude  = "X-Vercel-IP-Latitude"
	headerLongitude = "X-Vercel-IP-Longitude"
	headerCountry   = "X-Vercel-IP-Country"
	headerCity      = "X-Vercel-IP-City"
)

// unresolvedCoordinate is the placeholder embedded when the edge supplied no
// coordinate. The prompt builder relies on this literal never being empty.
const unresolvedCoordinate = "0.0"

// Context is the per-request location context. It is derived once per
// request, interpolated into the system prompt, and never persisted.
type Context struct {
	// Latitude is the approximate latitude as reported by the edge ("1.3521").
	Latitude string `json:"latitude"`
	// Longitude is the approximate longitude as reported by the edge.
	Longitude string `json:"longitude"`
	// Country is the ISO 3166-1 alpha-2 country code ("SG").
	Country string `json:"country"`
	// City is the nearest city name, if the edge resolved one.
	City string `json:"city,omitempty"`
}

// FromRequest derives a Context from the request's edge geolocation headers.
// Missing coordinate headers fall back to the "0.0" placeholder so callers
// always get stable, non-empty values.
func FromRequest(r *http.Request) Context {
	c := Context{
		Latitude:  r.Header.Get(headerLatitude),
		Longitude: r.Header.Get(headerLongitude),
		Country:   r.Header.Get(headerCountry),
		City:      r.Header.Get(headerCity),
	}
	if c.Latitude == "" {
		c.Latitude = unresolvedCoordinate
	}
	if c.Longitude == "" {
		c.Longitude = unresolvedCoordinate
	}
	return c
}

// Resolved reports whether the edge supplied any real location data.
// A context built from a request with no geolocation headers is unresolved.
func (c Context) Resolved() bool {
	return c.Country != "" ||
		(c.Latitude != unresolvedCoordinate && c.Latitude != "") ||
		(c.Longitude != unresolvedCoordinate && c.Longitude != "")
}

// DebugFallback returns the fixed location substituted when a request
// carries a debug marker, so development traffic produces deterministic
// prompts regardless of where it originates.
func DebugFallback() Context {
	return Context{
		Latitude:  "1.3521",
		Longitude: "103.8198",
		Country:   "SG",
		City:      "Singapore",
	}
}
