// Package format enumerates the wire serialization formats understood by the
// RPC endpoint and resolves HTTP content types to one of them.
package format

import (
	"fmt"
	"strings"
)

// Format identifies one serialization format. The set is fixed; there is no
// runtime registration.
type Format int

const (
	// Binary is the fixed-width big-endian format. Fastest to parse.
	Binary Format = iota
	// Compact is the CBOR-based format. Smallest on the wire.
	Compact
	// JSON is the compact single-line JSON format.
	JSON
	// Text is the indented, named-field JSON variant. Meant for humans and
	// debugging, not for production traffic.
	Text
)

// MediaTypeGeneric is the format-agnostic media type. The concrete format is
// carried in its "protocol" parameter, or falls back to the serving default.
const MediaTypeGeneric = "application/x-rpc"

// protocolParam is the media type parameter naming the format.
const protocolParam = "protocol"

var names = [...]string{
	Binary:  "BINARY",
	Compact: "COMPACT",
	JSON:    "JSON",
	Text:    "TEXT",
}

var mediaTypes = [...]string{
	Binary:  "application/vnd.armeria.binary",
	Compact: "application/vnd.armeria.compact",
	JSON:    "application/vnd.armeria.json",
	Text:    "application/vnd.armeria.text",
}

// All returns every supported format in declaration order.
func All() []Format {
	return []Format{Binary, Compact, JSON, Text}
}

// Valid reports whether f is one of the declared formats.
func (f Format) Valid() bool {
	return f >= Binary && f <= Text
}

func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return names[f]
}

// MediaType returns the vendor media type identifying f on the wire.
// Responses always carry this exact content type.
func (f Format) MediaType() string {
	if !f.Valid() {
		return ""
	}
	return mediaTypes[f]
}

// Parse maps a format name to its Format. Names are matched case-insensitively
// so "binary" and "BINARY" are the same thing.
func Parse(name string) (Format, bool) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for f, n := range names {
		if n == want {
			return Format(f), true
		}
	}
	return 0, false
}

// byMediaType resolves a vendor media type (without parameters) to its format.
func byMediaType(mediaType string) (Format, bool) {
	for f, mt := range mediaTypes {
		if mt == mediaType {
			return Format(f), true
		}
	}
	return 0, false
}
