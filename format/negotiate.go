package format

import (
	"fmt"
	"mime"
	"strings"
)

// NegotiationError reports a Content-Type that could not be resolved to a
// format this endpoint serves. The transport maps it to an HTTP 415.
type NegotiationError struct {
	ContentType string
	Reason      string
}

func (e *NegotiationError) Error() string {
	if e.ContentType == "" {
		return "format: " + e.Reason
	}
	return fmt.Sprintf("format: %s: %q", e.Reason, e.ContentType)
}

// Negotiator resolves request content types against a default format and an
// allow-list. It is immutable after construction and safe for concurrent use.
type Negotiator struct {
	def     Format
	allowed map[Format]bool
}

// NewNegotiator builds a Negotiator serving the given formats, with def as
// the fallback when the request does not name one. A nil or empty allowed
// slice means all formats are served. The default must itself be allowed.
func NewNegotiator(def Format, allowed []Format) (*Negotiator, error) {
	if !def.Valid() {
		return nil, fmt.Errorf("format: invalid default %v", def)
	}
	set := make(map[Format]bool, len(mediaTypes))
	if len(allowed) == 0 {
		for _, f := range All() {
			set[f] = true
		}
	} else {
		for _, f := range allowed {
			if !f.Valid() {
				return nil, fmt.Errorf("format: invalid allowed format %v", f)
			}
			set[f] = true
		}
	}
	if !set[def] {
		return nil, fmt.Errorf("format: default %v is not in the allowed set", def)
	}
	return &Negotiator{def: def, allowed: set}, nil
}

// Default returns the fallback format.
func (n *Negotiator) Default() Format { return n.def }

// Allowed reports whether f is served by this endpoint.
func (n *Negotiator) Allowed(f Format) bool { return n.allowed[f] }

// AllowedFormats returns the served formats in declaration order.
func (n *Negotiator) AllowedFormats() []Format {
	out := make([]Format, 0, len(n.allowed))
	for _, f := range All() {
		if n.allowed[f] {
			out = append(out, f)
		}
	}
	return out
}

// Negotiate resolves a Content-Type header value to the serving format.
//
// Resolution order:
//  1. a vendor media type names the format directly;
//  2. the generic media type takes the format from its "protocol" parameter;
//  3. an absent header, or the generic type without a "protocol" parameter,
//     falls back to the default.
//
// A vendor media type carrying a contradictory "protocol" parameter is
// rejected rather than resolved by guessing which side wins. The allow-list
// is checked last, so even a well-formed request for an unserved format
// fails here.
func (n *Negotiator) Negotiate(contentType string) (Format, error) {
	if strings.TrimSpace(contentType) == "" {
		return n.checkAllowed(n.def, contentType)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return 0, &NegotiationError{ContentType: contentType, Reason: "malformed content type"}
	}
	proto, hasProto := params[protocolParam]

	if f, ok := byMediaType(mediaType); ok {
		if hasProto {
			pf, ok := Parse(proto)
			if !ok || pf != f {
				return 0, &NegotiationError{ContentType: contentType, Reason: "protocol parameter contradicts media type"}
			}
		}
		return n.checkAllowed(f, contentType)
	}

	if mediaType == MediaTypeGeneric {
		if !hasProto {
			return n.checkAllowed(n.def, contentType)
		}
		f, ok := Parse(proto)
		if !ok {
			return 0, &NegotiationError{ContentType: contentType, Reason: "unknown protocol parameter"}
		}
		return n.checkAllowed(f, contentType)
	}

	return 0, &NegotiationError{ContentType: contentType, Reason: "unsupported media type"}
}

func (n *Negotiator) checkAllowed(f Format, contentType string) (Format, error) {
	if !n.allowed[f] {
		return 0, &NegotiationError{
			ContentType: contentType,
			Reason:      fmt.Sprintf("format %v is not served by this endpoint", f),
		}
	}
	return f, nil
}
