// Package transport carries encoded call envelopes over HTTP POST.
//
// One call is one request: POST the encoded call with the format's media
// type, read the encoded result back from a 200. Any other status means
// the call never reached a handler, and the plain-text body says why.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/strogo/armeria/format"
)

// maxResponseBytes caps how much of a response body the transport reads,
// mirroring the serving side's request cap.
const maxResponseBytes = 4 << 20

// StatusError is a non-200 answer. The call produced no response envelope,
// only an HTTP failure with a plain-text explanation.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transport: server answered %d", e.Code)
	}
	return fmt.Sprintf("transport: server answered %d: %s", e.Code, e.Body)
}

// HTTP posts envelopes to a single URL. A nil Client falls back to the
// shared pooled DefaultClient; a custom one can bring its own timeouts or
// TLS setup.
type HTTP struct {
	URL    string
	Client *http.Client
}

// NewHTTP returns a transport for the given POST target.
func NewHTTP(url string) *HTTP { return &HTTP{URL: url} }

// RoundTrip posts one encoded call and returns the encoded result.
func (t *HTTP) RoundTrip(ctx context.Context, f format.Format, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", f.MediaType())

	client := t.Client
	if client == nil {
		client = DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
