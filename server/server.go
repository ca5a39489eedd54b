// Package server bridges HTTP POST requests onto registered service
// implementations.
//
// Request processing pipeline:
//
//	ServeHTTP (one goroutine per request, courtesy of net/http)
//	  → negotiate the wire format from Content-Type
//	  → read the body, Codec.Decode into a Call
//	  → middleware chain → dispatch (resolve binding and method, bind args, invoke)
//	  → Codec.Encode the Result → write 200 with the format's media type
//
// Failures before dispatch surface as plain-text HTTP client errors and
// never produce a response envelope. Application failures (declared
// exceptions, but also handler errors and panics) travel as exceptions
// inside a normal 200 response, because the call itself was carried out.
// The serving table is frozen before the server exists, so request
// handling reads shared state without locks.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/strogo/armeria/codec"
	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/message"
	"github.com/strogo/armeria/middleware"
	"github.com/strogo/armeria/service"
)

// DefaultMaxBodyBytes caps request bodies unless Config says otherwise.
const DefaultMaxBodyBytes = 4 << 20

// Config carries the serving options.
type Config struct {
	// DefaultFormat is used when the request does not name a format.
	// The zero value is format.Binary.
	DefaultFormat format.Format

	// AllowedFormats restricts what this endpoint serves. Empty means all
	// formats. Requests resolving outside the set are rejected with a 415
	// even when the format itself is well-known.
	AllowedFormats []format.Format

	// MaxBodyBytes caps the request body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Middlewares wrap dispatch, first entry outermost.
	Middlewares []middleware.Middleware

	// Logger receives request diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// Server is the http.Handler serving a frozen registry. Mount it wherever
// the RPC endpoint should live; everything it serves hangs off one path.
type Server struct {
	registry *service.Registry
	neg      *format.Negotiator
	handler  middleware.Handler
	log      *zap.Logger
	maxBody  int64
}

// New builds a Server for the given frozen registry.
func New(reg *service.Registry, cfg Config) (*Server, error) {
	if reg == nil {
		return nil, errors.New("server: nil registry")
	}
	neg, err := format.NewNegotiator(cfg.DefaultFormat, cfg.AllowedFormats)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	s := &Server{
		registry: reg,
		neg:      neg,
		log:      logger,
		maxBody:  maxBody,
	}
	// Build the middleware chain once at startup, dispatch innermost.
	s.handler = middleware.Chain(cfg.Middlewares...)(s.dispatch)
	return s, nil
}

// Registry exposes the frozen serving table, mostly for introspection.
func (s *Server) Registry() *service.Registry { return s.registry }

// Negotiator exposes the format negotiation the server applies.
func (s *Server) Negotiator() *format.Negotiator { return s.neg }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	inv := newInvocation()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.reject(w, inv, http.StatusMethodNotAllowed,
			fmt.Sprintf("rpc: POST method required, received %s", r.Method))
		return
	}

	f, err := s.neg.Negotiate(r.Header.Get("Content-Type"))
	if err != nil {
		s.reject(w, inv, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	inv.negotiated(f)
	cdc := codec.For(f)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.reject(w, inv, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("rpc: request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.reject(w, inv, http.StatusBadRequest, "rpc: request body unreadable")
		return
	}

	var call message.Call
	if err := cdc.Decode(body, &call); err != nil {
		s.reject(w, inv, http.StatusBadRequest, err.Error())
		return
	}
	inv.decoded(&call)

	ctx := context.WithValue(r.Context(), invocationKey{}, inv)
	res, err := s.handler(ctx, &call)
	switch {
	case errors.Is(err, errAbandoned):
		// The caller is gone; there is nobody to write to.
		inv.fail(0, "abandoned")
		s.logOutcome(inv)
		return
	case err != nil:
		var de *DispatchError
		if errors.As(err, &de) {
			s.reject(w, inv, de.status(), de.Error())
			return
		}
		s.reject(w, inv, http.StatusInternalServerError, "rpc: internal dispatch failure")
		return
	case res == nil:
		s.reject(w, inv, http.StatusInternalServerError, "rpc: handler chain produced no result")
		return
	}

	payload, err := cdc.Encode(res)
	if err != nil {
		// The call itself was carried out; only its serialization failed.
		s.log.Error("response encoding failed", zap.String("method", call.Method),
			zap.Int32("seq", call.Seq), zap.Error(err))
		s.reject(w, inv, http.StatusInternalServerError, "rpc: response encoding failed")
		return
	}

	w.Header().Set("Content-Type", f.MediaType())
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
	inv.complete()
	s.logOutcome(inv)
}

// reject ends the request with a plain-text HTTP failure. Response
// envelopes are reserved for dispatched calls.
func (s *Server) reject(w http.ResponseWriter, inv *invocation, status int, msg string) {
	inv.fail(status, msg)
	writeError(w, status, msg)
	s.logOutcome(inv)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	fmt.Fprintln(w, msg)
}

func (s *Server) logOutcome(inv *invocation) {
	if ce := s.log.Check(zap.DebugLevel, "request handled"); ce != nil {
		ce.Write(inv.fields()...)
	}
}
