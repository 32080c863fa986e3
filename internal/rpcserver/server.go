// Package rpcserver is the downstream JSON-RPC 2.0 API: it serves
// listunspent, getaddressinfo and _probe over the store's query surface,
// translating addresses to scripts at the boundary so the indexing core
// never has to know about address formats.
package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/fuxingloh/oxtu/internal/log"
	"github.com/fuxingloh/oxtu/internal/metrics"
	"github.com/fuxingloh/oxtu/internal/rpcclient"
	"github.com/fuxingloh/oxtu/internal/store"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// readinessLagBlocks is how far behind the upstream tip this node may be
// and still report ready via _probe("readiness").
const readinessLagBlocks = 100

// AddressCodec converts between the user-facing address string and the raw
// script bytes the index stores UTXOs under. The indexing core never sees
// addresses, only scripts.
type AddressCodec interface {
	// ParseScript decodes an address string into script bytes.
	ParseScript(address string) ([]byte, error)
}

// Server is the downstream JSON-RPC 2.0 HTTP server.
type Server struct {
	store    *store.Store
	upstream *rpcclient.Client
	codec    AddressCodec
	maxCount int

	server *http.Server
	ln     net.Listener
}

// New creates a Server. maxCount is MAX_COUNT from configuration.
func New(s *store.Store, upstream *rpcclient.Client, codec AddressCodec, maxCount int) *Server {
	srv := &Server{store: s, upstream: upstream, codec: codec, maxCount: maxCount}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.loggingMiddleware(srv.handleRequest))
	mux.Handle("/metrics", metrics.Handler())

	srv.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv
}

// Start begins listening and serving in a background goroutine, returning
// once the listener is bound.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpcserver listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.RPCServer.Error().Err(err).Msg("rpc server error")
		}
	}()
	return nil
}

// Addr returns the bound listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return ""
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs every inbound call at Info with remote address,
// latency and status.
func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		log.RPCServer.Info().
			Str("remote", r.RemoteAddr).
			Dur("latency", time.Since(start)).
			Int("status", rec.status).
			Msg("rpc request")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handleRequest is the main HTTP handler for JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}

	result, rpcErr := s.dispatch(&req)
	if rpcErr != nil {
		writeJSON(w, Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID})
		return
	}
	writeJSON(w, Response{JSONRPC: "2.0", Result: result, ID: req.ID})
}

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(req *Request) (interface{}, *Error) {
	switch req.Method {
	case "listunspent":
		return s.handleListUnspent(req)
	case "getaddressinfo":
		return s.handleGetAddressInfo(req)
	case "_probe":
		return s.handleProbe(req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{JSONRPC: "2.0", Error: &Error{Code: code, Message: message}, ID: id})
}
