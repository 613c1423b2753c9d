package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

const (
	// maxBodyBytes caps a single request body.
	maxBodyBytes = 10 << 20

	// sessionHeader carries the streamable-transport session id.
	sessionHeader = "Mcp-Session-Id"
)

// Handler builds the middleware chain. Every request passes, in order:
// panic recovery, body cap, CORS gate, Host allow-list, bearer auth.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleMCP)

	var h http.Handler = mux
	h = s.withAuth(h)
	h = s.withHostCheck(h)
	h = withCORS(h)
	h = withBodyCap(h)
	h = withRecovery(h)
	return h
}

// withRecovery turns handler panics into a JSON-RPC internal error.
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("server: handler panic: %v", rec)
				writeJSONRPCError(w, http.StatusInternalServerError,
					-32603, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func withBodyCap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// withCORS rejects any request carrying an Origin header. Browsers always
// send one on cross-origin requests; the bridge only serves non-browser
// local callers, which omit it.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Origin") != "" {
			writeJSONError(w, http.StatusForbidden, "Request denied by CORS policy.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withHostCheck pins the Host header to the two loopback spellings of the
// bound port, blocking DNS-rebinding style requests.
func (s *Server) withHostCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		localhost := fmt.Sprintf("localhost:%d", s.port)
		loopback := fmt.Sprintf("127.0.0.1:%d", s.port)
		if r.Host != localhost && r.Host != loopback {
			writeJSONError(w, http.StatusForbidden, "Invalid Host header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		s.handleGet(w, r)
	default:
		// DELETE (session termination) and anything else goes straight
		// to the transport.
		s.stream.ServeHTTP(w, r)
	}
}

// handlePost dispatches a JSON-RPC request. Requests on a live session go
// to that session's transport; an initialize request without a session id
// creates a new session. Everything else is a protocol misuse.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	sid := r.Header.Get(sessionHeader)
	switch {
	case sid != "" && s.hub.Has(sid):
		s.stream.ServeHTTP(w, r)
	case sid == "" && isInitialize(body):
		s.stream.ServeHTTP(w, r)
	default:
		writeJSONRPCError(w, http.StatusBadRequest, -32000,
			"Bad Request: No valid session ID provided for non-initialize request.")
	}
}

// handleGet serves the session-scoped listening stream. The first GET per
// session also delivers the one-time initial context snapshot. The
// session's notification channel exists from registration and is
// buffered, so the push is queued even before the stream finishes
// attaching; the transport flushes it once the stream is up. The
// goroutine keeps a full channel from stalling the dispatch.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sid := r.Header.Get(sessionHeader)
	if sid == "" || !s.hub.Has(sid) {
		writeJSONRPCError(w, http.StatusBadRequest, -32000,
			"Bad Request: invalid or missing session ID")
		return
	}

	go s.hub.SendInitialContext(sid, contextParams(s.agg))
	s.stream.ServeHTTP(w, r)
}

func isInitialize(body []byte) bool {
	var req struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return false
	}
	return req.Method == "initialize"
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSONRPCError(w http.ResponseWriter, status, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
		"id": nil,
	})
}
