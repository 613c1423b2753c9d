// Package server hosts the loopback HTTP front-end: the MCP endpoint with
// its middleware gate, the session-scoped streamable transport, and the
// tool surface clients call.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/gemini-nvim/ide-companion/internal/companion"
	"github.com/gemini-nvim/ide-companion/internal/diff"
	"github.com/gemini-nvim/ide-companion/internal/hub"
	"github.com/gemini-nvim/ide-companion/internal/ide"
)

const serverName = "gemini-ide-companion"

// Server owns the listener, the MCP server, and the session hub. The
// auth token is generated once at construction and read-only afterwards.
type Server struct {
	token string
	agg   *ide.Aggregator
	hub   *hub.Hub
	diffs *diff.Coordinator

	mcp    *mcpserver.MCPServer
	stream *mcpserver.StreamableHTTPServer

	httpSrv *http.Server
	ln      net.Listener
	port    int
}

// New wires the MCP server, session hub, and diff coordinator together.
// The editor is only driven through the diff coordinator.
func New(agg *ide.Aggregator, ed diff.Editor, version string) *Server {
	s := &Server{
		token: uuid.NewString(),
		agg:   agg,
	}
	s.hub = hub.New(
		hub.NotifierFunc(s.sendToSession),
		hub.WithAbandonFunc(s.closeSession),
	)
	s.diffs = diff.New(ed, s.hub)

	hooks := &mcpserver.Hooks{}
	hooks.AddOnRegisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		s.hub.Add(session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		s.hub.Remove(session.SessionID())
	})

	s.mcp = mcpserver.NewMCPServer(serverName, version,
		mcpserver.WithHooks(hooks),
		mcpserver.WithInstructions(
			"This server exposes the user's editor context and inline diff review. "+
				"Call openDiff to propose changes and closeDiff to collect the edited result."),
	)
	s.registerTools()

	s.stream = mcpserver.NewStreamableHTTPServer(s.mcp,
		mcpserver.WithSessionIdManager(newSessionIDManager()),
	)
	return s
}

// Token returns the process-lifetime bearer token. Never logged.
func (s *Server) Token() string { return s.token }

// Port returns the bound port; zero before Start.
func (s *Server) Port() int { return s.port }

// Hub exposes the session hub for broadcast wiring.
func (s *Server) Hub() *hub.Hub { return s.hub }

// Diffs exposes the diff coordinator so the editor adapter can deliver
// outcome events to it.
func (s *Server) Diffs() *diff.Coordinator { return s.diffs }

// Start binds 127.0.0.1 on an ephemeral port and serves in the
// background. The bridge never listens on any other address.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("binding loopback listener: %w", err)
	}
	s.ln = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.httpSrv = &http.Server{Handler: s.Handler()}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("server: serve: %v", err)
		}
	}()

	log.Printf("server: listening on 127.0.0.1:%d", s.port)
	return nil
}

// Shutdown closes all sessions and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// BroadcastContext pushes the aggregator's current snapshot to every live
// session as an ide/contextUpdate notification.
func (s *Server) BroadcastContext() {
	s.hub.Broadcast(companion.MethodContextUpdate, contextParams(s.agg))
}

func contextParams(agg *ide.Aggregator) map[string]any {
	return companion.Params(agg.Snapshot())
}

func (s *Server) sendToSession(sessionID, method string, params map[string]any) error {
	return s.mcp.SendNotificationToSpecificClient(sessionID, method, params)
}

// closeSession is the keep-alive abandon path: unregistering the session
// closes its transport, which fires the unregister hook and removes it
// from the hub.
func (s *Server) closeSession(sessionID string) {
	s.mcp.UnregisterSession(context.Background(), sessionID)
}
