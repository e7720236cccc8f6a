// Package mcpserver exposes the tracker operations as MCP tools, so an
// assistant can read the roster, apply item effects, craft and move items.
// The same [Server] can be served over stdio or mounted as a streamable
// HTTP endpoint.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/roster/internal/observe"
	"github.com/MrWong99/roster/internal/tracker"
)

const serverName = "roster"

// Server binds the tools to one tracker service.
type Server struct {
	svc     *tracker.Service
	metrics *observe.Metrics
	version string
	server  *mcp.Server
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the instruments tool calls are recorded to. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the implementation version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New returns a server with every tool registered.
func New(svc *tracker.Service, opts ...Option) *Server {
	s := &Server{svc: svc, version: "dev"}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.server = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: s.version}, nil)
	s.register()
	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server { return s.server }

// Serve runs the server on t until the client disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

// ServeStdio serves on the process's stdin and stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Handler returns a streamable HTTP handler for mounting at /mcp.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
}

// addTool registers fn as a typed tool with a span and a call counter
// around it. An error from fn is reported to the client as a tool error.
func addTool[In, Out any](s *Server, name, description string, fn func(context.Context, In) (Out, error)) {
	tool := &mcp.Tool{Name: name, Description: description}
	mcp.AddTool(s.server, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		ctx, span := observe.StartSpan(ctx, "mcp."+name)
		out, err := fn(ctx, in)
		observe.EndSpan(span, err)

		status := "ok"
		if err != nil {
			status = "error"
			observe.Logger(ctx).Info("mcpserver: tool failed", "tool", name, "err", err)
		}
		s.metrics.RecordToolCall(ctx, name, status)
		return nil, out, err
	})
}
