package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
)

// TransportStarter abstracts the transport an MCP server is exposed over:
// STDIO for local process integration, SSE and StreamableHTTP for network
// clients.
type TransportStarter interface {
	// Start binds the transport to the MCP server and blocks until the
	// transport stops or an error occurs.
	Start(ctx context.Context, mcpServer *server.MCPServer) error

	// Shutdown gracefully stops the transport and closes active connections.
	Shutdown(ctx context.Context) error

	// Type returns the transport type name: stdio, sse or streamablehttp.
	Type() string
}

// StdioTransport serves MCP over standard input/output. Logs go to stderr to
// avoid protocol interference.
type StdioTransport struct{}

func (s *StdioTransport) Start(ctx context.Context, mcpServer *server.MCPServer) error {
	return server.ServeStdio(mcpServer)
}

// Shutdown is a no-op for STDIO: stdin/stdout are closed with the process.
func (s *StdioTransport) Shutdown(ctx context.Context) error {
	return nil
}

func (s *StdioTransport) Type() string { return "stdio" }

// SSETransport serves MCP over HTTP with Server-Sent Events.
type SSETransport struct {
	address string
	server  *server.SSEServer
}

func (s *SSETransport) Start(ctx context.Context, mcpServer *server.MCPServer) error {
	s.server = server.NewSSEServer(mcpServer)
	return s.server.Start(s.address)
}

func (s *SSETransport) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *SSETransport) Type() string { return "sse" }

// StreamableHTTPTransport serves MCP over the streamable HTTP protocol.
type StreamableHTTPTransport struct {
	address string
	server  *server.StreamableHTTPServer
}

func (s *StreamableHTTPTransport) Start(ctx context.Context, mcpServer *server.MCPServer) error {
	s.server = server.NewStreamableHTTPServer(mcpServer)
	return s.server.Start(s.address)
}

func (s *StreamableHTTPTransport) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *StreamableHTTPTransport) Type() string { return "streamablehttp" }

// transportConfig is the slice of configuration NewTransport needs; it keeps
// the factory testable with mock configs.
type transportConfig interface {
	GetTransportType() string
	GetPort() int
	GetTransportAddress() string
}

// NewTransport creates the transport selected by configuration. Network
// transports require a configured port.
func NewTransport(cfg transportConfig) (TransportStarter, error) {
	switch cfg.GetTransportType() {
	case "stdio":
		return &StdioTransport{}, nil
	case "sse":
		if cfg.GetPort() == 0 {
			return nil, fmt.Errorf("port must be configured for SSE transport")
		}
		return &SSETransport{address: cfg.GetTransportAddress()}, nil
	case "streamablehttp":
		if cfg.GetPort() == 0 {
			return nil, fmt.Errorf("port must be configured for StreamableHTTP transport")
		}
		return &StreamableHTTPTransport{address: cfg.GetTransportAddress()}, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s (must be one of: stdio, sse, streamablehttp)", cfg.GetTransportType())
	}
}
