package server

import (
	"context"
	"strings"
	"testing"
)

// mockConfig implements transportConfig for factory tests.
type mockConfig struct {
	transportType string
	port          int
	address       string
}

func (m *mockConfig) GetTransportType() string    { return m.transportType }
func (m *mockConfig) GetPort() int                { return m.port }
func (m *mockConfig) GetTransportAddress() string { return m.address }

func TestNewTransportStdio(t *testing.T) {
	transport, err := NewTransport(&mockConfig{transportType: "stdio"})
	if err != nil {
		t.Fatalf("Failed to create stdio transport: %v", err)
	}
	if transport.Type() != "stdio" {
		t.Errorf("Expected type 'stdio', got %q", transport.Type())
	}
}

func TestNewTransportSSE(t *testing.T) {
	transport, err := NewTransport(&mockConfig{transportType: "sse", port: 8080, address: "localhost:8080"})
	if err != nil {
		t.Fatalf("Failed to create sse transport: %v", err)
	}
	if transport.Type() != "sse" {
		t.Errorf("Expected type 'sse', got %q", transport.Type())
	}
}

func TestNewTransportSSERequiresPort(t *testing.T) {
	if _, err := NewTransport(&mockConfig{transportType: "sse"}); err == nil {
		t.Error("Expected an error for sse without a port")
	}
}

func TestNewTransportStreamableHTTP(t *testing.T) {
	transport, err := NewTransport(&mockConfig{transportType: "streamablehttp", port: 8080, address: "localhost:8080"})
	if err != nil {
		t.Fatalf("Failed to create streamablehttp transport: %v", err)
	}
	if transport.Type() != "streamablehttp" {
		t.Errorf("Expected type 'streamablehttp', got %q", transport.Type())
	}
}

func TestNewTransportUnknownType(t *testing.T) {
	_, err := NewTransport(&mockConfig{transportType: "telegraph"})
	if err == nil {
		t.Fatal("Expected an error for an unknown transport type")
	}
	if !strings.Contains(err.Error(), "telegraph") {
		t.Errorf("Expected the error to name the bad transport, got %v", err)
	}
}

func TestStdioShutdownIsNoop(t *testing.T) {
	transport := &StdioTransport{}
	if err := transport.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected stdio shutdown to be a no-op, got %v", err)
	}
}

func TestNetworkTransportShutdownBeforeStart(t *testing.T) {
	sse := &SSETransport{}
	if err := sse.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected shutdown before start to be safe, got %v", err)
	}

	streamable := &StreamableHTTPTransport{}
	if err := streamable.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected shutdown before start to be safe, got %v", err)
	}
}
