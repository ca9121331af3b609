package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTransportStdio(t *testing.T) {
	cfg := &ServerConfig{ID: "test", Transport: TransportStdio, Command: "echo"}

	transport := NewTransport(cfg)
	require.NotNil(t, transport)
	_, ok := transport.(*StdioTransport)
	require.True(t, ok)
}

func TestNewTransportHTTP(t *testing.T) {
	cfg := &ServerConfig{ID: "test", Transport: TransportHTTP, URL: "https://example.com/mcp"}

	transport := NewTransport(cfg)
	require.NotNil(t, transport)
	_, ok := transport.(*HTTPTransport)
	require.True(t, ok)
}

func TestNewTransportDefault(t *testing.T) {
	cfg := &ServerConfig{ID: "test", Command: "echo"}

	transport := NewTransport(cfg)
	_, ok := transport.(*StdioTransport)
	require.True(t, ok, "expected StdioTransport as default")
}

func TestNewStdioTransport(t *testing.T) {
	cfg := &ServerConfig{
		ID:      "test-stdio",
		Command: "mcp-server",
		Args:    []string{"--config", "test.yaml"},
		Env:     map[string]string{"DEBUG": "true"},
		WorkDir: "/tmp",
		Timeout: 30 * time.Second,
	}

	transport := NewStdioTransport(cfg)
	require.Same(t, cfg, transport.config)
	require.NotNil(t, transport.pending)
	require.NotNil(t, transport.events)
	require.NotNil(t, transport.requests)
}

func TestStdioTransportConnected(t *testing.T) {
	transport := NewStdioTransport(&ServerConfig{ID: "test", Command: "echo"})
	require.False(t, transport.Connected())
}

func TestStdioTransportEvents(t *testing.T) {
	transport := NewStdioTransport(&ServerConfig{ID: "test", Command: "echo"})
	require.NotNil(t, transport.Events())
}

func TestStdioTransportRequests(t *testing.T) {
	transport := NewStdioTransport(&ServerConfig{ID: "test", Command: "echo"})
	require.NotNil(t, transport.Requests())
}

func TestNewHTTPTransport(t *testing.T) {
	cfg := &ServerConfig{
		ID:      "test-http",
		URL:     "https://mcp.example.com/api",
		Headers: map[string]string{"X-Team": "infra"},
		Timeout: 60 * time.Second,
	}

	transport := NewHTTPTransport(cfg)
	require.Same(t, cfg, transport.config)
	require.NotNil(t, transport.events)
	require.NotNil(t, transport.requests)
	require.Nil(t, transport.tokenSource)
}

func TestNewHTTPTransportWithOAuthBuildsTokenSource(t *testing.T) {
	cfg := &ServerConfig{
		ID:  "test-http",
		URL: "https://mcp.example.com/api",
		OAuth: &OAuthConfig{
			Grant:    OAuthGrantClientCredentials,
			TokenURL: "https://auth.example.com/token",
			ClientID: "abc",
		},
	}

	transport := NewHTTPTransport(cfg)
	require.NotNil(t, transport.tokenSource)
}

func TestHTTPTransportDefaultTimeout(t *testing.T) {
	transport := NewHTTPTransport(&ServerConfig{ID: "test", URL: "https://mcp.example.com"})
	require.Equal(t, 30*time.Second, transport.client.Timeout)
}

func TestHTTPTransportCustomTimeout(t *testing.T) {
	transport := NewHTTPTransport(&ServerConfig{ID: "test", URL: "https://mcp.example.com", Timeout: 60 * time.Second})
	require.Equal(t, 60*time.Second, transport.client.Timeout)
}

func TestHTTPTransportConnected(t *testing.T) {
	transport := NewHTTPTransport(&ServerConfig{ID: "test", URL: "https://mcp.example.com"})
	require.False(t, transport.Connected())
}

func TestHTTPTransportEvents(t *testing.T) {
	transport := NewHTTPTransport(&ServerConfig{ID: "test", URL: "https://mcp.example.com"})
	require.NotNil(t, transport.Events())
}

func TestHTTPTransportRequests(t *testing.T) {
	transport := NewHTTPTransport(&ServerConfig{ID: "test", URL: "https://mcp.example.com"})
	require.NotNil(t, transport.Requests())
}

func TestStdioTransportConnectNoCommand(t *testing.T) {
	transport := NewStdioTransport(&ServerConfig{ID: "test"})
	require.Error(t, transport.Connect(context.Background()))
}

func TestHTTPTransportConnectNoURL(t *testing.T) {
	transport := NewHTTPTransport(&ServerConfig{ID: "test", Transport: TransportHTTP})
	require.Error(t, transport.Connect(context.Background()))
}

func TestStdioTransportCallNotConnected(t *testing.T) {
	transport := NewStdioTransport(&ServerConfig{ID: "test", Command: "echo"})
	_, err := transport.Call(context.Background(), "test", nil)
	require.Error(t, err)
}

func TestHTTPTransportCallNotConnected(t *testing.T) {
	transport := NewHTTPTransport(&ServerConfig{ID: "test", URL: "https://mcp.example.com"})
	_, err := transport.Call(context.Background(), "test", nil)
	require.Error(t, err)
}

func TestStdioTransportNotifyNotConnected(t *testing.T) {
	transport := NewStdioTransport(&ServerConfig{ID: "test", Command: "echo"})
	require.Error(t, transport.Notify(context.Background(), "test", nil))
}

func TestHTTPTransportNotifyNotConnected(t *testing.T) {
	transport := NewHTTPTransport(&ServerConfig{ID: "test", URL: "https://mcp.example.com"})
	require.Error(t, transport.Notify(context.Background(), "test", nil))
}

func TestStdioTransportRespondNotConnected(t *testing.T) {
	transport := NewStdioTransport(&ServerConfig{ID: "test", Command: "echo"})
	require.Error(t, transport.Respond(context.Background(), int64(1), nil, nil))
}

func TestHTTPTransportRespondNotConnected(t *testing.T) {
	transport := NewHTTPTransport(&ServerConfig{ID: "test", URL: "https://mcp.example.com"})
	require.Error(t, transport.Respond(context.Background(), int64(1), nil, nil))
}
