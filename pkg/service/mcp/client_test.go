package mcp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kotae/pkg/service/mcp"
	"github.com/m-mizutani/kotae/pkg/tool"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestStdioTransport(t *testing.T) {
	ctx := context.Background()

	client := mcp.NewClient()

	err := client.Connect(ctx, mcp.ServerConfig{
		Name:      "test-stdio",
		Transport: "stdio",
		Command:   []string{"go", "run", "./testdata/stdio/main.go"},
	})
	gt.NoError(t, err)
	defer client.Close()

	servers := client.GetAllServers()
	gt.A(t, servers).Length(1)
	gt.Equal(t, servers[0], "test-stdio")

	tools, err := client.GetTools("test-stdio")
	gt.NoError(t, err)
	gt.A(t, tools).Length(1)
	gt.Equal(t, tools[0].Name, "greet")

	result, err := client.CallTool(ctx, "test-stdio", "greet", map[string]any{
		"name": "Kotae",
	})
	gt.NoError(t, err)
	gt.V(t, result).NotNil()
	gt.A(t, result.Content).Length(1)

	textContent, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.Equal(t, textContent.Text, "Hello, Kotae!")
}

func newEchoServer() *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "test-http-server",
		Version: "1.0.0",
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "echo",
		Description: "Echo back the message",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, params *struct {
		Message string `json:"message" jsonschema:"Message to echo"`
	}) (*mcpsdk.CallToolResult, any, error) {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: params.Message},
			},
		}, nil, nil
	})

	return server
}

func TestHTTPStreamableTransport(t *testing.T) {
	ctx := context.Background()

	handler := mcpsdk.NewStreamableHTTPHandler(func(r *http.Request) *mcpsdk.Server {
		return newEchoServer()
	}, nil)

	testServer := httptest.NewServer(handler)
	defer testServer.Close()

	client := mcp.NewClient()
	err := client.Connect(ctx, mcp.ServerConfig{
		Name:      "test-http",
		Transport: "http",
		URL:       testServer.URL,
	})
	gt.NoError(t, err)
	defer client.Close()

	servers := client.GetAllServers()
	gt.A(t, servers).Length(1)
	gt.Equal(t, servers[0], "test-http")

	tools, err := client.GetTools("test-http")
	gt.NoError(t, err)
	gt.A(t, tools).Length(1)
	gt.Equal(t, tools[0].Name, "echo")

	result, err := client.CallTool(ctx, "test-http", "echo", map[string]any{
		"message": "Hello from HTTP!",
	})
	gt.NoError(t, err)
	gt.V(t, result).NotNil()
	gt.A(t, result.Content).Length(1)

	textContent, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.Equal(t, textContent.Text, "Hello from HTTP!")
}

func TestBridgedTools(t *testing.T) {
	ctx := context.Background()

	handler := mcpsdk.NewStreamableHTTPHandler(func(r *http.Request) *mcpsdk.Server {
		return newEchoServer()
	}, nil)
	testServer := httptest.NewServer(handler)
	defer testServer.Close()

	client := mcp.NewClient()
	err := client.Connect(ctx, mcp.ServerConfig{
		Name:      "bridge",
		Transport: "http",
		URL:       testServer.URL,
	})
	gt.NoError(t, err)
	defer client.Close()

	// Bridged tools plug into the same registry as the builtins
	tools, err := mcp.Tools(client)
	gt.NoError(t, err)
	gt.A(t, tools).Length(1)

	desc := tools[0].Descriptor()
	gt.Equal(t, desc.Name, "echo")
	gt.S(t, desc.WhenToUse).Contains("bridge")

	registry := tool.New(tools...)
	result, err := registry.Execute(ctx, "echo", map[string]any{
		"message": "roundtrip",
	})
	gt.NoError(t, err)
	gt.V(t, result).Equal(any("roundtrip"))
}

func TestMultipleServers(t *testing.T) {
	ctx := context.Background()

	client := mcp.NewClient()

	err := client.Connect(ctx, mcp.ServerConfig{
		Name:      "stdio-server",
		Transport: "stdio",
		Command:   []string{"go", "run", "./testdata/stdio/main.go"},
	})
	gt.NoError(t, err)

	handler := mcpsdk.NewStreamableHTTPHandler(func(r *http.Request) *mcpsdk.Server {
		return newEchoServer()
	}, nil)
	testServer := httptest.NewServer(handler)
	defer testServer.Close()

	err = client.Connect(ctx, mcp.ServerConfig{
		Name:      "http-server",
		Transport: "http",
		URL:       testServer.URL,
	})
	gt.NoError(t, err)

	servers := client.GetAllServers()
	gt.A(t, servers).Length(2)

	serverMap := make(map[string]bool)
	for _, s := range servers {
		serverMap[s] = true
	}
	gt.True(t, serverMap["stdio-server"])
	gt.True(t, serverMap["http-server"])

	result1, err := client.CallTool(ctx, "stdio-server", "greet", map[string]any{
		"name": "Test1",
	})
	gt.NoError(t, err)
	textContent1, ok := result1.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.Equal(t, textContent1.Text, "Hello, Test1!")

	result2, err := client.CallTool(ctx, "http-server", "echo", map[string]any{
		"message": "test",
	})
	gt.NoError(t, err)
	textContent2, ok := result2.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.Equal(t, textContent2.Text, "test")

	// Close client before test server to allow clean shutdown
	client.Close()
}
