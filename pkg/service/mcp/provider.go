package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/tool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// remoteTool bridges one MCP server tool into the local tool interface
// so the decision stage can plan it like any builtin.
type remoteTool struct {
	client     *Client
	serverName string
	mcpTool    *mcp.Tool
	params     map[string]string
}

// Tools converts every tool on every connected server into tool.Tool
// implementations.
func Tools(client *Client) ([]tool.Tool, error) {
	var tools []tool.Tool
	for _, serverName := range client.GetAllServers() {
		serverTools, err := client.GetTools(serverName)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get tools from server",
				goerr.V("server", serverName))
		}

		for _, t := range serverTools {
			params, err := schemaParams(t.InputSchema)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to convert tool schema",
					goerr.V("server", serverName),
					goerr.V("tool", t.Name))
			}

			tools = append(tools, &remoteTool{
				client:     client,
				serverName: serverName,
				mcpTool:    t,
				params:     params,
			})
		}
	}
	return tools, nil
}

func (t *remoteTool) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name:        t.mcpTool.Name,
		Description: t.mcpTool.Description,
		Parameters:  t.params,
		WhenToUse:   "External capability provided by MCP server " + t.serverName,
	}
}

func (t *remoteTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	result, err := t.client.CallTool(ctx, t.serverName, t.mcpTool.Name, args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call MCP tool")
	}

	texts := make([]string, 0, len(result.Content))
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	text := strings.Join(texts, "\n")

	if result.IsError {
		return nil, goerr.New("MCP tool reported an error",
			goerr.V("tool", t.mcpTool.Name), goerr.V("detail", text))
	}

	// Prefer structured output when the payload is JSON
	var structured any
	if err := json.Unmarshal([]byte(text), &structured); err == nil {
		return structured, nil
	}
	return text, nil
}
