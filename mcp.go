package pggate

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPHandlers wires the gateway onto an MCP server: the query tool
// and a resource template covering every table schema URI. The transport
// (stdio, HTTP) is the caller's choice.
func RegisterMCPHandlers(mcpServer *server.MCPServer, gw *Gateway) {
	queryTool := mcp.NewTool(QueryToolName,
		mcp.WithDescription("Run a read-only SQL query against the PostgreSQL database. Results are returned as JSON."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL query to execute"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(queryTool, gw.loggedToolHandler(QueryToolName, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		text, err := gw.CallTool(ctx, QueryToolName, map[string]any{"sql": sql})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}))

	schemaTemplate := mcp.NewResourceTemplate(
		"postgres://{host}/{table}/schema",
		"table schema",
		mcp.WithTemplateDescription("Columns and constraints of a table in the public schema"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	mcpServer.AddResourceTemplate(schemaTemplate, gw.readResourceHandler())
}

// SyncResources queries the current table list and registers one resource
// per table on the MCP server, so resources/list reflects the catalog. The
// gateway's own ListResources stays uncached; call this again to pick up
// newly created tables.
func SyncResources(ctx context.Context, mcpServer *server.MCPServer, gw *Gateway) error {
	descriptors, err := gw.ListResources(ctx)
	if err != nil {
		return err
	}

	handler := gw.readResourceHandler()
	for _, d := range descriptors {
		opts := []mcp.ResourceOption{mcp.WithMIMEType(d.MIMEType)}
		if d.Description != nil {
			opts = append(opts, mcp.WithResourceDescription(*d.Description))
		}
		mcpServer.AddResource(mcp.NewResource(d.URI, d.Name, opts...), handler)
	}
	return nil
}

// readResourceHandler serves schema documents for both templated and
// registered resource URIs. The unnamed signature satisfies both
// server.ResourceHandlerFunc and server.ResourceTemplateHandlerFunc.
func (gw *Gateway) readResourceHandler() func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := gw.ReadResource(ctx, req.Params.URI)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	}
}

// loggedToolHandler wraps a tool handler to log request and response sizes.
func (gw *Gateway) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := handler(ctx, req)
		gw.logger.Info().
			Str("tool", tool).
			Int("request_bytes", requestLength(req)).
			Int("response_bytes", resultLength(result)).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a result.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
