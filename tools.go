package pggate

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// QueryToolName is the single tool exposed by the gateway.
const QueryToolName = "query"

// ListTools returns the static tool list: the one "query" capability with
// its input schema. No connection is needed or acquired.
func (g *Gateway) ListTools(ctx context.Context) []ToolDescriptor {
	return []ToolDescriptor{{
		Name:        QueryToolName,
		Description: "Run a read-only SQL query against the PostgreSQL database. Results are returned as JSON.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sql": map[string]any{"type": "string"},
			},
			"required": []string{"sql"},
		},
	}}
}

// CallTool dispatches a tool invocation. An unknown tool name fails with
// ErrUnknownTool. For the query tool, every execution failure — validation
// or database — is converted into the text payload itself rather than an
// error, so a bad ad-hoc query always gets a tool response instead of a
// transport fault.
func (g *Gateway) CallTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	if name != QueryToolName {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	sql, _ := arguments["sql"].(string)
	result, err := g.Execute(ctx, QueryInput{SQL: sql})
	if err != nil {
		return g.queryErrorPayload(err), nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to serialize query result: %w", err)
	}
	return g.truncatePayload(string(payload)), nil
}

// queryErrorPayload renders an execution failure as the tool's text
// payload. Matching error-prompt guidance is appended so the agent can
// steer itself out of repeated failures.
func (g *Gateway) queryErrorPayload(err error) string {
	msg := fmt.Sprintf("Error executing query: %v", err)
	if guidance := g.errPrompts.Guidance(err.Error()); guidance != "" {
		msg = msg + "\n\n" + guidance
	}
	return msg
}

// truncatePayload caps the serialized result at MaxResultLength runes.
func (g *Gateway) truncatePayload(payload string) string {
	max := g.config.Query.MaxResultLength
	if max <= 0 || utf8.RuneCountInString(payload) <= max {
		return payload
	}
	runes := []rune(payload)
	return string(runes[:max]) + "...[truncated] Result is too long! Add limits in your query!"
}
