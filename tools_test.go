package pggate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pggate/postgres-gateway/internal/errprompt"
)

func TestListToolsIsStatic(t *testing.T) {
	t.Parallel()
	g := &Gateway{}

	tools := g.ListTools(context.Background())
	if len(tools) != 1 {
		t.Fatalf("ListTools returned %d tools, want 1", len(tools))
	}
	tool := tools[0]
	if tool.Name != QueryToolName {
		t.Errorf("tool name = %q, want %q", tool.Name, QueryToolName)
	}
	if tool.Description == "" {
		t.Error("tool description is empty")
	}
	props, ok := tool.InputSchema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("input schema has no properties: %v", tool.InputSchema)
	}
	if _, ok := props["sql"]; !ok {
		t.Error("input schema does not declare the sql parameter")
	}
}

func TestCallToolUnknownTool(t *testing.T) {
	t.Parallel()
	g := &Gateway{}

	_, err := g.CallTool(context.Background(), "delete_everything", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("CallTool(delete_everything) = %v, want ErrUnknownTool", err)
	}
	if err != nil && !strings.Contains(err.Error(), "delete_everything") {
		t.Errorf("error should name the offending tool: %v", err)
	}
}

// Query tool failures become the text payload, not an error: the caller
// always gets a tool response it can show to the agent.
func TestCallToolValidationFailureBecomesPayload(t *testing.T) {
	t.Parallel()
	g := &Gateway{}

	tests := []struct {
		name   string
		args   map[string]any
		substr string
	}{
		{"empty sql", map[string]any{"sql": ""}, "query is empty"},
		{"missing sql", nil, "query is empty"},
		{"non-select", map[string]any{"sql": "DELETE FROM users"}, "only SELECT queries are allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := g.CallTool(context.Background(), QueryToolName, tt.args)
			if err != nil {
				t.Fatalf("CallTool returned error %v, want textual payload", err)
			}
			if !strings.HasPrefix(payload, "Error executing query:") {
				t.Errorf("payload %q missing error prefix", payload)
			}
			if !strings.Contains(payload, tt.substr) {
				t.Errorf("payload %q missing %q", payload, tt.substr)
			}
		})
	}
}

func TestQueryErrorPayloadAppendsGuidance(t *testing.T) {
	t.Parallel()
	matcher, err := errprompt.New([]errprompt.Rule{
		{Pattern: `permission denied`, Message: "The gateway user has read-only grants; query a table it can see."},
	})
	if err != nil {
		t.Fatalf("errprompt.New failed: %v", err)
	}
	g := &Gateway{errPrompts: matcher}

	payload := g.queryErrorPayload(errors.New("ERROR: permission denied for table secrets"))
	if !strings.Contains(payload, "permission denied for table secrets") {
		t.Errorf("payload missing original error: %q", payload)
	}
	if !strings.Contains(payload, "read-only grants") {
		t.Errorf("payload missing guidance: %q", payload)
	}

	// No matching rule, no guidance block.
	payload = g.queryErrorPayload(errors.New("syntax error at or near"))
	if strings.Contains(payload, "\n\n") {
		t.Errorf("payload has guidance separator without a match: %q", payload)
	}
}

func TestTruncatePayload(t *testing.T) {
	t.Parallel()
	g := &Gateway{}
	g.config.Query.MaxResultLength = 10

	if got := g.truncatePayload("short"); got != "short" {
		t.Errorf("truncatePayload(short) = %q", got)
	}

	got := g.truncatePayload(strings.Repeat("x", 50))
	if !strings.HasPrefix(got, strings.Repeat("x", 10)) {
		t.Errorf("truncated payload lost prefix: %q", got)
	}
	if !strings.Contains(got, "Result is too long") {
		t.Errorf("truncated payload missing hint: %q", got)
	}

	// Rune count, not byte count.
	g.config.Query.MaxResultLength = 5
	got = g.truncatePayload("ééééé")
	if strings.Contains(got, "truncated") {
		t.Errorf("payload of exactly max runes should not be truncated: %q", got)
	}
}
