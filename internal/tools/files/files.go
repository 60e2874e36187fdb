// Package files exposes the virtual workspace to the model as tools:
// listing, reading, writing, editing, glob, and grep.
package files

import (
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/vfs"
)

// Config wires the file tools to a workspace store.
type Config struct {
	Store vfs.Store
}

// All returns the full file tool set over the store.
func All(cfg Config) []agent.Tool {
	return []agent.Tool{
		NewLsTool(cfg),
		NewReadTool(cfg),
		NewWriteTool(cfg),
		NewEditTool(cfg),
		NewGlobTool(cfg),
		NewGrepTool(cfg),
	}
}

// toolError wraps a user-facing failure message into an error result so the
// model can correct itself.
func toolError(msg string) *agent.ToolOutput {
	return &agent.ToolOutput{Content: "Error: " + msg, IsError: true}
}

func mustSchema(schema map[string]interface{}) json.RawMessage {
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func describeSize(n int64) string {
	return fmt.Sprintf("%d", n)
}
