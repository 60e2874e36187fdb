package agent

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/haasonsaas/conductor/pkg/models"
)

// Decision is the outcome of checking a tool call against the gate.
type Decision string

const (
	// DecisionAllowed means the tool call executes without interruption.
	DecisionAllowed Decision = "allowed"
	// DecisionPending means execution halts until the caller resolves it.
	DecisionPending Decision = "pending"
)

// Resolution is the caller's verdict on a pending tool call, supplied on the
// next run of the thread.
type Resolution struct {
	// Approve executes the call; false rejects it with a cancelled result.
	Approve bool `json:"approve"`

	// Input, when non-nil on approval, replaces the model's arguments.
	Input json.RawMessage `json:"input,omitempty"`

	// Reason is included in the synthesized result on rejection.
	Reason string `json:"reason,omitempty"`
}

// GatePolicy configures which tool calls pause for confirmation.
// Patterns support exact names, "prefix*", "*suffix", and "*".
type GatePolicy struct {
	// Allowlist contains tools that never require confirmation.
	Allowlist []string `yaml:"allowlist" json:"allowlist"`

	// RequireApproval contains tools that always pause.
	RequireApproval []string `yaml:"require_approval" json:"require_approval"`

	// DefaultDecision applies when no rule matches (default: allowed).
	DefaultDecision Decision `yaml:"default_decision" json:"default_decision"`
}

// DefaultGatePolicy pauses the side-effecting tools and lets reads through.
func DefaultGatePolicy() *GatePolicy {
	return &GatePolicy{
		Allowlist:       []string{"ls", "read_file", "glob", "grep", "write_todos"},
		RequireApproval: []string{"execute"},
		DefaultDecision: DecisionAllowed,
	}
}

// Gate evaluates tool calls against a policy and tracks the calls currently
// awaiting resolution. Pending state lives in the transcript, not here: the
// engine reconstructs it after a restart from unanswered tool calls, so the
// in-memory map is only a per-run index.
type Gate struct {
	mu      sync.Mutex
	policy  *GatePolicy
	pending map[string]models.ToolCall
}

// NewGate creates a gate. A nil policy uses DefaultGatePolicy.
func NewGate(policy *GatePolicy) *Gate {
	if policy == nil {
		policy = DefaultGatePolicy()
	}
	if policy.DefaultDecision == "" {
		policy.DefaultDecision = DecisionAllowed
	}
	return &Gate{policy: policy, pending: make(map[string]models.ToolCall)}
}

// Check decides whether a tool call may run now. RequireApproval wins over
// Allowlist so a tool cannot be simultaneously exempted and gated.
func (g *Gate) Check(call models.ToolCall) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if matchesPattern(g.policy.RequireApproval, call.Name) {
		g.pending[call.ID] = call
		return DecisionPending
	}
	if matchesPattern(g.policy.Allowlist, call.Name) {
		return DecisionAllowed
	}
	if g.policy.DefaultDecision == DecisionPending {
		g.pending[call.ID] = call
		return DecisionPending
	}
	return DecisionAllowed
}

// Restore re-registers a tool call as pending, used when resuming a thread
// whose transcript ends in unanswered tool calls.
func (g *Gate) Restore(call models.ToolCall) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[call.ID] = call
}

// Resolve consumes a pending call. It returns the call (with edited input
// applied on approval) and whether it should execute.
func (g *Gate) Resolve(toolCallID string, res Resolution) (models.ToolCall, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	call, ok := g.pending[toolCallID]
	if !ok {
		return models.ToolCall{}, false, ErrUnknownResolution
	}
	delete(g.pending, toolCallID)

	if !res.Approve {
		return call, false, nil
	}
	if len(res.Input) > 0 {
		call.Input = append(json.RawMessage(nil), res.Input...)
	}
	return call, true, nil
}

// Pending returns the IDs of calls awaiting resolution.
func (g *Gate) Pending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.pending))
	for id := range g.pending {
		ids = append(ids, id)
	}
	return ids
}

// PendingCall looks up an awaiting call by ID.
func (g *Gate) PendingCall(toolCallID string) (models.ToolCall, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	call, ok := g.pending[toolCallID]
	return call, ok
}

// RejectedResult synthesizes the tool result recorded for a rejected call.
// The tool never runs; this is the only trace rejection leaves.
func RejectedResult(toolCallID, reason string) models.ToolResult {
	content := "Tool call cancelled by user."
	if reason != "" {
		content += " Reason: " + reason
	}
	return models.ToolResult{ToolCallID: toolCallID, Content: content, IsError: true}
}

// matchesPattern checks toolName against each pattern: exact, "prefix*",
// "*suffix", or "*".
func matchesPattern(patterns []string, toolName string) bool {
	name := strings.ToLower(strings.TrimSpace(toolName))
	for _, pattern := range patterns {
		p := strings.ToLower(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		if p == "*" || p == name {
			return true
		}
		if len(p) > 1 && p[len(p)-1] == '*' && strings.HasPrefix(name, p[:len(p)-1]) {
			return true
		}
		if len(p) > 1 && p[0] == '*' && strings.HasSuffix(name, p[1:]) {
			return true
		}
	}
	return false
}
