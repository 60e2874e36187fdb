package agent

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/conductor/pkg/models"
)

func TestGateCheck(t *testing.T) {
	policy := &GatePolicy{
		Allowlist:       []string{"read_file", "ls", "git_*"},
		RequireApproval: []string{"execute", "*_prod"},
		DefaultDecision: DecisionAllowed,
	}

	tests := []struct {
		tool string
		want Decision
	}{
		{"read_file", DecisionAllowed},
		{"execute", DecisionPending},
		{"git_status", DecisionAllowed},
		{"deploy_prod", DecisionPending},
		{"write_file", DecisionAllowed}, // default
	}
	for _, tt := range tests {
		g := NewGate(policy)
		got := g.Check(models.ToolCall{ID: "c1", Name: tt.tool})
		if got != tt.want {
			t.Errorf("Check(%s) = %s, want %s", tt.tool, got, tt.want)
		}
	}
}

func TestGateRequireApprovalWinsOverAllowlist(t *testing.T) {
	g := NewGate(&GatePolicy{
		Allowlist:       []string{"*"},
		RequireApproval: []string{"execute"},
	})
	if got := g.Check(models.ToolCall{ID: "c1", Name: "execute"}); got != DecisionPending {
		t.Errorf("Check(execute) = %s, want pending", got)
	}
}

func TestGateDefaultPending(t *testing.T) {
	g := NewGate(&GatePolicy{DefaultDecision: DecisionPending})
	if got := g.Check(models.ToolCall{ID: "c1", Name: "anything"}); got != DecisionPending {
		t.Errorf("Check = %s, want pending", got)
	}
	if len(g.Pending()) != 1 {
		t.Error("pending call not tracked")
	}
}

func TestGateResolveApprove(t *testing.T) {
	g := NewGate(&GatePolicy{RequireApproval: []string{"execute"}})
	call := models.ToolCall{ID: "c1", Name: "execute", Input: json.RawMessage(`{"command":"rm -rf /"}`)}
	g.Check(call)

	got, ok, err := g.Resolve("c1", Resolution{Approve: true})
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if string(got.Input) != `{"command":"rm -rf /"}` {
		t.Error("input changed without an edit")
	}
	if len(g.Pending()) != 0 {
		t.Error("resolved call still pending")
	}
}

func TestGateResolveEditedInput(t *testing.T) {
	g := NewGate(&GatePolicy{RequireApproval: []string{"execute"}})
	g.Check(models.ToolCall{ID: "c1", Name: "execute", Input: json.RawMessage(`{"command":"rm -rf /"}`)})

	edited := json.RawMessage(`{"command":"ls"}`)
	got, ok, err := g.Resolve("c1", Resolution{Approve: true, Input: edited})
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if string(got.Input) != `{"command":"ls"}` {
		t.Errorf("edited input not applied: %s", got.Input)
	}
}

func TestGateResolveReject(t *testing.T) {
	g := NewGate(&GatePolicy{RequireApproval: []string{"execute"}})
	g.Check(models.ToolCall{ID: "c1", Name: "execute"})

	_, ok, err := g.Resolve("c1", Resolution{Approve: false, Reason: "too risky"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Error("rejected call marked executable")
	}

	result := RejectedResult("c1", "too risky")
	if !result.IsError || result.ToolCallID != "c1" {
		t.Errorf("bad rejected result: %+v", result)
	}
}

func TestGateResolveUnknown(t *testing.T) {
	g := NewGate(nil)
	_, _, err := g.Resolve("nope", Resolution{Approve: true})
	if err == nil {
		t.Fatal("expected error for unknown tool call")
	}
}

func TestGateRestore(t *testing.T) {
	g := NewGate(nil)
	g.Restore(models.ToolCall{ID: "c9", Name: "execute"})
	if _, ok := g.PendingCall("c9"); !ok {
		t.Error("restored call not pending")
	}
}
