package models

import (
	"testing"
	"time"
)

func TestRole_Constants(t *testing.T) {
	tests := []struct {
		role     Role
		expected string
	}{
		{RoleUser, "user"},
		{RoleSupervisor, "supervisor"},
		{RoleSystem, "system"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.role) != tt.expected {
				t.Errorf("role = %q, want %q", tt.role, tt.expected)
			}
		})
	}
}

func TestAgentRole(t *testing.T) {
	r := AgentRole("granny")
	if string(r) != "agent:granny" {
		t.Fatalf("AgentRole = %q, want %q", r, "agent:granny")
	}
	id, ok := r.IsAgent()
	if !ok || id != "granny" {
		t.Fatalf("IsAgent() = (%q, %v), want (%q, true)", id, ok, "granny")
	}
	if _, ok := r.IsTool(); ok {
		t.Fatalf("IsTool() = true for an agent role")
	}
}

func TestToolRole(t *testing.T) {
	r := ToolRole("web_search")
	if string(r) != "tool:web_search" {
		t.Fatalf("ToolRole = %q, want %q", r, "tool:web_search")
	}
	id, ok := r.IsTool()
	if !ok || id != "web_search" {
		t.Fatalf("IsTool() = (%q, %v), want (%q, true)", id, ok, "web_search")
	}
	if _, ok := r.IsAgent(); ok {
		t.Fatalf("IsAgent() = true for a tool role")
	}
}

func TestRole_Valid(t *testing.T) {
	valid := []Role{RoleUser, RoleSupervisor, RoleSystem, AgentRole("granny"), ToolRole("knowledgebase")}
	for _, r := range valid {
		if !r.Valid() {
			t.Errorf("Valid() = false for %q, want true", r)
		}
	}
	if (Role("assistant")).Valid() {
		t.Errorf("Valid() = true for non-closed-set role %q", "assistant")
	}
	if (Role("agent:")).Valid() {
		t.Errorf("Valid() = true for empty agent id role")
	}
}

func TestAnnotation_IsZero(t *testing.T) {
	if !(Annotation{}).IsZero() {
		t.Errorf("IsZero() = false for empty annotation")
	}
	if (Annotation{Error: true}).IsZero() {
		t.Errorf("IsZero() = true for non-empty annotation")
	}
}

func TestMessage_Struct(t *testing.T) {
	now := time.Now()
	msg := Message{
		ID:         "msg-123",
		SessionID:  "session-456",
		Role:       AgentRole("granny"),
		Text:       "Hello, world!",
		Annotation: Annotation{TargetAgentID: "granny"},
		CreatedAt:  now,
	}

	if msg.ID != "msg-123" {
		t.Errorf("ID = %q, want %q", msg.ID, "msg-123")
	}
	agentID, ok := msg.Role.IsAgent()
	if !ok || agentID != "granny" {
		t.Errorf("Role.IsAgent() = (%q, %v), want (%q, true)", agentID, ok, "granny")
	}
}

func TestSession_HasActivity(t *testing.T) {
	empty := &Session{}
	if empty.HasActivity() {
		t.Errorf("HasActivity() = true for an empty session")
	}

	withHistory := &Session{History: []*Message{{ID: "m1", Role: RoleUser, Text: "hi"}}}
	if !withHistory.HasActivity() {
		t.Errorf("HasActivity() = false for a session with history")
	}

	withDisabledPlan := &Session{Plan: ManualPlan{Entries: []PlanEntry{{AgentID: "granny", Enabled: false}}}}
	if withDisabledPlan.HasActivity() {
		t.Errorf("HasActivity() = true for a session with only disabled plan entries")
	}

	withEnabledPlan := &Session{Plan: ManualPlan{Entries: []PlanEntry{{AgentID: "granny", Enabled: true}}}}
	if !withEnabledPlan.HasActivity() {
		t.Errorf("HasActivity() = false for a session with an enabled plan entry")
	}

	var nilSession *Session
	if nilSession.HasActivity() {
		t.Errorf("HasActivity() = true for a nil session")
	}
}

func TestSession_Clone(t *testing.T) {
	now := time.Now()
	original := &Session{
		ID: "session-123",
		History: []*Message{
			{ID: "m1", Role: RoleUser, Text: "hi", CreatedAt: now},
		},
		Plan: ManualPlan{Entries: []PlanEntry{
			{AgentID: "granny", Enabled: true, Tools: []ToolBinding{{ToolID: "web_search"}}},
		}},
		Metadata:  map[string]any{"k": "v"},
		CreatedAt: now,
	}

	clone := original.Clone()

	clone.History[0].Text = "mutated"
	clone.Plan.Entries[0].Tools[0].ToolID = "knowledgebase"
	clone.Metadata["k"] = "mutated"

	if original.History[0].Text != "hi" {
		t.Errorf("cloning mutated original history text, got %q", original.History[0].Text)
	}
	if original.Plan.Entries[0].Tools[0].ToolID != "web_search" {
		t.Errorf("cloning mutated original plan tool binding, got %q", original.Plan.Entries[0].Tools[0].ToolID)
	}
	if original.Metadata["k"] != "v" {
		t.Errorf("cloning mutated original metadata, got %v", original.Metadata["k"])
	}
}

func TestManualPlan_ToolBinding(t *testing.T) {
	plan := ManualPlan{Entries: []PlanEntry{
		{AgentID: "data_analyst", Enabled: true, Tools: []ToolBinding{
			{ToolID: "knowledgebase", Option: "pricing"},
		}},
	}}
	if len(plan.Entries) != 1 {
		t.Fatalf("Entries length = %d, want 1", len(plan.Entries))
	}
	if plan.Entries[0].Tools[0].Option != "pricing" {
		t.Errorf("Option = %q, want %q", plan.Entries[0].Tools[0].Option, "pricing")
	}
}
