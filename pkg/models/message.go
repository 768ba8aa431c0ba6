package models

import (
	"strings"
	"time"
)

// ChannelType identifies the transport a session originated on. The
// orchestrator core is transport-agnostic; api is the only channel the
// Session API itself produces, but the field is kept open-ended so an
// embedder can tag sessions from elsewhere.
type ChannelType string

const ChannelAPI ChannelType = "api"

// Role identifies the sender of a Message. The closed set is
// {user, agent:<agent-id>, tool:<tool-id>, supervisor, system}; agent and
// tool roles carry a dynamic id suffix, so Role is a string type with
// constructors and parsers rather than a fixed const enum.
type Role string

const (
	RoleUser       Role = "user"
	RoleSupervisor Role = "supervisor"
	RoleSystem     Role = "system"

	agentRolePrefix = "agent:"
	toolRolePrefix  = "tool:"
)

// AgentRole builds the Role for a message authored by the given agent.
func AgentRole(agentID string) Role {
	return Role(agentRolePrefix + agentID)
}

// ToolRole builds the Role for a message authored by the given tool.
func ToolRole(toolID string) Role {
	return Role(toolRolePrefix + toolID)
}

// IsAgent reports whether the role is an agent:<id> role and returns the id.
func (r Role) IsAgent() (string, bool) {
	s := string(r)
	if strings.HasPrefix(s, agentRolePrefix) {
		return strings.TrimPrefix(s, agentRolePrefix), true
	}
	return "", false
}

// IsTool reports whether the role is a tool:<id> role and returns the id.
func (r Role) IsTool() (string, bool) {
	s := string(r)
	if strings.HasPrefix(s, toolRolePrefix) {
		return strings.TrimPrefix(s, toolRolePrefix), true
	}
	return "", false
}

// Valid reports whether r is one of the closed-set roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSupervisor, RoleSystem:
		return true
	}
	if _, ok := r.IsAgent(); ok {
		return true
	}
	if _, ok := r.IsTool(); ok {
		return true
	}
	return false
}

// Annotation carries structured metadata alongside a Message's free-form
// text: which tool produced it, which agent it targeted, whether it was
// generated under supervisor mode, and whether it represents an error.
type Annotation struct {
	ToolID        string `json:"tool_id,omitempty"`
	TargetAgentID string `json:"target_agent_id,omitempty"`
	ViaSupervisor bool   `json:"via_supervisor,omitempty"`
	Error         bool   `json:"error,omitempty"`
}

// IsZero reports whether the annotation carries no information, letting
// callers omit it entirely rather than serialize an empty object.
func (a Annotation) IsZero() bool {
	return a == Annotation{}
}

// Message is one immutable entry in a session's history. Once appended to
// a Session it is never mutated or removed except by whole-session
// deletion (store Delete/Cleanup).
type Message struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Role       Role       `json:"role"`
	Text       string     `json:"text"`
	Annotation Annotation `json:"annotation,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToolBinding binds a tool to a manual plan entry. Option is only
// meaningful for "knowledgebase", where it names a sub-document key.
type ToolBinding struct {
	ToolID string `json:"tool_id"`
	Option string `json:"option,omitempty"`
}

// PlanEntry is one agent slot in a ManualPlan: whether the agent
// participates in the turn, and which tools it may invoke.
type PlanEntry struct {
	AgentID string        `json:"agent_id"`
	Enabled bool          `json:"enabled"`
	Tools   []ToolBinding `json:"tools,omitempty"`
}

// ManualPlan is a user-authored ordered sequence of agent entries with
// bound tools, used when a session is not running in supervisor mode.
type ManualPlan struct {
	Entries []PlanEntry `json:"entries"`
}

// Session is a conversation: an opaque unguessable id, its ordered
// message history, a stored plan (manual pipeline or supervisor mode),
// and a creation timestamp.
type Session struct {
	ID             string         `json:"id"`
	Channel        ChannelType    `json:"channel,omitempty"`
	History        []*Message     `json:"history"`
	Plan           ManualPlan     `json:"plan"`
	SupervisorMode bool           `json:"supervisor_mode"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// HasActivity reports whether the session has at least one message or at
// least one enabled plan entry, the visibility rule List and Cleanup use
// to decide whether a session is worth keeping.
func (s *Session) HasActivity() bool {
	if s == nil {
		return false
	}
	if len(s.History) > 0 {
		return true
	}
	for _, e := range s.Plan.Entries {
		if e.Enabled {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate a returned Session
// without corrupting store-internal state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.History = make([]*Message, len(s.History))
	for i, m := range s.History {
		mc := *m
		out.History[i] = &mc
	}
	out.Plan.Entries = append([]PlanEntry(nil), s.Plan.Entries...)
	for i := range out.Plan.Entries {
		out.Plan.Entries[i].Tools = append([]ToolBinding(nil), s.Plan.Entries[i].Tools...)
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
