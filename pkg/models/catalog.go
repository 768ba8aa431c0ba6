package models

// AgentParameters controls generation behavior for an agent.
type AgentParameters struct {
	Temperature float64 `json:"temperature,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// AgentDefinition is one entry in the agent catalog (spec.md §3, §6).
type AgentDefinition struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	SystemPrompt    string          `json:"system_prompt"`
	Capabilities    []string        `json:"capabilities,omitempty"`
	Skills          []string        `json:"skills,omitempty"`
	Parameters      AgentParameters `json:"parameters,omitempty"`
	RoutingKeywords []string        `json:"routing_keywords,omitempty"`
	Active          bool            `json:"active"`
	Category        string          `json:"category,omitempty"`
	Version         string          `json:"version,omitempty"`
}

// ToolDefinition is one entry in the tool catalog. The closed set of tool
// ids is exactly "web_search" and "knowledgebase" (spec.md §3).
type ToolDefinition struct {
	ID                 string   `json:"id"`
	Description        string   `json:"description"`
	UseCases           []string `json:"use_cases,omitempty"`
	RelevanceThreshold float64  `json:"relevance_threshold"`
	FallbackPolicy     string   `json:"fallback_policy,omitempty"`
}

// AgentCatalogDocument is the top-level shape of the agent catalog JSON
// file (spec.md §6).
type AgentCatalogDocument struct {
	Agents   []AgentDefinition `json:"agents"`
	Skills   []string          `json:"skills,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// KnowledgeDocument is one entry in the knowledge catalog: a sub-document
// key and the body text the knowledgebase tool matches against.
type KnowledgeDocument struct {
	Key      string   `json:"key"`
	Title    string   `json:"title,omitempty"`
	Body     string   `json:"body"`
	Keywords []string `json:"keywords,omitempty"`
}

// KnowledgeCatalogDocument is the top-level shape of the knowledge
// catalog JSON file.
type KnowledgeCatalogDocument struct {
	Documents []KnowledgeDocument `json:"documents"`
}
