package models

// ResourceKind classifies what a QueryComponent resolved to.
type ResourceKind string

const (
	ResourceAgent     ResourceKind = "AGENT"
	ResourceTool      ResourceKind = "TOOL"
	ResourceKnowledge ResourceKind = "KNOWLEDGE"
)

// QueryComponent is one decomposed piece of a user query, tagged with the
// resource kind and id the analyzer resolved it to (spec.md §4.4).
type QueryComponent struct {
	Text         string         `json:"text"`
	Intent       string         `json:"intent"`
	Kind         ResourceKind   `json:"kind"`
	ResourceID   string         `json:"resource_id"`
	Priority     int            `json:"priority"`
	Entities     map[string][]string `json:"entities,omitempty"`
	DependsOn    []int          `json:"depends_on,omitempty"`
}

// Strategy is the analyzer's chosen execution shape (spec.md §3, §4.4).
type Strategy string

const (
	StrategySequential            Strategy = "sequential"
	StrategyHierarchical          Strategy = "hierarchical"
	StrategyParallel              Strategy = "parallel"
	StrategyMultiAgentSequential  Strategy = "multi_agent_sequential"
)

// ContextFusion is the instruction style injected into the primary agent
// telling it how to blend tool/knowledge output with its persona
// (spec.md §3, GLOSSARY).
type ContextFusion string

const (
	FusionPersonaStorytelling ContextFusion = "persona_integrated_storytelling"
	FusionHumorIntegration    ContextFusion = "humor_integration"
	FusionFactualIntegration  ContextFusion = "factual_integration"
	FusionNarrativeIntegration ContextFusion = "narrative_integration"
)

// ExecutionPlan is the analyzer's output in supervisor mode: the
// decomposed components, the ordered agent sequence, the chosen
// execution strategy, and the chosen context-fusion directive
// (spec.md §4.4).
type ExecutionPlan struct {
	Components      []QueryComponent `json:"components"`
	Strategy        Strategy         `json:"strategy"`
	PrimaryAgent    string           `json:"primary_agent"`
	ToolsNeeded     []ToolBinding    `json:"tools_needed"`
	KnowledgeNeeded []string         `json:"knowledge_needed"`
	ContextFusion   ContextFusion    `json:"context_fusion,omitempty"`
	AgentSequence   []string         `json:"agent_sequence,omitempty"`
}

// StepKind identifies which concrete Step a planner entry is.
type StepKind string

const (
	StepTool       StepKind = "tool"
	StepAgent      StepKind = "agent"
	StepDelegation StepKind = "delegation"
)

// Step is one unit of work in a turn's execution order, produced by the
// planner from either a ManualPlan or an ExecutionPlan (spec.md §4.5).
type Step interface {
	Kind() StepKind
}

// ToolStep invokes a bound tool ahead of the agent(s) that use its output.
type ToolStep struct {
	ToolID  string
	Option  string
	AgentID string
}

func (ToolStep) Kind() StepKind { return StepTool }

// AgentStep runs a single agent's turn with whatever tool output and
// prior-agent output accumulated ahead of it (spec.md §4.5, §4.6).
type AgentStep struct {
	AgentID          string
	ToolsContext     []ToolOutput
	PriorAgentOutput string
	ContextFusion    ContextFusion
}

func (AgentStep) Kind() StepKind { return StepAgent }

// ToolOutput is one tool's result, carried on an AgentStep so the agent
// runner can compose it into the tool-output prefix (spec.md §4.6).
type ToolOutput struct {
	ToolID string
	Query  string
	Text   string
	Error  bool
}

// DelegationStep narrates and hands a turn from one agent to the next in
// a multi-agent sequence (spec.md §4.5, §9).
type DelegationStep struct {
	FromAgentID string
	ToAgentID   string
	Narrative   string
}

func (DelegationStep) Kind() StepKind { return StepDelegation }
