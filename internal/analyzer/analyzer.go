// Package analyzer implements the Query Analyzer (spec.md §4.4): a
// deterministic seven-stage pipeline that turns a user prompt into a
// structured ExecutionPlan for supervisor mode. Each stage is a pure
// function over the previous stage's output so the whole pipeline stays
// testable and has no hidden state between calls.
package analyzer

import (
	"fmt"

	"github.com/haasonsaas/conductor/internal/catalog"
	"github.com/haasonsaas/conductor/pkg/models"
)

// Analyzer holds the read-only catalogs the pipeline scores agents and
// matches knowledge keys against, plus the configured fallback agent.
type Analyzer struct {
	agents       *catalog.Registry
	knowledge    *catalog.KnowledgeRegistry
	defaultAgent string
}

// New builds an Analyzer. knowledge may be nil if no knowledge catalog
// was configured, in which case KNOWLEDGE components are never emitted.
func New(agents *catalog.Registry, knowledge *catalog.KnowledgeRegistry, defaultAgent string) *Analyzer {
	return &Analyzer{agents: agents, knowledge: knowledge, defaultAgent: defaultAgent}
}

// Analyze runs the seven-stage pipeline against prompt and the
// Analyzer's current registry snapshot. It is deterministic: identical
// (registry snapshot, prompt) always yields an identical plan (spec.md
// §4.4, final paragraph).
func (a *Analyzer) Analyze(prompt string) (*models.ExecutionPlan, error) {
	if prompt == "" {
		return nil, fmt.Errorf("analyzer: empty prompt")
	}

	entities := ExtractEntities(prompt)
	intents := DetectIntents(prompt)
	components := decompose(prompt, intents, entities, a.agents, a.knowledge, a.defaultAgent)

	isSequence := DetectSequence(prompt).Detected

	plan := &models.ExecutionPlan{
		Components: components,
		Strategy:   SelectStrategy(components, isSequence),
	}

	var agentIDs []string
	for _, c := range components {
		switch c.Kind {
		case models.ResourceAgent:
			agentIDs = append(agentIDs, c.ResourceID)
		case models.ResourceTool:
			plan.ToolsNeeded = append(plan.ToolsNeeded, models.ToolBinding{ToolID: c.ResourceID})
		case models.ResourceKnowledge:
			plan.KnowledgeNeeded = append(plan.KnowledgeNeeded, c.ResourceID)
		}
	}

	if len(agentIDs) == 0 {
		agentIDs = []string{a.defaultAgent}
	}
	plan.PrimaryAgent = agentIDs[len(agentIDs)-1]
	if len(agentIDs) > 1 {
		plan.AgentSequence = agentIDs
	}

	plan.ContextFusion = SelectContextFusion(plan.PrimaryAgent, components)

	return plan, nil
}
