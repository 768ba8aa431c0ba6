// Package planner implements the Planner (spec.md §4.5): it maps either
// a user-authored ManualPlan or the analyzer's ExecutionPlan into a
// totally-ordered list of Steps the orchestrator executes verbatim.
package planner

import (
	"github.com/haasonsaas/conductor/internal/catalog"
	"github.com/haasonsaas/conductor/pkg/models"
)

// FromManual builds the step order for a user-authored plan: every
// enabled entry's bound tools precede that entry's agent step, in
// declaration order. An entry whose agent id no longer exists in the
// registry is skipped (spec.md §3, Manual Plan invariants).
func FromManual(plan models.ManualPlan, registry *catalog.Registry) []models.Step {
	var steps []models.Step
	for _, entry := range plan.Entries {
		if !entry.Enabled {
			continue
		}
		if _, ok := registry.Get(entry.AgentID); !ok {
			continue
		}
		for _, tb := range entry.Tools {
			steps = append(steps, models.ToolStep{ToolID: tb.ToolID, Option: tb.Option, AgentID: entry.AgentID})
		}
		steps = append(steps, models.AgentStep{AgentID: entry.AgentID})
	}
	return steps
}

// FromExecutionPlan builds the step order for a supervisor-mode plan
// (spec.md §4.5). All priority-2 resources (tools, knowledge) precede
// the agent step(s) that use them. When the plan names an agent
// sequence, a DelegationStep is inserted ahead of every agent after the
// first, and each agent step carries the previous agent's output.
func FromExecutionPlan(plan *models.ExecutionPlan) []models.Step {
	var steps []models.Step

	sequence := plan.AgentSequence
	if len(sequence) == 0 {
		sequence = []string{plan.PrimaryAgent}
	}

	for _, tb := range plan.ToolsNeeded {
		steps = append(steps, models.ToolStep{ToolID: tb.ToolID, Option: tb.Option, AgentID: sequence[0]})
	}
	for _, key := range plan.KnowledgeNeeded {
		steps = append(steps, models.ToolStep{ToolID: "knowledgebase", Option: key, AgentID: sequence[0]})
	}

	toolsContext := toolOutputPlaceholders(plan)

	var priorOutputPlaceholder string
	for i, agentID := range sequence {
		if i > 0 {
			steps = append(steps, models.DelegationStep{
				FromAgentID: sequence[i-1],
				ToAgentID:   agentID,
				Narrative:   "Handing off to " + agentID + ".",
			})
		}
		step := models.AgentStep{
			AgentID:       agentID,
			ContextFusion: plan.ContextFusion,
		}
		if i == 0 {
			step.ToolsContext = toolsContext
		} else {
			step.PriorAgentOutput = priorOutputPlaceholder
		}
		steps = append(steps, step)
		// The actual prior-agent text is filled in by the orchestrator
		// once the agent has run; this placeholder only fixes the slot.
		priorOutputPlaceholder = ""
	}

	return steps
}

// toolOutputPlaceholders reserves a ToolOutput slot per needed tool/
// knowledge resource; the orchestrator fills in Text/Error once C2 runs.
func toolOutputPlaceholders(plan *models.ExecutionPlan) []models.ToolOutput {
	out := make([]models.ToolOutput, 0, len(plan.ToolsNeeded)+len(plan.KnowledgeNeeded))
	for _, tb := range plan.ToolsNeeded {
		out = append(out, models.ToolOutput{ToolID: tb.ToolID})
	}
	for _, key := range plan.KnowledgeNeeded {
		out = append(out, models.ToolOutput{ToolID: "knowledgebase", Query: key})
	}
	return out
}
