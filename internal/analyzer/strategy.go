package analyzer

import "github.com/haasonsaas/conductor/pkg/models"

// SelectStrategy picks the execution strategy for a decomposed plan
// (spec.md §4.4 step 6). isSequence short-circuits to
// multi_agent_sequential regardless of component count, since that
// signal is authoritative once detected.
func SelectStrategy(components []models.QueryComponent, isSequence bool) models.Strategy {
	if isSequence {
		return models.StrategyMultiAgentSequential
	}
	if len(components) >= 3 {
		return models.StrategyHierarchical
	}
	if countIndependentTools(components) > 1 {
		return models.StrategyParallel
	}
	return models.StrategySequential
}

func countIndependentTools(components []models.QueryComponent) int {
	count := 0
	for _, c := range components {
		if c.Kind == models.ResourceTool && len(c.DependsOn) == 0 {
			count++
		}
	}
	return count
}

// SelectContextFusion picks the context-fusion directive for the primary
// agent (spec.md §4.4 step 7).
func SelectContextFusion(primaryAgentID string, components []models.QueryComponent) models.ContextFusion {
	switch primaryAgentID {
	case "granny":
		return models.FusionPersonaStorytelling
	case "parody_creator":
		return models.FusionHumorIntegration
	}

	if informationOnly(components) {
		return models.FusionFactualIntegration
	}
	return models.FusionNarrativeIntegration
}

func informationOnly(components []models.QueryComponent) bool {
	sawInformation := false
	for _, c := range components {
		switch c.Intent {
		case IntentInformation, IntentCurrentEvents:
			sawInformation = true
		case IntentHumor, IntentRecipe, IntentStorytelling, IntentCultural, IntentPersonal:
			return false
		}
	}
	return sawInformation
}
