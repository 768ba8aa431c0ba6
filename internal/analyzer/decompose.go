package analyzer

import (
	"github.com/haasonsaas/conductor/internal/catalog"
	"github.com/haasonsaas/conductor/pkg/models"
)

// decompose turns detected intents and entities into an ordered list of
// QueryComponents, resolving every AGENT component's resource id via
// scoring (spec.md §4.4 steps 3-5).
func decompose(prompt string, intents []IntentMatch, entities Entities, registry *catalog.Registry, knowledge *catalog.KnowledgeRegistry, defaultAgent string) []models.QueryComponent {
	var components []models.QueryComponent
	agentEmitted := false

	seq := DetectSequence(prompt)
	if seq.Detected {
		agents := registry.List()
		analyticID := SelectAgent(agents, prompt, IntentCurrentEvents, defaultAgent)
		personaID := defaultAgent
		if id, ok := ResolvePersonaAgent(seq.PersonaName); ok {
			if _, exists := registry.Get(id); exists {
				personaID = id
			} else {
				personaID = SelectAgent(agents, prompt, IntentCultural, defaultAgent)
			}
		} else {
			personaID = SelectAgent(agents, prompt, IntentCultural, defaultAgent)
		}

		components = append(components,
			models.QueryComponent{
				Text:       prompt,
				Intent:     IntentCurrentEvents,
				Kind:       models.ResourceAgent,
				ResourceID: analyticID,
				Priority:   1,
				Entities:   entities,
			},
			models.QueryComponent{
				Text:       prompt,
				Intent:     IntentCultural,
				Kind:       models.ResourceAgent,
				ResourceID: personaID,
				Priority:   1,
				Entities:   entities,
				DependsOn:  []int{0},
			},
		)
		agentEmitted = true
	} else {
		agents := registry.List()

		if HasIntent(intents, IntentHumor) {
			components = append(components, models.QueryComponent{
				Text:       prompt,
				Intent:     "humor_creation",
				Kind:       models.ResourceAgent,
				ResourceID: SelectAgent(agents, prompt, IntentHumor, defaultAgent),
				Priority:   1,
				Entities:   entities,
			})
			agentEmitted = true
		}

		if HasIntent(intents, IntentRecipe) {
			intentTag := "recipe"
			if HasCulturalHints(prompt) {
				intentTag = "recipe_with_tradition"
			}
			components = append(components, models.QueryComponent{
				Text:       prompt,
				Intent:     intentTag,
				Kind:       models.ResourceAgent,
				ResourceID: SelectAgent(agents, prompt, IntentRecipe, defaultAgent),
				Priority:   1,
				Entities:   entities,
			})
			agentEmitted = true
		}
	}

	// Current-information cues fire independently per matching intent: a
	// prompt carrying both a weather cue and a "today" cue surfaces two
	// TOOL components, which is what pushes a component count of 3+ into
	// the hierarchical strategy (spec.md §4.4 steps 3, 6).
	if HasIntent(intents, IntentWeather) {
		components = append(components, models.QueryComponent{
			Text:       prompt,
			Intent:     IntentWeather,
			Kind:       models.ResourceTool,
			ResourceID: "web_search",
			Priority:   2,
			Entities:   entities,
		})
	}
	if HasIntent(intents, IntentCurrentEvents) {
		components = append(components, models.QueryComponent{
			Text:       prompt,
			Intent:     IntentCurrentEvents,
			Kind:       models.ResourceTool,
			ResourceID: "web_search",
			Priority:   2,
			Entities:   entities,
		})
	}

	if knowledge != nil {
		if key, ok := MatchKnowledgeTerm(prompt, knowledgeKeywordIndex(knowledge)); ok {
			components = append(components, models.QueryComponent{
				Text:       prompt,
				Intent:     "knowledge_lookup",
				Kind:       models.ResourceKnowledge,
				ResourceID: key,
				Priority:   2,
				Entities:   entities,
			})
		}
	}

	if !agentEmitted {
		components = append(components, models.QueryComponent{
			Text:       prompt,
			Intent:     IntentStorytelling,
			Kind:       models.ResourceAgent,
			ResourceID: SelectAgent(registry.List(), prompt, IntentStorytelling, defaultAgent),
			Priority:   1,
			Entities:   entities,
		})
	}

	return components
}

func knowledgeKeywordIndex(knowledge *catalog.KnowledgeRegistry) map[string][]string {
	out := make(map[string][]string)
	for _, doc := range knowledge.Documents() {
		out[doc.Key] = doc.Keywords
	}
	return out
}
