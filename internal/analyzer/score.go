package analyzer

import (
	"strings"

	"github.com/haasonsaas/conductor/pkg/models"
)

// Scoring weights (spec.md §4.4 step 4).
const (
	weightKeyword    = 2.0
	weightCapability = 1.5
	weightIntent     = 10.0
	weightNameHint   = 5.0
)

// intentCapabilityTags maps an intent to the capability/skill tags that
// count toward an agent's capability-hit score for that intent.
var intentCapabilityTags = map[string][]string{
	IntentHumor:         {"humor", "comedy", "parody"},
	IntentRecipe:        {"cooking", "recipe", "culinary"},
	IntentWeather:       {"weather", "forecasting"},
	IntentStorytelling:  {"storytelling", "narrative"},
	IntentInformation:   {"information", "analysis", "research"},
	IntentCurrentEvents: {"current_events", "news", "research"},
	IntentCultural:      {"cultural", "tradition", "storytelling"},
	IntentPersonal:      {"personal", "advice"},
}

// ScoreAgent computes an agent's score for the given prompt and intent
// per the exact weighted formula in spec.md §4.4 step 4.
func ScoreAgent(agentDef models.AgentDefinition, prompt, intent string) float64 {
	lower := strings.ToLower(prompt)

	var keywordHits int
	for _, kw := range agentDef.RoutingKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			keywordHits++
		}
	}

	var capabilityHits int
	tags := intentCapabilityTags[intent]
	for _, tag := range allTags(agentDef) {
		for _, want := range tags {
			if strings.EqualFold(tag, want) {
				capabilityHits++
			}
		}
	}

	var intentMatch float64
	if capabilityHits > 0 || containsFold(agentDef.Skills, intent) || containsFold(agentDef.Capabilities, intent) {
		intentMatch = 1
	}

	var nameHint float64
	if agentDef.ID != "" && strings.Contains(lower, strings.ToLower(agentDef.ID)) {
		nameHint = 1
	} else if agentDef.Name != "" && strings.Contains(lower, strings.ToLower(agentDef.Name)) {
		nameHint = 1
	}

	return float64(keywordHits)*weightKeyword +
		float64(capabilityHits)*weightCapability +
		intentMatch*weightIntent +
		nameHint*weightNameHint
}

func allTags(a models.AgentDefinition) []string {
	out := make([]string, 0, len(a.Capabilities)+len(a.Skills))
	out = append(out, a.Capabilities...)
	out = append(out, a.Skills...)
	return out
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// SelectAgent scores every active agent in declaration order and returns
// the id with the highest non-zero score, ties broken by declaration
// order (the order List already returns them in). If no agent scores
// above zero, defaultAgent is returned.
func SelectAgent(agents []models.AgentDefinition, prompt, intent, defaultAgent string) string {
	best := ""
	bestScore := 0.0
	for _, a := range agents {
		s := ScoreAgent(a, prompt, intent)
		if s > bestScore {
			bestScore = s
			best = a.ID
		}
	}
	if best == "" {
		return defaultAgent
	}
	return best
}
