package analyzer

import "strings"

// Intent names used as QueryComponent.Intent and for context-fusion
// selection (spec.md §4.4 steps 2, 7).
const (
	IntentHumor         = "humor"
	IntentRecipe        = "recipe"
	IntentWeather       = "weather"
	IntentStorytelling  = "storytelling"
	IntentInformation   = "information"
	IntentCurrentEvents = "current_events"
	IntentCultural      = "cultural"
	IntentPersonal      = "personal"
)

// intentKeywords is the prioritized pattern table: the high-priority
// group (humor, recipe, weather) is checked first, then the
// second-priority group (spec.md §4.4 step 2).
var intentPriorityGroups = [][]string{
	{IntentHumor, IntentRecipe, IntentWeather},
	{IntentStorytelling, IntentInformation, IntentCurrentEvents, IntentCultural, IntentPersonal},
}

var intentKeywords = map[string][]string{
	IntentHumor:         {"funny", "parody", "joke", "satire", "humor", "humour", "comedic", "hilarious"},
	IntentRecipe:        {"recipe", "how do i make", "how to cook", "cook", "soup", "dish", "ingredients", "ciorba"},
	IntentWeather:       {"weather", "forecast", "temperature", "rain", "sunny", "snow", "degrees"},
	IntentStorytelling:  {"tell me a story", "story about", "narrate", "once upon", "bedtime story"},
	IntentInformation:   {"what is", "explain", "information", "tell me about", "analyze", "analysis"},
	IntentCurrentEvents: {"today", "now", "latest", "news", "current", "this week", "right now"},
	IntentCultural:      {"traditional", "tradition", "romanian", "cultural", "heritage", "grandmother", "granny"},
	IntentPersonal:      {"i feel", "advice", "my life", "personally", "for me"},
}

// IntentMatch is one detected intent with the keywords that triggered it,
// kept for traceability (spec.md §4.4 step 2).
type IntentMatch struct {
	Intent   string
	Keywords []string
}

// DetectIntents runs the prioritized keyword pass over prompt and returns
// every matching intent, ordered by priority group then declaration
// order within the group.
func DetectIntents(prompt string) []IntentMatch {
	lower := strings.ToLower(prompt)
	var matches []IntentMatch

	for _, group := range intentPriorityGroups {
		for _, intent := range group {
			var hit []string
			for _, kw := range intentKeywords[intent] {
				if strings.Contains(lower, kw) {
					hit = append(hit, kw)
				}
			}
			if len(hit) > 0 {
				matches = append(matches, IntentMatch{Intent: intent, Keywords: hit})
			}
		}
	}
	return matches
}

// HasIntent reports whether matches contains the given intent.
func HasIntent(matches []IntentMatch, intent string) bool {
	for _, m := range matches {
		if m.Intent == intent {
			return true
		}
	}
	return false
}
