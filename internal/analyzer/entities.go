package analyzer

import (
	"regexp"
	"strings"
)

// entityCategory names match models.QueryComponent.Entities keys exactly
// (spec.md §4.4 step 1).
const (
	catLocations  = "locations"
	catDates      = "dates"
	catPeople     = "people"
	catOrgs       = "organizations"
	catProducts   = "products"
	catEvents     = "events"
	catConcepts   = "key_concepts"
)

// Entity dictionaries are curated rather than model-driven: spec.md §4.4
// step 1 prefers an NER model but explicitly allows "a curated dictionary
// plus regex for dates" as the fallback, and that fallback is what ships
// here.
var (
	knownLocations = []string{
		"bucharest", "romania", "transylvania", "boston", "new york",
		"london", "paris", "berlin", "chicago", "seattle",
	}
	knownOrganizations = []string{
		"linkedin", "twitter", "facebook", "google", "amazon", "microsoft",
	}
	knownProducts = []string{
		"iphone", "android", "tesla", "playstation", "xbox",
	}
	knownEvents = []string{
		"wedding", "conference", "launch", "festival", "olympics", "election",
	}
	culturalTerms = []string{
		"traditional", "tradition", "romanian", "cultural", "heritage",
		"grandmother", "granny", "old world", "ciorba",
	}
	knowledgeTerms = []string{
		"ciorba", "sarmale", "mici", "papanasi",
	}
	conceptWords = []string{
		"recipe", "weather", "parody", "story", "humor", "data", "analysis",
		"news", "forecast", "advice",
	}
)

var (
	dateWordRegex = regexp.MustCompile(`(?i)\b(today|now|tonight|tomorrow|yesterday|this week|last week|next week|this morning|this month|monday|tuesday|wednesday|thursday|friday|saturday|sunday|january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	personRegex   = regexp.MustCompile(`\b([A-Z][a-z]+(?: [A-Z][a-z]+)?)\b`)
)

// Entities groups extracted terms by category, mirroring
// models.QueryComponent.Entities.
type Entities map[string][]string

// ExtractEntities scans prompt for the seven entity categories spec.md
// §4.4 names. Matching is case-insensitive; extracted values preserve the
// original surface casing from the prompt where possible.
func ExtractEntities(prompt string) Entities {
	lower := strings.ToLower(prompt)
	out := Entities{}

	addDictionaryMatches(out, catLocations, lower, knownLocations)
	addDictionaryMatches(out, catOrgs, lower, knownOrganizations)
	addDictionaryMatches(out, catProducts, lower, knownProducts)
	addDictionaryMatches(out, catEvents, lower, knownEvents)

	for _, m := range dateWordRegex.FindAllString(prompt, -1) {
		out[catDates] = appendUnique(out[catDates], strings.ToLower(m))
	}

	for _, m := range personRegex.FindAllString(prompt, -1) {
		lowerM := strings.ToLower(m)
		if isKnownTerm(lowerM, knownLocations) || isKnownTerm(lowerM, knownOrganizations) {
			continue
		}
		if isSentenceStartArtifact(prompt, m) {
			continue
		}
		out[catPeople] = appendUnique(out[catPeople], m)
	}

	for _, w := range conceptWords {
		if strings.Contains(lower, w) {
			out[catConcepts] = appendUnique(out[catConcepts], w)
		}
	}

	return out
}

func addDictionaryMatches(out Entities, category, lowerPrompt string, dict []string) {
	for _, term := range dict {
		if strings.Contains(lowerPrompt, term) {
			out[category] = appendUnique(out[category], term)
		}
	}
}

func isKnownTerm(lower string, dict []string) bool {
	for _, term := range dict {
		if term == lower {
			return true
		}
	}
	return false
}

// isSentenceStartArtifact filters out capitalized words that are merely
// the first word of a sentence (common false positive for a naive
// capitalization-based person detector).
func isSentenceStartArtifact(prompt, match string) bool {
	idx := strings.Index(prompt, match)
	if idx <= 0 {
		return idx == 0
	}
	prefix := strings.TrimRight(prompt[:idx], " ")
	return prefix == "" || strings.HasSuffix(prefix, ".") || strings.HasSuffix(prefix, "?") || strings.HasSuffix(prefix, "!")
}

func appendUnique(slice []string, val string) []string {
	for _, v := range slice {
		if v == val {
			return slice
		}
	}
	return append(slice, val)
}

// HasCulturalHints reports whether the prompt carries a cultural/heritage
// cue (spec.md §4.4 step 3, recipe_with_tradition).
func HasCulturalHints(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, term := range culturalTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// MatchKnowledgeTerm returns the first domain-specific term in prompt that
// conservatively matches a knowledge document's keywords (spec.md §4.2,
// §4.4 step 3): at least one domain-specific term, not a generic word.
func MatchKnowledgeTerm(prompt string, keywordsByKey map[string][]string) (key string, ok bool) {
	lower := strings.ToLower(prompt)
	for k, keywords := range keywordsByKey {
		for _, kw := range keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				return k, true
			}
		}
	}
	return "", false
}
