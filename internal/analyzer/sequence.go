package analyzer

import (
	"regexp"
	"strings"
)

// handoffRegex finds a "let/have/ask <name> tell ..." persona handoff
// phrase (spec.md §4.4 step 5, e.g. "let the grandmother tell me about
// it").
var handoffRegex = regexp.MustCompile(`(?i)\b(?:let|have|ask)\s+(?:the\s+)?(\w+)\s+(?:tell|narrate|explain)\b`)

var dataGatheringCues = []string{
	"analyze", "analysis", "data", "weather", "forecast", "report", "stats", "statistics",
}

// SequenceHint describes a detected two-agent handoff: a data-gathering
// agent followed by a presentation persona (spec.md §4.4 step 5).
type SequenceHint struct {
	PersonaName string
	Detected    bool
}

// DetectSequence reports whether prompt references a data-gathering
// intent followed by an explicit presentation-persona handoff.
func DetectSequence(prompt string) SequenceHint {
	lower := strings.ToLower(prompt)

	hasDataCue := false
	for _, cue := range dataGatheringCues {
		if strings.Contains(lower, cue) {
			hasDataCue = true
			break
		}
	}
	if !hasDataCue {
		return SequenceHint{}
	}

	m := handoffRegex.FindStringSubmatch(prompt)
	if m == nil {
		return SequenceHint{}
	}
	return SequenceHint{PersonaName: strings.ToLower(m[1]), Detected: true}
}

// ResolvePersonaAgent maps a handoff persona name hint to a catalog agent
// id. "granny"/"grandmother" resolves to the cultural agent; anything
// else falls through to capability-based scoring by the caller.
func ResolvePersonaAgent(name string) (agentID string, ok bool) {
	switch name {
	case "granny", "grandmother", "grandma":
		return "granny", true
	default:
		return "", false
	}
}
