// Package tools implements the Tool Runtime (spec.md §4.2): relevance
// heuristics, query generation, and bounded, cached execution for the two
// built-in tools, web_search and knowledgebase.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/conductor/internal/catalog"
	"github.com/haasonsaas/conductor/internal/tools/websearch"
	"github.com/haasonsaas/conductor/pkg/models"
)

const (
	ToolWebSearch  = "web_search"
	ToolKnowledge  = "knowledgebase"
	defaultTimeout = 15 * time.Second
)

// Outcome classifies a MaybeRun result (spec.md §4.2).
type Outcome string

const (
	Used    Outcome = "used"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// Result is the outcome of a single tool invocation.
type Result struct {
	Outcome    Outcome
	Query      string
	Text       string
	Reason     string
	Error      error
	ForAgentID string
	Confidence float64
}

// Runner executes a single bound tool invocation. web_search and
// knowledgebase each implement it.
type Runner interface {
	// Relevant decides whether prompt warrants running this tool, and
	// if so returns the focused query to run it with.
	Relevant(prompt, option string) (query string, ok bool)
	// Run executes the tool for query/option and returns result text.
	Run(ctx context.Context, query, option string) (string, error)
}

// Runtime is the Tool Runtime (C2): it owns the built-in tool runners, a
// turn-local result cache, and the per-call timeout.
type Runtime struct {
	runners map[string]Runner
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]Result
}

// NewRuntime builds a Runtime. searchTool may be nil when WEB_SEARCH_API_KEY
// is absent (spec.md §6), in which case web_search always skips.
func NewRuntime(searchTool *websearch.WebSearchTool, knowledge *catalog.KnowledgeRegistry, timeout time.Duration) *Runtime {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runners := map[string]Runner{
		ToolKnowledge: &knowledgeRunner{registry: knowledge},
	}
	if searchTool != nil {
		runners[ToolWebSearch] = &webSearchRunner{tool: searchTool}
	}
	return &Runtime{runners: runners, timeout: timeout, cache: make(map[string]Result)}
}

// Reset clears the turn-local result cache. Call once at the start of
// every turn (spec.md §5: "turn-local tool-result cache is not shared
// across turns or sessions").
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]Result)
}

func cacheKey(toolID, prompt, option string) string {
	return toolID + "\x00" + option + "\x00" + prompt
}

// MaybeRun decides relevance, runs the tool if relevant, and returns the
// outcome. Two calls within a turn with identical (toolID, prompt, option)
// return the cached result unchanged (spec.md §4.2, §8).
func (r *Runtime) MaybeRun(ctx context.Context, toolID, prompt, option, forAgentID string) Result {
	key := cacheKey(toolID, prompt, option)

	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		r.mu.Unlock()
		cached.ForAgentID = forAgentID
		return cached
	}
	r.mu.Unlock()

	result := r.run(ctx, toolID, prompt, option, forAgentID)

	r.mu.Lock()
	r.cache[key] = result
	r.mu.Unlock()
	return result
}

func (r *Runtime) run(ctx context.Context, toolID, prompt, option, forAgentID string) Result {
	runner, ok := r.runners[toolID]
	if !ok {
		return Result{Outcome: Skipped, Reason: fmt.Sprintf("unknown tool %q", toolID), ForAgentID: forAgentID}
	}

	query, relevant := runner.Relevant(prompt, option)
	if !relevant {
		return Result{Outcome: Skipped, Reason: "not relevant to prompt", ForAgentID: forAgentID}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := runner.Run(ctx, query, option)
	if err != nil {
		return Result{Outcome: Failed, Query: query, Error: err, ForAgentID: forAgentID}
	}
	return Result{Outcome: Used, Query: query, Text: text, ForAgentID: forAgentID}
}

// webSearchRunner adapts the web_search tool to the Runner interface,
// applying the temporal/current-information relevance heuristic
// (spec.md §4.2).
type webSearchRunner struct {
	tool *websearch.WebSearchTool
}

var currentInfoCues = []string{
	"today", "now", "latest", "weather", "news", "price", "current",
	"currently", "this week", "right now", "up to date", "recent",
}

func (w *webSearchRunner) Relevant(prompt, _ string) (string, bool) {
	lower := strings.ToLower(prompt)
	matched := false
	for _, cue := range currentInfoCues {
		if strings.Contains(lower, cue) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}
	return buildSearchQuery(prompt), true
}

func (w *webSearchRunner) Run(ctx context.Context, query, _ string) (string, error) {
	params, err := json.Marshal(websearch.SearchParams{Query: query, Type: websearch.SearchTypeWeb})
	if err != nil {
		return "", err
	}
	result, err := w.tool.Execute(ctx, params)
	if err != nil {
		return "", err
	}
	if result.IsError {
		return "", fmt.Errorf("web_search: %s", result.Content)
	}
	return result.Content, nil
}

// knowledgeRunner adapts the knowledgebase tool: a conservative
// domain-term match against the requested (or best-matching) document's
// keywords (spec.md §4.2).
type knowledgeRunner struct {
	registry *catalog.KnowledgeRegistry
}

func (k *knowledgeRunner) Relevant(prompt, option string) (string, bool) {
	if k.registry == nil {
		return "", false
	}
	lower := strings.ToLower(prompt)

	if option != "" {
		doc, ok := k.registry.Get(option)
		if !ok {
			return "", false
		}
		if matchesKeywords(lower, doc) {
			return option, true
		}
		return "", false
	}

	for _, doc := range k.registry.Documents() {
		if matchesKeywords(lower, doc) {
			return doc.Key, true
		}
	}
	return "", false
}

func matchesKeywords(lowerPrompt string, doc models.KnowledgeDocument) bool {
	for _, kw := range doc.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lowerPrompt, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (k *knowledgeRunner) Run(_ context.Context, _, option string) (string, error) {
	doc, ok := k.registry.Get(option)
	if !ok {
		return "", fmt.Errorf("knowledgebase: unknown key %q", option)
	}
	return doc.Body, nil
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "what's": true, "what": true, "in": true, "on": true,
	"at": true, "to": true, "of": true, "and": true, "can": true, "tell": true,
	"me": true, "about": true, "it": true, "i": true,
}

// buildSearchQuery combines extracted entities with the raw prompt,
// falling back to the prompt minus stop words when nothing extractable
// stands out (spec.md §4.2).
func buildSearchQuery(prompt string) string {
	words := strings.Fields(prompt)
	var kept []string
	for _, w := range words {
		trimmed := strings.Trim(w, ".,!?;:\"'")
		if trimmed == "" {
			continue
		}
		if stopWords[strings.ToLower(trimmed)] {
			continue
		}
		kept = append(kept, trimmed)
	}
	if len(kept) == 0 {
		return prompt
	}
	return strings.Join(kept, " ")
}
