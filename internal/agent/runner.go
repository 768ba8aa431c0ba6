package agent

import (
	"context"
	"fmt"

	"github.com/haasonsaas/conductor/pkg/models"
)

// historyPlaceholder replaces elided older turns in the composed prompt
// (spec.md §4.6 step 6).
const historyPlaceholder = "[earlier conversation summarized and omitted]"

// RunContext is everything the Agent Runner composes into one LLM call
// (spec.md §4.6): the agent's own definition, the tool outputs gathered
// for it, any prior agent's output in a sequence, the context-fusion
// directive, the current user prompt, and the bounded history window.
type RunContext struct {
	Agent         models.AgentDefinition
	ToolsContext  []models.ToolOutput
	PriorOutput   string
	ContextFusion models.ContextFusion
	Prompt        string
	History       []*models.Message
	HistoryWindow int
}

// RunResult is the aggregated outcome of a blocking run.
type RunResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Runner invokes one LLM-backed agent with a composed context and
// streams or aggregates its output (spec.md §4.6: C6).
type Runner struct {
	provider LLMProvider
}

// NewRunner builds a Runner over provider.
func NewRunner(provider LLMProvider) *Runner {
	return &Runner{provider: provider}
}

// Run streams tokens for one agent turn. The returned channel is closed
// when the stream ends, whether by completion, cancellation, or error;
// the final chunk on any path carries Done (and Error, if one occurred).
// Run never commits history itself: the caller (C7) decides whether to
// commit an assistant message, based on whether cancellation fired
// before Done (spec.md §4.6).
func (r *Runner) Run(ctx context.Context, rc RunContext) (<-chan *CompletionChunk, error) {
	req := buildCompletionRequest(rc)
	chunks, err := r.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("agent runner: %s: %w", rc.Agent.ID, err)
	}
	return chunks, nil
}

// RunBlocking drains Run to completion and returns the aggregated text.
// If ctx is cancelled before the stream completes, RunBlocking returns
// ctx.Err() and no partial text, so the caller never commits a partial
// assistant message to history (spec.md §4.6).
func (r *Runner) RunBlocking(ctx context.Context, rc RunContext) (*RunResult, error) {
	chunks, err := r.Run(ctx, rc)
	if err != nil {
		return nil, err
	}

	var result RunResult
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return &result, nil
			}
			if chunk.Error != nil {
				return nil, fmt.Errorf("agent runner: %s: %w", rc.Agent.ID, chunk.Error)
			}
			result.Text += chunk.Text
			if chunk.Done {
				result.InputTokens = chunk.InputTokens
				result.OutputTokens = chunk.OutputTokens
				return &result, nil
			}
		}
	}
}

// buildCompletionRequest composes the six-part LLM input in the exact
// order spec.md §4.6 specifies.
func buildCompletionRequest(rc RunContext) *CompletionRequest {
	var userContent string

	// 2. tool-output prefix
	if prefix := renderToolsPrefix(rc.ToolsContext); prefix != "" {
		userContent += prefix + "\n\n"
	}

	// 3. prior-agent output
	if rc.PriorOutput != "" {
		userContent += fmt.Sprintf("Prior agent output:\n%s\n\n", rc.PriorOutput)
	}

	// 4. context-fusion directive
	if directive := fusionDirective(rc.ContextFusion); directive != "" {
		userContent += directive + "\n\n"
	}

	// 5. current user prompt
	userContent += rc.Prompt

	messages := renderHistory(rc.History, rc.HistoryWindow)
	messages = append(messages, CompletionMessage{Role: "user", Content: userContent})

	return &CompletionRequest{
		Model:     rc.Agent.Parameters.Model,
		System:    rc.Agent.SystemPrompt, // 1. system prompt
		Messages:  messages,
		MaxTokens: rc.Agent.Parameters.MaxTokens,
	}
}

// renderToolsPrefix builds the structured tool-output section: one block
// per tool, each naming the tool, the query run, and the result text,
// with a hint it was gathered for the current agent (spec.md §4.6 step 2).
func renderToolsPrefix(tools []models.ToolOutput) string {
	if len(tools) == 0 {
		return ""
	}
	out := "Tool results gathered for you:\n"
	for _, t := range tools {
		if t.Error {
			out += fmt.Sprintf("- %s (query: %q): error — %s\n", t.ToolID, t.Query, t.Text)
			continue
		}
		out += fmt.Sprintf("- %s (query: %q): %s\n", t.ToolID, t.Query, t.Text)
	}
	return out
}

func fusionDirective(f models.ContextFusion) string {
	switch f {
	case models.FusionPersonaStorytelling:
		return "Integrate the facts above into a warm, grandmotherly voice, weaving them naturally into your own telling."
	case models.FusionHumorIntegration:
		return "Use the material above as fodder for your comedic voice; keep it sharp and on-theme."
	case models.FusionFactualIntegration:
		return "Answer directly and precisely, grounding your response in the gathered facts."
	case models.FusionNarrativeIntegration:
		return "Weave the gathered context into your response as part of a coherent narrative."
	default:
		return ""
	}
}

// renderHistory returns the last window messages as completion messages;
// older turns are replaced with a single elision placeholder (spec.md
// §4.6 step 6).
func renderHistory(history []*models.Message, window int) []CompletionMessage {
	if window <= 0 {
		window = 20
	}
	if len(history) <= window {
		return messagesToCompletion(history)
	}

	elided := len(history) - window
	out := make([]CompletionMessage, 0, window+1)
	out = append(out, CompletionMessage{Role: "system", Content: fmt.Sprintf("%s (%d messages)", historyPlaceholder, elided)})
	out = append(out, messagesToCompletion(history[elided:])...)
	return out
}

func messagesToCompletion(history []*models.Message) []CompletionMessage {
	out := make([]CompletionMessage, 0, len(history))
	for _, m := range history {
		out = append(out, CompletionMessage{Role: completionRole(m.Role), Content: m.Text})
	}
	return out
}

// completionRole maps a session Role onto the three roles a completion
// request understands.
func completionRole(role models.Role) string {
	switch {
	case role == models.RoleUser:
		return "user"
	case role == models.RoleSystem || role == models.RoleSupervisor:
		return "system"
	default:
		if _, ok := role.IsTool(); ok {
			return "tool"
		}
		// agent:<id> roles are prior assistant turns.
		return "assistant"
	}
}
