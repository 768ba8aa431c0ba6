// Package orchestrator implements the turn algorithm (spec.md §4.7, C7):
// append the user message, choose a mode and build a plan, execute the
// plan's steps in order emitting stream events as it goes, and close out
// the turn with exactly one committed outcome message.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/analyzer"
	"github.com/haasonsaas/conductor/internal/catalog"
	"github.com/haasonsaas/conductor/internal/observability"
	"github.com/haasonsaas/conductor/internal/planner"
	"github.com/haasonsaas/conductor/internal/sessions"
	"github.com/haasonsaas/conductor/internal/tools"
	"github.com/haasonsaas/conductor/pkg/models"
)

// Config controls turn-level timeouts and concurrency policy (spec.md §5).
type Config struct {
	TurnTimeout   time.Duration
	AgentTimeout  time.Duration
	HistoryWindow int
	QueueOnBusy   bool
	DefaultAgent  string

	// Tracer emits OpenTelemetry spans around the turn, each agent run,
	// and each tool execution when set; nil disables tracing entirely.
	Tracer *observability.Tracer
}

// Orchestrator wires the registry, analyzer, planner, tool runtime, and
// agent runner into one turn-processing core over a session store.
type Orchestrator struct {
	store   sessions.Store
	locks   *sessions.SessionLockManager
	agents  *catalog.Registry
	analyze *analyzer.Analyzer
	tools   *tools.Runtime
	runner  *agent.Runner
	logger  *observability.Logger
	metrics *observability.Metrics
	cfg     Config
}

// New builds an Orchestrator.
func New(store sessions.Store, locks *sessions.SessionLockManager, agents *catalog.Registry, az *analyzer.Analyzer, rt *tools.Runtime, runner *agent.Runner, logger *observability.Logger, metrics *observability.Metrics, cfg Config) *Orchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 20
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 120 * time.Second
	}
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = 60 * time.Second
	}
	return &Orchestrator{store: store, locks: locks, agents: agents, analyze: az, tools: rt, runner: runner, logger: logger, metrics: metrics, cfg: cfg}
}

// RunTurn processes one user message against a session, returning a
// channel of stream events. The channel is closed once the turn's
// stream_end/error frame has been emitted; the caller must drain it to
// completion (spec.md §4.7, §9: channel-based cooperative streaming).
func (o *Orchestrator) RunTurn(ctx context.Context, sessionID, userText string) (<-chan models.StreamEvent, error) {
	release, err := o.acquireLock(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	events := make(chan models.StreamEvent, 16)
	go func() {
		defer release()
		defer close(events)
		o.runTurnLocked(ctx, sessionID, userText, events)
	}()
	return events, nil
}

func (o *Orchestrator) acquireLock(ctx context.Context, sessionID string) (func(), error) {
	if o.cfg.QueueOnBusy {
		release, err := o.locks.Acquire(ctx, sessionID, "turn", 0)
		if err != nil {
			if err == sessions.ErrLockTimeout {
				return nil, newTurnError(ErrorBusy, err)
			}
			return nil, newTurnError(ErrorCancelled, err)
		}
		return release, nil
	}
	release, ok := o.locks.TryAcquire(sessionID, "turn")
	if !ok {
		return nil, newTurnError(ErrorBusy, sessions.ErrBusy)
	}
	return release, nil
}

func (o *Orchestrator) runTurnLocked(ctx context.Context, sessionID, userText string, events chan<- models.StreamEvent) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.TurnTimeout)
	defer cancel()

	start := time.Now()
	outcome := "ok"
	defer func() {
		if o.metrics != nil {
			o.metrics.TurnCounter.WithLabelValues(outcome).Inc()
			o.metrics.TurnDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		}
	}()

	if o.cfg.Tracer != nil {
		var span trace.Span
		ctx, span = o.cfg.Tracer.TraceTurn(ctx, sessionID)
		defer span.End()
	}

	session, err := o.store.Get(ctx, sessionID)
	if err != nil {
		outcome = "error"
		o.emitError(events, ErrorStore, err)
		return
	}

	if userText == "" {
		outcome = "error"
		o.commitSystemError(ctx, session, events, ErrorPlan, ErrEmptyPrompt)
		return
	}

	// Step 1: append the user message.
	userMsg := &models.Message{ID: uuid.NewString(), SessionID: sessionID, Role: models.RoleUser, Text: userText, CreatedAt: time.Now()}
	session.History = append(session.History, userMsg)

	o.tools.Reset()

	// Step 2/3: choose mode, build the plan.
	steps, plan, planErr := o.buildPlan(session)
	if planErr != nil {
		outcome = "error"
		o.commitSystemError(ctx, session, events, ErrorPlan, planErr)
		return
	}
	if plan != nil {
		events <- models.StreamEvent{Type: models.StreamPlan, Plan: plan}
	}

	// Step 4: execute steps in order.
	toolOutputs := make(map[string][]models.ToolOutput) // keyed by agent id
	priorOutput := ""

	for _, step := range steps {
		switch s := step.(type) {
		case models.ToolStep:
			out := o.runToolStep(ctx, s, userText, events)
			toolOutputs[s.AgentID] = append(toolOutputs[s.AgentID], out)
			toolMsg := &models.Message{
				ID: uuid.NewString(), SessionID: sessionID, Role: models.ToolRole(s.ToolID),
				Text: out.Text, CreatedAt: time.Now(),
				Annotation: models.Annotation{ToolID: s.ToolID, TargetAgentID: s.AgentID, Error: out.Error},
			}
			session.History = append(session.History, toolMsg)

		case models.DelegationStep:
			events <- models.StreamEvent{Type: models.StreamToken, AgentID: s.ToAgentID, Text: s.Narrative}
			delegMsg := &models.Message{ID: uuid.NewString(), SessionID: sessionID, Role: models.RoleSupervisor, Text: s.Narrative, CreatedAt: time.Now()}
			session.History = append(session.History, delegMsg)

		case models.AgentStep:
			def, ok := o.agents.Get(s.AgentID)
			if !ok {
				outcome = "error"
				o.commitSystemError(ctx, session, events, ErrorCatalog, fmt.Errorf("unknown agent %q", s.AgentID))
				return
			}

			toolsContext := s.ToolsContext
			if len(toolsContext) == 0 {
				toolsContext = toolOutputs[s.AgentID]
			}
			prior := s.PriorAgentOutput
			if prior == "" {
				prior = priorOutput
			}

			text, runErr := o.runAgentStep(ctx, def, userText, toolsContext, prior, s.ContextFusion, session.History, events)
			if runErr != nil {
				outcome = "error"
				kind := ErrorProvider
				if ctx.Err() != nil {
					kind = ErrorCancelled
				}
				o.commitSystemError(ctx, session, events, kind, runErr)
				return
			}

			agentMsg := &models.Message{ID: uuid.NewString(), SessionID: sessionID, Role: models.AgentRole(s.AgentID), Text: text, CreatedAt: time.Now()}
			session.History = append(session.History, agentMsg)
			priorOutput = text
		}
	}

	session.UpdatedAt = time.Now()
	if err := o.store.Put(ctx, session); err != nil {
		outcome = "error"
		o.emitError(events, ErrorStore, err)
		return
	}
}

// buildPlan chooses manual vs supervisor mode and returns the ordered
// steps plus, in supervisor mode, the ExecutionPlan to surface in the
// "plan" stream frame (spec.md §4.7 step 2-3). A supervisor analyzer
// failure falls back to a synthesized single-agent plan rather than
// failing the turn (spec.md §4.4 Non-goals, §7).
func (o *Orchestrator) buildPlan(session *models.Session) ([]models.Step, *models.ExecutionPlan, error) {
	if !session.SupervisorMode {
		return planner.FromManual(session.Plan, o.agents), nil, nil
	}

	lastUser := lastUserText(session)
	plan, err := o.analyze.Analyze(lastUser)
	if err != nil {
		plan = &models.ExecutionPlan{
			PrimaryAgent: o.cfg.DefaultAgent,
			Strategy:     models.StrategySequential,
		}
	}
	return planner.FromExecutionPlan(plan), plan, nil
}

func lastUserText(session *models.Session) string {
	for i := len(session.History) - 1; i >= 0; i-- {
		if session.History[i].Role == models.RoleUser {
			return session.History[i].Text
		}
	}
	return ""
}

func (o *Orchestrator) runToolStep(ctx context.Context, step models.ToolStep, prompt string, events chan<- models.StreamEvent) models.ToolOutput {
	if o.cfg.Tracer != nil {
		var span trace.Span
		ctx, span = o.cfg.Tracer.TraceToolExecution(ctx, step.ToolID)
		defer span.End()
	}

	events <- models.StreamEvent{Type: models.StreamToolCall, AgentID: step.AgentID, ToolID: step.ToolID}
	result := o.tools.MaybeRun(ctx, step.ToolID, prompt, step.Option, step.AgentID)

	out := models.ToolOutput{ToolID: step.ToolID, Query: result.Query}
	switch result.Outcome {
	case tools.Used:
		out.Text = result.Text
	case tools.Failed:
		out.Error = true
		out.Text = result.Error.Error()
	case tools.Skipped:
		out.Text = result.Reason
	}

	events <- models.StreamEvent{Type: models.StreamToolResult, AgentID: step.AgentID, ToolID: step.ToolID, Query: result.Query, Text: out.Text}
	if o.metrics != nil {
		status := "used"
		if result.Outcome != tools.Used {
			status = string(result.Outcome)
		}
		o.metrics.ToolExecutionCounter.WithLabelValues(step.ToolID, status).Inc()
	}
	return out
}

func (o *Orchestrator) runAgentStep(ctx context.Context, def models.AgentDefinition, prompt string, toolsContext []models.ToolOutput, prior string, fusion models.ContextFusion, history []*models.Message, events chan<- models.StreamEvent) (string, error) {
	if o.cfg.Tracer != nil {
		var span trace.Span
		ctx, span = o.cfg.Tracer.TraceAgentRun(ctx, def.ID)
		defer span.End()
	}

	events <- models.StreamEvent{Type: models.StreamStreamStart, AgentID: def.ID}

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.AgentTimeout)
	defer cancel()

	chunks, err := o.runner.Run(runCtx, agent.RunContext{
		Agent:         def,
		ToolsContext:  toolsContext,
		PriorOutput:   prior,
		ContextFusion: fusion,
		Prompt:        prompt,
		History:       history,
		HistoryWindow: o.cfg.HistoryWindow,
	})
	if err != nil {
		return "", err
	}

	var text string
	for {
		select {
		case <-runCtx.Done():
			return "", runCtx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				events <- models.StreamEvent{Type: models.StreamStreamEnd, AgentID: def.ID}
				return text, nil
			}
			if chunk.Error != nil {
				return "", chunk.Error
			}
			if chunk.Text != "" {
				text += chunk.Text
				events <- models.StreamEvent{Type: models.StreamToken, AgentID: def.ID, Text: chunk.Text}
			}
			if chunk.Done {
				events <- models.StreamEvent{Type: models.StreamStreamEnd, AgentID: def.ID}
				return text, nil
			}
		}
	}
}

// commitSystemError appends a system-role error message to the session
// (never alongside a successful assistant message, per spec.md §7's
// "exactly one outcome message per turn" invariant), persists it, and
// emits the error frame.
func (o *Orchestrator) commitSystemError(ctx context.Context, session *models.Session, events chan<- models.StreamEvent, kind ErrorKind, err error) {
	msg := &models.Message{
		ID: uuid.NewString(), SessionID: session.ID, Role: models.RoleSystem,
		Text: err.Error(), CreatedAt: time.Now(),
		Annotation: models.Annotation{Error: true},
	}
	session.History = append(session.History, msg)
	session.UpdatedAt = time.Now()

	if putErr := o.store.Put(ctx, session); putErr != nil && o.logger != nil {
		o.logger.Error(ctx, "failed to persist session after turn error", "error", putErr, "session_id", session.ID)
	}
	if o.metrics != nil {
		o.metrics.ErrorCounter.WithLabelValues(string(kind)).Inc()
	}
	o.emitError(events, kind, err)
}

func (o *Orchestrator) emitError(events chan<- models.StreamEvent, kind ErrorKind, err error) {
	events <- models.StreamEvent{Type: models.StreamError, ErrorKind: string(kind), Message: err.Error()}
}
