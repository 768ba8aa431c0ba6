package orchestrator

import "errors"

// ErrorKind classifies a turn failure into the closed set the Session API
// and stream protocol report (spec.md §7).
type ErrorKind string

const (
	ErrorCatalog  ErrorKind = "catalog_error"
	ErrorProvider ErrorKind = "provider_error"
	ErrorPlan     ErrorKind = "plan_error"
	ErrorStore    ErrorKind = "store_error"
	ErrorCancelled ErrorKind = "cancelled"
	ErrorBusy     ErrorKind = "busy"
)

// TurnError wraps a failure with the ErrorKind the API and stream
// protocol need to report it (spec.md §7).
type TurnError struct {
	Kind ErrorKind
	Err  error
}

func (e *TurnError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *TurnError) Unwrap() error { return e.Err }

func newTurnError(kind ErrorKind, err error) *TurnError {
	return &TurnError{Kind: kind, Err: err}
}

// ErrSessionNotFound is returned when a turn targets an unknown session.
var ErrSessionNotFound = errors.New("orchestrator: session not found")

// ErrEmptyPrompt is committed as a system error when RunTurn is called with
// an empty user message; no plan is built and no agent runs (spec.md §8).
var ErrEmptyPrompt = errors.New("orchestrator: empty prompt")
