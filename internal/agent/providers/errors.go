package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FailoverReason categorizes why a call to an LLMProvider failed, so
// agent.FailoverOrchestrator can decide whether to retry the same provider,
// fail over to the next one, or give up.
type FailoverReason string

const (
	FailoverBilling          FailoverReason = "billing"
	FailoverRateLimit        FailoverReason = "rate_limit"
	FailoverAuth             FailoverReason = "auth"
	FailoverTimeout          FailoverReason = "timeout"
	FailoverServerError      FailoverReason = "server_error"
	FailoverInvalidRequest   FailoverReason = "invalid_request"
	FailoverModelUnavailable FailoverReason = "model_unavailable"
	FailoverContentFilter    FailoverReason = "content_filter"
	FailoverUnknown          FailoverReason = "unknown"
)

// IsRetryable reports whether retrying the same provider/model may succeed.
func (r FailoverReason) IsRetryable() bool {
	switch r {
	case FailoverRateLimit, FailoverTimeout, FailoverServerError:
		return true
	default:
		return false
	}
}

// ShouldFailover reports whether this error warrants trying a different
// provider rather than retrying the one that just failed.
func (r FailoverReason) ShouldFailover() bool {
	switch r {
	case FailoverBilling, FailoverAuth, FailoverModelUnavailable:
		return true
	default:
		return false
	}
}

// ProviderError is the structured error every adapter in this package wraps
// its failures in before returning them to the agent runner.
type ProviderError struct {
	Reason    FailoverReason
	Provider  string
	Model     string
	Status    int
	Code      string
	Message   string
	RequestID string
	Cause     error
}

func (e *ProviderError) Error() string {
	parts := []string{fmt.Sprintf("[%s]", e.Reason)}
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}
	switch {
	case e.Message != "":
		parts = append(parts, e.Message)
	case e.Cause != nil:
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// NewProviderError wraps cause as a ProviderError, classifying it from its
// message text. Callers that have an HTTP status or provider error code
// available should chain WithStatus/WithCode afterward for a more precise
// classification.
func NewProviderError(provider, model string, cause error) *ProviderError {
	pe := &ProviderError{Provider: provider, Model: model, Cause: cause, Reason: FailoverUnknown}
	if cause != nil {
		pe.Message = cause.Error()
		pe.Reason = ClassifyError(cause)
	}
	return pe
}

// WithStatus records the HTTP status code and reclassifies the reason from it.
func (e *ProviderError) WithStatus(status int) *ProviderError {
	e.Status = status
	e.Reason = classifyStatusCode(status)
	return e
}

// WithCode records a provider-specific error code. Only reclassifies the
// reason if the code maps to something more specific than what's already set.
func (e *ProviderError) WithCode(code string) *ProviderError {
	e.Code = code
	if reason := classifyErrorCode(code); reason != FailoverUnknown {
		e.Reason = reason
	}
	return e
}

func (e *ProviderError) WithRequestID(id string) *ProviderError {
	e.RequestID = id
	return e
}

func (e *ProviderError) WithMessage(msg string) *ProviderError {
	e.Message = msg
	return e
}

// textClassifier pairs a substring to look for in a lowercased error message
// with the FailoverReason it implies. Order matters: the first match wins,
// so more specific substrings (e.g. "rate_limit") should precede more
// general ones that could also appear in unrelated messages (e.g. "429"
// alone is too easy to collide with other numeric content).
type textClassifier struct {
	contains []string
	reason   FailoverReason
}

var textClassifiers = []textClassifier{
	{[]string{"timeout", "deadline exceeded", "context deadline", "etimedout"}, FailoverTimeout},
	{[]string{"rate limit", "rate_limit", "too many requests", "429"}, FailoverRateLimit},
	{[]string{"unauthorized", "invalid api key", "invalid_api_key", "authentication", "401", "403"}, FailoverAuth},
	{[]string{"billing", "payment", "quota", "insufficient", "402"}, FailoverBilling},
	{[]string{"content_filter", "content policy", "safety", "blocked"}, FailoverContentFilter},
	{[]string{"model not found", "model_not_found", "does not exist", "unavailable"}, FailoverModelUnavailable},
	{[]string{"internal server", "server error", "500", "502", "503", "504"}, FailoverServerError},
}

// ClassifyError inspects an error's message and returns the FailoverReason
// it most likely represents. Used as a fallback when a provider's SDK
// doesn't expose a structured status code or error type to classify from
// directly.
func ClassifyError(err error) FailoverReason {
	if err == nil {
		return FailoverUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, c := range textClassifiers {
		for _, substr := range c.contains {
			if strings.Contains(msg, substr) {
				return c.reason
			}
		}
	}
	return FailoverUnknown
}

func classifyStatusCode(status int) FailoverReason {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return FailoverAuth
	case status == http.StatusPaymentRequired:
		return FailoverBilling
	case status == http.StatusTooManyRequests:
		return FailoverRateLimit
	case status == http.StatusBadRequest:
		return FailoverInvalidRequest
	case status == http.StatusNotFound:
		return FailoverModelUnavailable
	case status >= 500:
		return FailoverServerError
	default:
		return FailoverUnknown
	}
}

var errorCodeReasons = map[string]FailoverReason{
	"rate_limit_error":         FailoverRateLimit,
	"rate_limit_exceeded":      FailoverRateLimit,
	"authentication_error":     FailoverAuth,
	"invalid_api_key":          FailoverAuth,
	"billing_error":            FailoverBilling,
	"insufficient_quota":       FailoverBilling,
	"model_not_found":          FailoverModelUnavailable,
	"model_not_available":      FailoverModelUnavailable,
	"content_policy_violation": FailoverContentFilter,
	"content_filter":           FailoverContentFilter,
	"server_error":             FailoverServerError,
	"internal_error":           FailoverServerError,
	"invalid_request_error":    FailoverInvalidRequest,
}

func classifyErrorCode(code string) FailoverReason {
	if reason, ok := errorCodeReasons[strings.ToLower(code)]; ok {
		return reason
	}
	return FailoverUnknown
}

// IsProviderError reports whether err (or something it wraps) is a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// GetProviderError extracts a *ProviderError from err's chain, if present.
func GetProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable reports whether err should be retried against the same
// provider. Falls back to message-based classification for raw errors that
// were never wrapped in a ProviderError.
func IsRetryable(err error) bool {
	if pe, ok := GetProviderError(err); ok {
		return pe.Reason.IsRetryable()
	}
	return ClassifyError(err).IsRetryable()
}

// ShouldFailover reports whether err warrants trying the next provider in
// the failover chain instead of retrying this one.
func ShouldFailover(err error) bool {
	if pe, ok := GetProviderError(err); ok {
		return pe.Reason.ShouldFailover()
	}
	return ClassifyError(err).ShouldFailover()
}
