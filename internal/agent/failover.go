package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FailoverConfig configures a FailoverOrchestrator's retry and failover behavior.
type FailoverConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration

	FailoverOnRateLimit   bool
	FailoverOnServerError bool

	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// DefaultFailoverConfig returns the settings used when a turn doesn't
// configure its own: two retries per provider with exponential backoff,
// failover on rate limits and server errors, and a circuit breaker that
// opens after three consecutive failures for thirty seconds.
func DefaultFailoverConfig() *FailoverConfig {
	return &FailoverConfig{
		MaxRetries:              2,
		RetryBackoff:            100 * time.Millisecond,
		MaxRetryBackoff:         5 * time.Second,
		FailoverOnRateLimit:     true,
		FailoverOnServerError:   true,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// ProviderState tracks one provider's recent health for the circuit breaker.
type ProviderState struct {
	Name          string
	Failures      int
	LastFailure   time.Time
	CircuitOpen   bool
	CircuitOpenAt time.Time
}

// IsAvailable reports whether this provider should still be tried: its
// circuit is closed, or it has been open long enough to probe again.
func (s *ProviderState) IsAvailable(cfg *FailoverConfig) bool {
	return !s.CircuitOpen || time.Since(s.CircuitOpenAt) > cfg.CircuitBreakerTimeout
}

// FailoverMetrics accumulates counters across a FailoverOrchestrator's lifetime.
type FailoverMetrics struct {
	mu               sync.Mutex
	TotalRequests    int64
	TotalFailovers   int64
	TotalRetries     int64
	ProviderFailures map[string]int64
	CircuitBreaks    int64
}

// FailoverOrchestrator wraps an ordered list of LLMProvider instances and
// implements LLMProvider itself, so a turn can treat "primary model with
// fallbacks" the same as a single provider. Providers are tried in order;
// a provider whose circuit is open is skipped until its timeout elapses.
type FailoverOrchestrator struct {
	providers []LLMProvider
	config    *FailoverConfig
	states    map[string]*ProviderState
	mu        sync.RWMutex
	metrics   *FailoverMetrics
}

// NewFailoverOrchestrator builds an orchestrator around a primary provider.
// A nil config falls back to DefaultFailoverConfig.
func NewFailoverOrchestrator(primary LLMProvider, config *FailoverConfig) *FailoverOrchestrator {
	if config == nil {
		config = DefaultFailoverConfig()
	}
	return &FailoverOrchestrator{
		providers: []LLMProvider{primary},
		config:    config,
		states:    make(map[string]*ProviderState),
		metrics:   &FailoverMetrics{ProviderFailures: make(map[string]int64)},
	}
}

// AddProvider appends a fallback provider, tried only if every provider
// before it is unavailable or fails with a failover-worthy error.
func (o *FailoverOrchestrator) AddProvider(p LLMProvider) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.providers = append(o.providers, p)
}

// Complete walks the provider chain, retrying each one per config and
// moving to the next when an error's classification calls for failover.
func (o *FailoverOrchestrator) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	o.metrics.mu.Lock()
	o.metrics.TotalRequests++
	o.metrics.mu.Unlock()

	o.mu.RLock()
	chain := make([]LLMProvider, len(o.providers))
	copy(chain, o.providers)
	o.mu.RUnlock()

	var lastErr error

	for i, provider := range chain {
		state := o.getOrCreateState(provider.Name())
		if !state.IsAvailable(o.config) {
			continue
		}

		ch, err := o.tryProvider(ctx, provider, req)
		if err == nil {
			o.recordSuccess(provider.Name())
			return ch, nil
		}

		lastErr = err
		o.recordFailure(provider.Name(), err)

		if !o.shouldFailover(err) {
			return nil, err
		}
		if i < len(chain)-1 {
			o.metrics.mu.Lock()
			o.metrics.TotalFailovers++
			o.metrics.mu.Unlock()
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no available providers")
	}
	return nil, lastErr
}

// tryProvider retries a single provider with exponential backoff, capped at
// config.MaxRetryBackoff, until it succeeds, returns a non-retryable error,
// or exhausts config.MaxRetries.
func (o *FailoverOrchestrator) tryProvider(ctx context.Context, provider LLMProvider, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	var lastErr error
	backoff := o.config.RetryBackoff

	for attempt := 0; attempt <= o.config.MaxRetries; attempt++ {
		ch, err := provider.Complete(ctx, req)
		if err == nil {
			return ch, nil
		}
		lastErr = err

		if !isProviderRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= o.config.MaxRetries {
			break
		}

		o.metrics.mu.Lock()
		o.metrics.TotalRetries++
		o.metrics.mu.Unlock()

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > o.config.MaxRetryBackoff {
				backoff = o.config.MaxRetryBackoff
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// shouldFailover decides whether err warrants trying the next provider in
// the chain, combining the error's intrinsic classification with the
// config's opt-in flags for rate limit and server error conditions.
func (o *FailoverOrchestrator) shouldFailover(err error) bool {
	if shouldProviderFailover(err) {
		return true
	}
	switch classifyProviderError(err) {
	case failoverClassRateLimit:
		return o.config.FailoverOnRateLimit
	case failoverClassServerError:
		return o.config.FailoverOnServerError
	default:
		return false
	}
}

// failoverClass mirrors providers.FailoverReason. It's redeclared here
// rather than imported because internal/agent/providers imports this
// package (for the Tool/LLMProvider interfaces) and Go doesn't allow the
// reverse import.
type failoverClass string

const (
	failoverClassBilling          failoverClass = "billing"
	failoverClassRateLimit        failoverClass = "rate_limit"
	failoverClassAuth             failoverClass = "auth"
	failoverClassTimeout          failoverClass = "timeout"
	failoverClassServerError      failoverClass = "server_error"
	failoverClassInvalidRequest   failoverClass = "invalid_request"
	failoverClassModelUnavailable failoverClass = "model_unavailable"
	failoverClassUnknown          failoverClass = "unknown"
)

var failoverTextClasses = []struct {
	contains []string
	class    failoverClass
}{
	{[]string{"timeout", "deadline exceeded", "context deadline"}, failoverClassTimeout},
	{[]string{"rate limit", "rate_limit", "too many requests", "429"}, failoverClassRateLimit},
	{[]string{"unauthorized", "invalid api key", "authentication", "401", "403"}, failoverClassAuth},
	{[]string{"billing", "payment", "quota", "402"}, failoverClassBilling},
	{[]string{"model not found", "does not exist", "unavailable"}, failoverClassModelUnavailable},
	{[]string{"internal server", "server error", "500", "502", "503", "504"}, failoverClassServerError},
	{[]string{"invalid", "bad request", "400"}, failoverClassInvalidRequest},
}

// classifyProviderError returns the failover class implied by err's message.
func classifyProviderError(err error) failoverClass {
	if err == nil {
		return failoverClassUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, c := range failoverTextClasses {
		for _, substr := range c.contains {
			if strings.Contains(msg, substr) {
				return c.class
			}
		}
	}
	return failoverClassUnknown
}

func isProviderRetryable(err error) bool {
	switch classifyProviderError(err) {
	case failoverClassRateLimit, failoverClassTimeout, failoverClassServerError:
		return true
	default:
		return false
	}
}

func shouldProviderFailover(err error) bool {
	switch classifyProviderError(err) {
	case failoverClassBilling, failoverClassAuth, failoverClassModelUnavailable:
		return true
	default:
		return false
	}
}

func (o *FailoverOrchestrator) getOrCreateState(name string) *ProviderState {
	o.mu.Lock()
	defer o.mu.Unlock()

	if state, ok := o.states[name]; ok {
		return state
	}
	state := &ProviderState{Name: name}
	o.states[name] = state
	return state
}

func (o *FailoverOrchestrator) recordSuccess(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if state := o.states[name]; state != nil {
		state.Failures = 0
		state.CircuitOpen = false
	}
}

func (o *FailoverOrchestrator) recordFailure(name string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := o.states[name]
	if state == nil {
		state = &ProviderState{Name: name}
		o.states[name] = state
	}
	state.Failures++
	state.LastFailure = time.Now()

	if state.Failures >= o.config.CircuitBreakerThreshold && !state.CircuitOpen {
		state.CircuitOpen = true
		state.CircuitOpenAt = time.Now()
		o.metrics.mu.Lock()
		o.metrics.CircuitBreaks++
		o.metrics.mu.Unlock()
	}

	o.metrics.mu.Lock()
	o.metrics.ProviderFailures[name]++
	o.metrics.mu.Unlock()
}

// Name implements LLMProvider, reporting the primary provider's name so
// logs read naturally even though requests may land on a fallback.
func (o *FailoverOrchestrator) Name() string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.providers) == 0 {
		return "failover"
	}
	return "failover:" + o.providers[0].Name()
}

// Models implements LLMProvider, unioning every provider's model list.
func (o *FailoverOrchestrator) Models() []Model {
	o.mu.RLock()
	defer o.mu.RUnlock()

	seen := make(map[string]bool)
	var all []Model
	for _, p := range o.providers {
		for _, m := range p.Models() {
			if !seen[m.ID] {
				seen[m.ID] = true
				all = append(all, m)
			}
		}
	}
	return all
}

// SupportsTools implements LLMProvider: true if any provider in the chain does.
func (o *FailoverOrchestrator) SupportsTools() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, p := range o.providers {
		if p.SupportsTools() {
			return true
		}
	}
	return false
}

// Metrics returns a point-in-time copy of the orchestrator's counters.
func (o *FailoverOrchestrator) Metrics() FailoverMetrics {
	o.metrics.mu.Lock()
	defer o.metrics.mu.Unlock()

	failures := make(map[string]int64, len(o.metrics.ProviderFailures))
	for k, v := range o.metrics.ProviderFailures {
		failures[k] = v
	}
	return FailoverMetrics{
		TotalRequests:    o.metrics.TotalRequests,
		TotalFailovers:   o.metrics.TotalFailovers,
		TotalRetries:     o.metrics.TotalRetries,
		ProviderFailures: failures,
		CircuitBreaks:    o.metrics.CircuitBreaks,
	}
}

// ProviderStates returns a snapshot of every provider's circuit-breaker state.
func (o *FailoverOrchestrator) ProviderStates() []ProviderState {
	o.mu.RLock()
	defer o.mu.RUnlock()

	states := make([]ProviderState, 0, len(o.states))
	for _, s := range o.states {
		states = append(states, *s)
	}
	return states
}

// ResetCircuitBreaker manually closes the circuit for one provider, e.g. once an operator confirms it's healthy again.
func (o *FailoverOrchestrator) ResetCircuitBreaker(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if state, ok := o.states[name]; ok {
		state.Failures = 0
		state.CircuitOpen = false
	}
}

// ResetAllCircuitBreakers closes every provider's circuit at once.
func (o *FailoverOrchestrator) ResetAllCircuitBreakers() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, state := range o.states {
		state.Failures = 0
		state.CircuitOpen = false
	}
}
