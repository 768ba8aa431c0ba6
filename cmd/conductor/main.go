// Package main provides the CLI entry point for the conductor orchestration
// server.
//
// conductor loads an agent catalog and knowledge catalog, wires the session
// store, tool runtime, query analyzer, LLM providers, and orchestrator, and
// serves the Session API over HTTP.
//
// Start the server:
//
//	conductor serve --config conductor.yaml
//
// Configuration can also be supplied entirely through environment
// variables; see internal/config for the supported overrides.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/agent/providers"
	"github.com/haasonsaas/conductor/internal/analyzer"
	"github.com/haasonsaas/conductor/internal/catalog"
	"github.com/haasonsaas/conductor/internal/config"
	"github.com/haasonsaas/conductor/internal/cron"
	"github.com/haasonsaas/conductor/internal/observability"
	"github.com/haasonsaas/conductor/internal/orchestrator"
	"github.com/haasonsaas/conductor/internal/sessions"
	"github.com/haasonsaas/conductor/internal/tools"
	"github.com/haasonsaas/conductor/internal/tools/websearch"
	"github.com/haasonsaas/conductor/internal/web"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// runtimeError marks a failure that happened after the server started
// serving, as opposed to a startup/config failure, so main can report
// the exit codes spec.md §6 distinguishes: 1 for startup failure, 2 for
// a runtime server error.
type runtimeError struct{ err error }

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) Unwrap() error { return e.err }

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	err := buildRootCmd().Execute()
	if err == nil {
		return
	}
	slog.Error("command failed", "error", err)
	var re *runtimeError
	if errors.As(err, &re) {
		os.Exit(2)
	}
	os.Exit(1)
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "conductor",
		Short:   "conductor runs the multi-agent conversational orchestrator",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.AddCommand(buildServeCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Session API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	return cmd
}

// runServe wires every component and blocks until a shutdown signal
// arrives or the server fails. Exit codes: 0 on clean shutdown, 1 on
// startup failure, 2 if the server exits with a runtime error
// (spec.md §6).
func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
		Output: os.Stdout,
	})
	metrics := observability.NewMetrics()

	var tracer *observability.Tracer
	if cfg.Observability.Tracing.Enabled {
		var shutdownTracer func(context.Context) error
		tracer, shutdownTracer = observability.NewTracer(observability.TraceConfig{
			ServiceName:  cfg.Observability.Tracing.ServiceName,
			Endpoint:     cfg.Observability.Tracing.Endpoint,
			SamplingRate: cfg.Observability.Tracing.SamplingRate,
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracer(shutdownCtx)
		}()
	}

	agents, err := catalog.NewRegistry(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load agent catalog: %w", err)
	}
	knowledge, err := catalog.NewKnowledgeRegistry(cfg.KnowledgeCatalogPath)
	if err != nil {
		return fmt.Errorf("load knowledge catalog: %w", err)
	}

	if watcher, err := agents.Watch(); err != nil {
		logger.Warn(ctx, "agent catalog hot-reload disabled", "error", err)
	} else {
		defer watcher.Close()
	}
	if watcher, err := knowledge.Watch(); err != nil {
		logger.Warn(ctx, "knowledge catalog hot-reload disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	store, err := newStore(cfg.Sessions)
	if err != nil {
		return fmt.Errorf("init session store: %w", err)
	}

	searchTool := websearch.NewWebSearchTool(&websearch.Config{
		SearXNGURL:         cfg.Tools.WebSearch.SearXNGURL,
		BraveAPIKey:        cfg.Tools.WebSearch.BraveAPIKey,
		DefaultBackend:     websearch.SearchBackend(cfg.Tools.WebSearch.DefaultBackend),
		ExtractContent:     cfg.Tools.WebSearch.ExtractContent,
		DefaultResultCount: cfg.Tools.WebSearch.DefaultResultCount,
	})
	runtime := tools.NewRuntime(searchTool, knowledge, cfg.Tools.Timeout)

	az := analyzer.New(agents, knowledge, cfg.Analyzer.DefaultAgent)

	provider, err := newLLMProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("init llm provider: %w", err)
	}
	runner := agent.NewRunner(provider)

	locks := sessions.NewSessionLockManager(cfg.Turn.Turn)
	orch := orchestrator.New(store, locks, agents, az, runtime, runner, logger, metrics, orchestrator.Config{
		TurnTimeout:   cfg.Turn.Turn,
		AgentTimeout:  cfg.Turn.Agent,
		HistoryWindow: cfg.Turn.HistoryWindow,
		QueueOnBusy:   cfg.Turn.QueueOnBusy,
		DefaultAgent:  cfg.Analyzer.DefaultAgent,
		Tracer:        tracer,
	})

	handler := web.NewHandler(web.Config{
		Store:        store,
		Orchestrator: orch,
		Agents:       agents,
		Knowledge:    knowledge,
		Logger:       slog.Default(),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	sweeper := cron.NewSweeper(store, mustInterval(cfg.Sessions.CleanupInterval), slog.Default())

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sweeper.Start(ctx)
	defer sweeper.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "conductor listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return &runtimeError{err: fmt.Errorf("server exited: %w", err)}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func mustInterval(d time.Duration) cron.Schedule {
	if d <= 0 {
		d = time.Hour
	}
	sched, err := cron.Every(d)
	if err != nil {
		// Every only rejects non-positive durations, already excluded above.
		panic(err)
	}
	return sched
}

func newStore(cfg config.SessionsConfig) (sessions.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return sessions.NewMemoryStore(), nil
	case "sqlite":
		return sessions.NewSQLiteStore(cfg.Path)
	case "postgres":
		return sessions.NewPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// newLLMProvider builds the primary provider named by cfg.DefaultProvider
// and wraps it in a FailoverOrchestrator along with every other
// configured provider, so a provider outage or rate limit fails over
// instead of failing the turn (spec.md §9).
func newLLMProvider(cfg config.LLMConfig) (agent.LLMProvider, error) {
	order := []string{cfg.DefaultProvider}
	for name := range cfg.Providers {
		if name != cfg.DefaultProvider {
			order = append(order, name)
		}
	}

	var built []agent.LLMProvider
	for _, name := range order {
		p, err := buildProvider(name, cfg)
		if err != nil {
			if name == cfg.DefaultProvider {
				return nil, err
			}
			continue
		}
		built = append(built, p)
	}
	if len(built) == 0 {
		return nil, fmt.Errorf("no usable llm provider configured (default_provider=%q)", cfg.DefaultProvider)
	}

	failover := agent.NewFailoverOrchestrator(built[0], agent.DefaultFailoverConfig())
	for _, p := range built[1:] {
		failover.AddProvider(p)
	}
	return failover, nil
}

func buildProvider(name string, cfg config.LLMConfig) (agent.LLMProvider, error) {
	switch name {
	case "anthropic":
		pc := cfg.Providers["anthropic"]
		return providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: pc.APIKey, BaseURL: pc.BaseURL})
	case "openai":
		pc := cfg.Providers["openai"]
		return providers.NewOpenAIProvider(providers.OpenAIConfig{APIKey: pc.APIKey}), nil
	case "bedrock":
		return providers.NewBedrockProvider(providers.BedrockConfig{
			Region:          cfg.Bedrock.Region,
			AccessKeyID:     cfg.Bedrock.AccessKeyID,
			SecretAccessKey: cfg.Bedrock.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
