package config

import "time"

// Config is the top-level configuration for the conductor server: catalog
// locations, session store selection, LLM provider credentials, tool
// behavior, and ambient server/observability settings.
type Config struct {
	CatalogPath          string `yaml:"catalog_path"`
	KnowledgeCatalogPath string `yaml:"knowledge_catalog_path"`

	Server        ServerConfig        `yaml:"server"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	LLM           LLMConfig           `yaml:"llm"`
	Tools         ToolsConfig         `yaml:"tools"`
	Turn          TurnConfig          `yaml:"turn"`
	Analyzer      AnalyzerConfig      `yaml:"analyzer"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// AnalyzerConfig controls the supervisor-mode query analyzer (spec.md §4.4).
type AnalyzerConfig struct {
	// DefaultAgent is used when no registered agent scores above zero.
	DefaultAgent string `yaml:"default_agent"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host     string `yaml:"host"`
	HTTPPort int    `yaml:"http_port"`
}

// SessionsConfig selects and configures the session store backend.
type SessionsConfig struct {
	// Backend is one of "memory", "sqlite", "postgres".
	Backend string `yaml:"backend"`
	// Path is the SQLite database file path (backend "sqlite").
	Path string `yaml:"path"`
	// DSN is the Postgres connection string (backend "postgres").
	DSN string `yaml:"dsn"`
	// CleanupInterval is how often the background sweep runs. Default 1h.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// TurnConfig controls per-turn timeouts (spec.md §5).
type TurnConfig struct {
	Turn  time.Duration `yaml:"turn"`
	Tool  time.Duration `yaml:"tool"`
	Agent time.Duration `yaml:"agent"`
	// HistoryWindow is the bounded number of prior messages composed into
	// an agent prompt before older turns are elided with a summary
	// placeholder (spec.md §4.6).
	HistoryWindow int `yaml:"history_window"`
	// QueueOnBusy makes a second concurrent turn for the same session wait
	// for the lock instead of failing fast with busy (spec.md §5).
	QueueOnBusy bool `yaml:"queue_on_busy"`
}

// ToolsConfig configures the built-in web_search and knowledgebase tools.
type ToolsConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	WebSearch WebSearchConfig `yaml:"websearch"`
}

// WebSearchConfig configures the web_search tool's backend.
type WebSearchConfig struct {
	SearXNGURL         string `yaml:"searxng_url"`
	BraveAPIKey        string `yaml:"brave_api_key"`
	DefaultBackend     string `yaml:"default_backend"`
	ExtractContent     bool   `yaml:"extract_content"`
	DefaultResultCount int    `yaml:"default_result_count"`
}

// ObservabilityConfig controls structured logging, metrics, and tracing.
type ObservabilityConfig struct {
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	Tracing   TracingConfig `yaml:"tracing"`
}

// TracingConfig controls OpenTelemetry tracing. Tracing stays a no-op
// exporter until Endpoint is set, so Enabled just gates whether the
// server wires a Tracer into the orchestrator at all.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Default returns the configuration a fresh deployment starts from.
func Default() *Config {
	return &Config{
		CatalogPath:          "catalog.json",
		KnowledgeCatalogPath: "knowledge.json",
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Sessions: SessionsConfig{
			Backend:         "memory",
			CleanupInterval: time.Hour,
		},
		LLM: LLMConfig{
			DefaultProvider: "anthropic",
			Providers:       map[string]LLMProviderConfig{},
		},
		Tools: ToolsConfig{
			Timeout: 15 * time.Second,
			WebSearch: WebSearchConfig{
				DefaultBackend:     "duckduckgo",
				DefaultResultCount: 5,
			},
		},
		Turn: TurnConfig{
			Turn:          120 * time.Second,
			Tool:          15 * time.Second,
			Agent:         60 * time.Second,
			HistoryWindow: 20,
		},
		Analyzer: AnalyzerConfig{
			DefaultAgent: "storyteller",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "text",
			Tracing: TracingConfig{
				ServiceName: "conductor",
			},
		},
	}
}
