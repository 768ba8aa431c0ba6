package config

// LLMConfig selects the default LLM provider and holds per-provider
// credentials, grounded on the teacher's multi-provider config shape but
// trimmed to the three providers the agent runtime wires (anthropic, openai,
// bedrock) instead of the teacher's full routing/auto-discovery machinery.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
	Bedrock         BedrockConfig                `yaml:"bedrock"`
}

// LLMProviderConfig holds credentials for a single provider.
type LLMProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
}

// BedrockConfig configures the AWS Bedrock provider adapter.
type BedrockConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}
