// Package toolconv converts the agent runtime's internal Tool type into
// the wire format a specific LLM provider's tool-calling API expects.
// Only the Bedrock converter survives here: Anthropic and OpenAI build
// their own tool params inline in providers.AnthropicProvider and
// providers.OpenAIProvider, since neither needed a shared helper.
package toolconv

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/haasonsaas/conductor/internal/agent"
)

// ToBedrockTools converts internal tool definitions to Bedrock tool
// configuration. Unused in this server's default turn algorithm, which
// never populates CompletionRequest.Tools (tools run through the Tool
// Runtime before the agent call, not through provider-native function
// calling), but kept for a provider in tool-calling mode.
func ToBedrockTools(tools []agent.Tool) *types.ToolConfiguration {
	bedrockTools := make([]types.Tool, len(tools))

	for i, tool := range tools {
		var schema any
		if err := json.Unmarshal(tool.Schema(), &schema); err != nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		bedrockTools[i] = &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Name()),
				Description: aws.String(tool.Description()),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		}
	}

	return &types.ToolConfiguration{Tools: bedrockTools}
}
