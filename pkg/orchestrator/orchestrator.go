package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/config"
)

// systemPrompt frames the model's role. Data access happens exclusively
// through the declared tools; the model never sees SQL.
const systemPrompt = "You are a data assistant for a multi-tenant business platform. " +
	"Answer questions about the organization's data using only the provided tools: " +
	"query_database for raw data and aggregates, generate_chart for visualizations, " +
	"and summarize_data for statistical narratives. " +
	"If a tool rejects a request, read the error details, repair the request, and retry. " +
	"Never invent data you did not retrieve."

// maxToolIterations bounds the tool-call loop.
const maxToolIterations = 10

// Orchestrator answers a natural-language question by looping model tool
// calls through the dispatcher until the model produces a final answer.
type Orchestrator interface {
	Ask(ctx context.Context, question string) (string, error)
}

// New creates an orchestrator for the configured provider.
func New(cfg config.LLMConfig, dispatcher ToolDispatcher, logger *zap.Logger) (Orchestrator, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return newOpenAIOrchestrator(cfg.OpenAIAPIKey, cfg.OpenAIModel, dispatcher, logger), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return newAnthropicOrchestrator(cfg.AnthropicAPIKey, cfg.AnthropicModel, dispatcher, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}
