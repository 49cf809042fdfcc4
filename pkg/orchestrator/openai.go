package orchestrator

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type openAIOrchestrator struct {
	client     *openai.Client
	model      string
	dispatcher ToolDispatcher
	logger     *zap.Logger
}

func newOpenAIOrchestrator(apiKey, model string, dispatcher ToolDispatcher, logger *zap.Logger) *openAIOrchestrator {
	return &openAIOrchestrator{
		client:     openai.NewClient(apiKey),
		model:      model,
		dispatcher: dispatcher,
		logger:     logger.Named("orchestrator-openai"),
	}
}

var _ Orchestrator = (*openAIOrchestrator)(nil)

func (o *openAIOrchestrator) Ask(ctx context.Context, question string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: question},
	}
	tools := buildOpenAITools(EngineToolDefinitions())

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    o.model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			o.logger.Debug("model requested tool",
				zap.String("tool", tc.Function.Name),
				zap.Int("iteration", iteration))

			result, execErr := o.dispatcher.Dispatch(ctx, tc.Function.Name, tc.Function.Arguments)
			if execErr != nil {
				result = fmt.Sprintf("Error executing tool: %s", execErr.Error())
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return "", fmt.Errorf("exceeded maximum tool iterations (%d)", maxToolIterations)
}

// buildOpenAITools converts tool definitions to the OpenAI function format.
func buildOpenAITools(defs []ToolDefinition) []openai.Tool {
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return tools
}
