package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const anthropicMaxTokens = 4096

type anthropicOrchestrator struct {
	client     *anthropic.Client
	model      string
	dispatcher ToolDispatcher
	logger     *zap.Logger
}

func newAnthropicOrchestrator(apiKey, model string, dispatcher ToolDispatcher, logger *zap.Logger) *anthropicOrchestrator {
	return &anthropicOrchestrator{
		client:     anthropic.NewClient(apiKey),
		model:      model,
		dispatcher: dispatcher,
		logger:     logger.Named("orchestrator-anthropic"),
	}
}

var _ Orchestrator = (*anthropicOrchestrator)(nil)

func (o *anthropicOrchestrator) Ask(ctx context.Context, question string) (string, error) {
	messages := []anthropic.Message{
		anthropic.NewUserTextMessage(question),
	}
	tools := buildAnthropicTools(EngineToolDefinitions())

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		resp, err := o.client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:     anthropic.Model(o.model),
			System:    systemPrompt,
			MaxTokens: anthropicMaxTokens,
			Messages:  messages,
			Tools:     tools,
		})
		if err != nil {
			return "", fmt.Errorf("create messages failed: %w", err)
		}

		if resp.StopReason != anthropic.MessagesStopReasonToolUse {
			return extractText(resp.Content), nil
		}

		messages = append(messages, anthropic.Message{
			Role:    anthropic.RoleAssistant,
			Content: resp.Content,
		})

		var toolResults []anthropic.MessageContent
		for _, content := range resp.Content {
			if content.Type != anthropic.MessagesContentTypeToolUse || content.MessageContentToolUse == nil {
				continue
			}
			use := content.MessageContentToolUse
			o.logger.Debug("model requested tool",
				zap.String("tool", use.Name),
				zap.Int("iteration", iteration))

			result, execErr := o.dispatcher.Dispatch(ctx, use.Name, string(use.Input))
			isError := execErr != nil
			if isError {
				result = fmt.Sprintf("Error executing tool: %s", execErr.Error())
			}
			toolResults = append(toolResults, anthropic.NewToolResultMessageContent(use.ID, result, isError))
		}
		if len(toolResults) == 0 {
			return extractText(resp.Content), nil
		}
		messages = append(messages, anthropic.Message{
			Role:    anthropic.RoleUser,
			Content: toolResults,
		})
	}

	return "", fmt.Errorf("exceeded maximum tool iterations (%d)", maxToolIterations)
}

// buildAnthropicTools converts tool definitions to the Anthropic tool
// format.
func buildAnthropicTools(defs []ToolDefinition) []anthropic.ToolDefinition {
	tools := make([]anthropic.ToolDefinition, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, anthropic.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		})
	}
	return tools
}

func extractText(content []anthropic.MessageContent) string {
	var sb strings.Builder
	for _, c := range content {
		if c.Type == anthropic.MessagesContentTypeText && c.Text != nil {
			sb.WriteString(*c.Text)
		}
	}
	return sb.String()
}
