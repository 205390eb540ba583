package models

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/cognirag/cognirag/internal/types"
)

// openaiModel 封装 OpenAI 兼容的聊天客户端。
type openaiModel struct {
	client *openai.Client
	name   string
}

// NewOpenAIModel creates a ChatModel backed by an OpenAI-compatible API.
// baseURL may be empty for the default endpoint.
func NewOpenAIModel(apiKey, baseURL, modelName string) (ChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &openaiModel{
		client: &client,
		name:   modelName,
	}, nil
}

func (m *openaiModel) Complete(ctx context.Context, messages []types.Message, params GenerationParams) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model:    m.name,
		Messages: convertMessages(messages),
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}
	if params.Temperature > 0 {
		req.Temperature = openai.Float(params.Temperature)
	}
	if params.TopP > 0 {
		req.TopP = openai.Float(params.TopP)
	}

	resp, err := m.client.Chat.Completions.New(ctx, req)
	if err != nil {
		slog.Error("failed to call llm API", "model", m.name, "error", err.Error())
		return "", fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	return cleanResponse(resp.Choices[0].Message.Content), nil
}

func convertMessages(messages []types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

// cleanResponse strips role prefixes some models prepend to their reply.
func cleanResponse(text string) string {
	response := strings.TrimSpace(text)
	for _, prefix := range []string{"助手:", "助手：", "AI:", "AI："} {
		if strings.HasPrefix(response, prefix) {
			response = strings.TrimSpace(strings.TrimPrefix(response, prefix))
			break
		}
	}
	return response
}
