package handlers

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/bot/pipeline"
	"github.com/granite-bot/server/internal/bot/syscmd"
	logx "github.com/granite-bot/server/pkg/logger"
)

// OpenAIGPTConfig configures one OpenAI chat completion handler.
type OpenAIGPTConfig struct {
	APIKey         string  `yaml:"apiKey"`
	BaseURL        string  `yaml:"baseUrl"`
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"maxTokens"`
	Temperature    float64 `yaml:"temperature"`
	SystemPrompt   string  `yaml:"systemPrompt"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

// OpenAIGPT performs one chat completion call against the OpenAI API per
// request.
type OpenAIGPT struct {
	priority
	config   OpenAIGPTConfig
	commands *syscmd.Pipeline
	client   *openai.Client
}

func NewOpenAIGPT(config OpenAIGPTConfig, commands *syscmd.Pipeline) *OpenAIGPT {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIGPT{
		config:   config,
		commands: commands,
		client:   openai.NewClientWithConfig(clientConfig),
	}
}

func (h *OpenAIGPT) Handle(ctx context.Context, request, _ model.Request) (model.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout(h.config.TimeoutSeconds))
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(request.Context)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: h.config.SystemPrompt,
	})
	for _, turn := range request.Context {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openAIRole(turn.Role),
			Content: turn.Text,
		})
	}

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       h.config.Model,
		Messages:    messages,
		MaxTokens:   h.config.MaxTokens,
		Temperature: float32(h.config.Temperature),
	})
	if err != nil {
		logx.Error().Err(err).Str("model", h.config.Model).Msg("openai call failed")
		return transportError(err), nil
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return model.Response{Result: SoftFailureMessage, Status: model.StatusFinal}, nil
	}
	completion := resp.Choices[0].Message.Content

	if resume, ok := resolveCommand(ctx, h.commands, completion); ok {
		return resume, nil
	}

	return model.Response{Result: completion, Status: model.StatusFinal}, nil
}

func openAIRole(role model.Role) string {
	switch role {
	case model.RoleSystem:
		return openai.ChatMessageRoleSystem
	case model.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func (h *OpenAIGPT) Usage() model.Usage {
	return model.UsagePaidModelGPT
}

var _ pipeline.Handler = (*OpenAIGPT)(nil)
