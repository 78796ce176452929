package handlers

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/bot/pipeline"
	"github.com/granite-bot/server/internal/bot/syscmd"
	logx "github.com/granite-bot/server/pkg/logger"
)

// GeminiConfig configures one Gemini completion handler.
type GeminiConfig struct {
	APIKey         string  `yaml:"apiKey"`
	BaseURL        string  `yaml:"baseUrl"`
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"maxTokens"`
	Temperature    float64 `yaml:"temperature"`
	SystemPrompt   string  `yaml:"systemPrompt"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

// Gemini performs one completion call against the Gemini API per request.
// The client is created lazily on first use because its construction needs
// a context.
type Gemini struct {
	priority
	config   GeminiConfig
	commands *syscmd.Pipeline
	client   *genai.Client
}

func NewGemini(config GeminiConfig, commands *syscmd.Pipeline) *Gemini {
	return &Gemini{config: config, commands: commands}
}

func (h *Gemini) Handle(ctx context.Context, request, _ model.Request) (model.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout(h.config.TimeoutSeconds))
	defer cancel()

	client, err := h.getClient(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("failed to create gemini client")
		return transportError(err), nil
	}

	contents := make([]*genai.Content, 0, len(request.Context))
	for _, turn := range request.Context {
		var role genai.Role = genai.RoleUser
		if turn.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	resp, err := client.Models.GenerateContent(ctx, h.config.Model, contents, &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(h.config.Temperature)),
		MaxOutputTokens:   int32(h.config.MaxTokens),
		SystemInstruction: genai.NewContentFromText(h.config.SystemPrompt, genai.RoleUser),
	})
	if err != nil {
		logx.Error().Err(err).Str("model", h.config.Model).Msg("gemini call failed")
		return transportError(err), nil
	}

	completion := resp.Text()
	if completion == "" {
		return model.Response{Result: SoftFailureMessage, Status: model.StatusFinal}, nil
	}

	if resume, ok := resolveCommand(ctx, h.commands, completion); ok {
		return resume, nil
	}

	return model.Response{Result: completion, Status: model.StatusFinal}, nil
}

func (h *Gemini) getClient(ctx context.Context) (*genai.Client, error) {
	if h.client != nil {
		return h.client, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  h.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if h.config.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = h.config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	h.client = client
	return client, nil
}

func (h *Gemini) Usage() model.Usage {
	return model.UsagePaidModelGPT
}

var _ pipeline.Handler = (*Gemini)(nil)
