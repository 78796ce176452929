package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/bot/pipeline"
	"github.com/granite-bot/server/internal/bot/syscmd"
	logx "github.com/granite-bot/server/pkg/logger"
)

// YandexGPTConfig configures one YandexGPT completion handler.
type YandexGPTConfig struct {
	URL            string  `yaml:"url"`
	APIKey         string  `yaml:"apiKey"`
	FolderID       string  `yaml:"folderId"`
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"maxTokens"`
	Temperature    float64 `yaml:"temperature"`
	Stream         bool    `yaml:"stream"`
	SystemPrompt   string  `yaml:"systemPrompt"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

// YandexGPT performs one completion call against the YandexGPT foundation
// models API per request. Transport and parse failures map to a terminal
// error reply; a response without a completion degrades to a soft failure
// message.
type YandexGPT struct {
	priority
	config     YandexGPTConfig
	commands   *syscmd.Pipeline
	httpClient *http.Client
}

type yandexMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type yandexCompletionRequest struct {
	ModelURI          string               `json:"modelUri"`
	CompletionOptions yandexCompletionOpts `json:"completionOptions"`
	Messages          []yandexMessage      `json:"messages"`
}

type yandexCompletionOpts struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type yandexCompletionResponse struct {
	Result struct {
		Alternatives []struct {
			Message yandexMessage `json:"message"`
		} `json:"alternatives"`
	} `json:"result"`
}

func NewYandexGPT(config YandexGPTConfig, commands *syscmd.Pipeline) *YandexGPT {
	return &YandexGPT{
		config:   config,
		commands: commands,
		httpClient: &http.Client{
			Timeout: callTimeout(config.TimeoutSeconds),
		},
	}
}

func (h *YandexGPT) Handle(ctx context.Context, request, _ model.Request) (model.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout(h.config.TimeoutSeconds))
	defer cancel()

	completion, err := h.complete(ctx, request)
	if err != nil {
		logx.Error().Err(err).Str("model", h.config.Model).Msg("yandexgpt call failed")
		return transportError(err), nil
	}

	if completion == "" {
		return model.Response{Result: SoftFailureMessage, Status: model.StatusFinal}, nil
	}

	if resume, ok := resolveCommand(ctx, h.commands, completion); ok {
		return resume, nil
	}

	return model.Response{Result: completion, Status: model.StatusFinal}, nil
}

func (h *YandexGPT) complete(ctx context.Context, request model.Request) (string, error) {
	messages := make([]yandexMessage, 0, len(request.Context)+1)
	messages = append(messages, yandexMessage{Role: string(model.RoleSystem), Text: h.config.SystemPrompt})
	for _, turn := range request.Context {
		messages = append(messages, yandexMessage{Role: string(turn.Role), Text: turn.Text})
	}

	body, err := json.Marshal(yandexCompletionRequest{
		ModelURI: fmt.Sprintf("gpt://%s/%s", h.config.FolderID, h.config.Model),
		CompletionOptions: yandexCompletionOpts{
			Stream:      h.config.Stream,
			Temperature: h.config.Temperature,
			MaxTokens:   h.config.MaxTokens,
		},
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+h.config.APIKey)
	req.Header.Set("x-folder-id", h.config.FolderID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion call: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion call returned status %d", resp.StatusCode)
	}

	var parsed yandexCompletionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("parse completion response: %w", err)
	}

	// An empty alternatives list is a soft failure, handled by the caller.
	if len(parsed.Result.Alternatives) == 0 {
		return "", nil
	}
	return parsed.Result.Alternatives[0].Message.Text, nil
}

func (h *YandexGPT) Usage() model.Usage {
	return model.UsagePaidModelGPT
}

var _ pipeline.Handler = (*YandexGPT)(nil)
