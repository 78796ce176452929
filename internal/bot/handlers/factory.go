package handlers

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/bot/pipeline"
	"github.com/granite-bot/server/internal/bot/syscmd"
)

// New constructs a request handler from catalog configuration. The handler
// kind is a closed enum selected by configuration data; there is no
// construction from free-form type names.
func New(config model.HandlerConfig, commands *syscmd.Pipeline) (pipeline.Handler, error) {
	switch config.Type {
	case model.HandlerHandshake:
		var params HandshakeConfig
		if err := decodeParams(config.Params, &params); err != nil {
			return nil, err
		}
		return NewHandshake(params), nil

	case model.HandlerYandexGPT:
		var params YandexGPTConfig
		if err := decodeParams(config.Params, &params); err != nil {
			return nil, err
		}
		return NewYandexGPT(params, commands), nil

	case model.HandlerOpenAIGPT:
		var params OpenAIGPTConfig
		if err := decodeParams(config.Params, &params); err != nil {
			return nil, err
		}
		return NewOpenAIGPT(params, commands), nil

	case model.HandlerGemini:
		var params GeminiConfig
		if err := decodeParams(config.Params, &params); err != nil {
			return nil, err
		}
		return NewGemini(params, commands), nil

	default:
		return nil, fmt.Errorf("unknown handler type %q", config.Type)
	}
}

func decodeParams(node yaml.Node, out any) error {
	if node.Kind == 0 {
		return nil
	}
	if err := node.Decode(out); err != nil {
		return fmt.Errorf("decode handler params: %w", err)
	}
	return nil
}
