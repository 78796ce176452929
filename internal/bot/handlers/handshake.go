package handlers

import (
	"context"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/bot/pipeline"
)

// greetingCoachTurn nudges the model to open the conversation. A prompt
// engineering convention, not a protocol requirement.
const greetingCoachTurn = "bot: Поздоровайся с клиентом первый!"

// HandshakeConfig configures the static greeting handler.
type HandshakeConfig struct {
	WelcomeMessage string `yaml:"welcomeMessage"`
}

// Handshake answers the very first message of a conversation with a
// configured welcome text and skips everything else.
type Handshake struct {
	priority
	config HandshakeConfig
}

func NewHandshake(config HandshakeConfig) *Handshake {
	return &Handshake{config: config}
}

func (h *Handshake) Handle(_ context.Context, request, _ model.Request) (model.Response, error) {
	if !request.IsFirstMessage {
		return model.Response{Status: model.StatusSkipped}, nil
	}

	return model.Response{
		Result:       h.config.WelcomeMessage,
		AddToContext: model.History{model.UserTurn(greetingCoachTurn)},
		Status:       model.StatusFinal,
	}, nil
}

func (h *Handshake) Usage() model.Usage {
	return model.UsageStaticHandler
}

var _ pipeline.Handler = (*Handshake)(nil)
