package syscmd

import (
	"context"
	"fmt"

	logx "github.com/granite-bot/server/pkg/logger"
)

// Handler resolves one system command against an internal or external
// service.
type Handler interface {
	Handle(ctx context.Context, request Request) (Response, error)
}

// Pipeline dispatches system commands to their registered handlers.
type Pipeline struct {
	handlers map[string]Handler
}

func NewPipeline() *Pipeline {
	return &Pipeline{handlers: make(map[string]Handler)}
}

// Register binds a command name to a handler, replacing any previous
// binding.
func (p *Pipeline) Register(command string, handler Handler) {
	p.handlers[command] = handler
}

// Process resolves one command. Unknown commands are an error: the model
// emitted a sentinel the configuration does not support.
func (p *Pipeline) Process(ctx context.Context, request Request) (Response, error) {
	handler, ok := p.handlers[request.Command]
	if !ok {
		return Response{}, fmt.Errorf("unknown system command %q", request.Command)
	}

	response, err := handler.Handle(ctx, request)
	if err != nil {
		logx.Error().Err(err).Str("command", request.Command).Msg("system command failed")
		return Response{}, fmt.Errorf("system command %q: %w", request.Command, err)
	}

	logx.Debug().Str("command", request.Command).Msg("system command resolved")
	return response, nil
}
