package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/bot/syscmd"
	logx "github.com/granite-bot/server/pkg/logger"
)

// ErrorPrefix opens every degraded chat reply caused by a vendor failure.
const ErrorPrefix = "Ошибка: "

// SoftFailureMessage is returned when a vendor response arrives without a
// completion in it. This is a reply, not a transport error.
const SoftFailureMessage = "Сбой при получении сообщения от менеджера"

// defaultLLMTimeout bounds a single vendor completion call when the
// handler config does not say otherwise.
const defaultLLMTimeout = 30 * time.Second

// priority carries the pipeline ordering assigned at configuration-load
// time. Embedded by every handler.
type priority struct {
	value int
}

func (p *priority) Priority() int {
	return p.value
}

func (p *priority) SetPriority(value int) {
	p.value = value
}

// callTimeout resolves the per-call deadline from handler config seconds.
func callTimeout(seconds int) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultLLMTimeout
}

// transportError maps a vendor transport or parse failure to a terminal
// error reply. Never retried at this layer.
func transportError(err error) model.Response {
	return model.Response{
		Result: ErrorPrefix + err.Error(),
		Status: model.StatusError,
	}
}

// resolveCommand inspects a model completion for an embedded system
// command. When one is found and a command pipeline is configured, the
// command is resolved and its result is fed back to the same handler
// through an intermediateHandleResume response, prefixed so the model
// recognises it as a system reply. Command failures are also fed back, so
// the model can apologise in natural language instead of breaking the
// conversation.
func resolveCommand(ctx context.Context, commands *syscmd.Pipeline, completion string) (model.Response, bool) {
	if commands == nil {
		return model.Response{}, false
	}

	request, ok := syscmd.Parse(completion)
	if !ok {
		return model.Response{}, false
	}

	logx.Debug().Str("command", request.Command).Msg("model requested system command")

	result, err := commands.Process(ctx, request)
	feedback := result.Result
	if err != nil {
		feedback = fmt.Sprintf("Не удалось выполнить команду %s, извинись перед клиентом", request.Command)
	}

	return model.Response{
		Result: syscmd.ResponsePrefix + feedback,
		Status: model.StatusIntermediateResume,
	}, true
}
