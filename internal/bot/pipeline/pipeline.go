package pipeline

import (
	"context"
	"sort"

	"github.com/granite-bot/server/internal/bot/contextstore"
	"github.com/granite-bot/server/internal/bot/model"
	logx "github.com/granite-bot/server/pkg/logger"
)

// NoAnswerMessage is returned when every handler was exhausted without a
// terminal response.
const NoAnswerMessage = "Нет ответа. Повторите попытку позже"

// maxResumeIterations bounds the resume loop of a single handler. A handler
// that keeps reporting intermediateHandleResume past this bound is broken
// and the whole request fails with an error response.
const maxResumeIterations = 5

// Pipeline drives an ordered chain of handlers over one inbound turn and
// commits the produced context delta to the bound store on termination.
type Pipeline struct {
	handlers     []Handler
	store        *contextstore.Store
	needsSorting bool
}

// New builds a pipeline over the given handlers bound to a context store.
// The store may be nil for stateless callers that carry their own history
// in the request.
func New(store *contextstore.Store, handlers ...Handler) *Pipeline {
	return &Pipeline{
		handlers:     handlers,
		store:        store,
		needsSorting: true,
	}
}

// AddHandler registers a handler. Sorting is deferred until the next
// Process call.
func (p *Pipeline) AddHandler(h Handler) {
	p.handlers = append(p.handlers, h)
	p.needsSorting = true
}

// RemoveHandler drops a previously registered handler.
func (p *Pipeline) RemoveHandler(h Handler) {
	kept := p.handlers[:0]
	for _, existing := range p.handlers {
		if existing != h {
			kept = append(kept, existing)
		}
	}
	p.handlers = kept
	p.needsSorting = true
}

// Process routes one inbound turn through the handler chain.
//
// The persisted history is merged with request-scoped context additions,
// the user's utterance is appended as a user turn, and handlers run in
// ascending priority order until one of them produces a terminal status.
// The accumulated context delta is committed exactly once, when a terminal
// response is returned.
func (p *Pipeline) Process(ctx context.Context, userRequest model.Request) model.Response {
	if p.needsSorting {
		p.sortHandlers()
	}

	var history model.History
	if p.store != nil {
		history = p.store.Load(ctx)
	}
	history = append(history, userRequest.Context...)
	addContext := userRequest.Context.Clone()

	if userRequest.Message != "" {
		turn := model.UserTurn(userRequest.Message)
		history = append(history, turn)
		addContext = append(addContext, turn)
	}

	request := model.Request{
		Message:        userRequest.Message,
		Context:        history,
		IsFirstMessage: userRequest.IsFirstMessage,
	}

	for _, handler := range p.handlers {
		response := p.runHandler(ctx, handler, &request, userRequest, &history, &addContext)

		if response.Status.Terminal() {
			p.commit(ctx, addContext)
			return response
		}
	}

	return model.Response{
		Result: NoAnswerMessage,
		Status: model.StatusNoAnswer,
	}
}

// runHandler invokes one handler, applying the response state machine and
// the inner resume loop. request, context and addContext are updated in
// place for the benefit of subsequent handlers.
func (p *Pipeline) runHandler(
	ctx context.Context,
	handler Handler,
	request *model.Request,
	original model.Request,
	history *model.History,
	addContext *model.History,
) model.Response {
	var (
		response model.Response
		result   string
	)

	for iteration := 0; ; iteration++ {
		if iteration > maxResumeIterations {
			logx.Error().
				Int("priority", handler.Priority()).
				Int("iterations", iteration).
				Msg("handler exceeded resume iteration limit")
			return errorResponse("handler resume loop exceeded iteration limit")
		}

		var err error
		response, err = handler.Handle(ctx, *request, original)
		if err != nil {
			logx.Error().Err(err).
				Int("priority", handler.Priority()).
				Msg("handler failed")
			return errorResponse(err.Error())
		}

		skipped := response.Status == model.StatusSkipped
		if skipped {
			// A skip must not alter conversation flow: the message text
			// reverts to the unmodified incoming request.
			result = request.Message
		} else {
			result = response.Result
		}

		if len(response.AddToContext) > 0 {
			*history = append(*history, response.AddToContext...)
			*addContext = append(*addContext, response.AddToContext...)
		}

		if !skipped {
			role := model.RoleAssistant
			if response.Status.IntermediateClass() {
				role = model.RoleUser
			}
			turn := model.Turn{Role: role, Text: result, Data: response.Data}
			*history = append(*history, turn)
			*addContext = append(*addContext, turn)
		}

		if response.Status.IntermediateClass() {
			*request = model.Request{
				Message:        result,
				Context:        *history,
				IsFirstMessage: request.IsFirstMessage,
			}
		}

		if response.Status != model.StatusIntermediateResume {
			break
		}
	}

	return model.Response{
		Result: result,
		Status: response.Status,
		Data:   response.Data,
	}
}

func (p *Pipeline) commit(ctx context.Context, addContext model.History) {
	if p.store == nil {
		return
	}
	p.store.AppendAll(ctx, addContext)
	p.store.Commit(ctx)
}

// sortHandlers stably orders handlers by ascending priority. Priorities
// are assigned sequentially at registration, so ties cannot occur, but a
// stable sort keeps registration order authoritative regardless.
func (p *Pipeline) sortHandlers() {
	sort.SliceStable(p.handlers, func(i, j int) bool {
		return p.handlers[i].Priority() < p.handlers[j].Priority()
	})
	p.needsSorting = false
}

func errorResponse(message string) model.Response {
	return model.Response{
		Result: message,
		Status: model.StatusError,
	}
}
