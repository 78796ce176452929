package bot

import (
	"context"

	"github.com/granite-bot/server/internal/bot/contextstore"
	"github.com/granite-bot/server/internal/bot/handlers"
	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/bot/pipeline"
	"github.com/granite-bot/server/internal/bot/registry"
	"github.com/granite-bot/server/internal/bot/selection"
	"github.com/granite-bot/server/internal/bot/syscmd"
	logx "github.com/granite-bot/server/pkg/logger"
)

// Sentinel message values carrying control meaning. They bypass normal
// handler routing.
const (
	HandshakeSentinel    = "@handshake"
	ClearContextSentinel = "@clearContext"
)

// ChatRequest is one inbound turn from a session.
type ChatRequest struct {
	SessionID string
	Message   string
	// ConfigID, when set, explicitly switches the session to the named bot
	// configuration.
	ConfigID string
}

// ChatResult is the outcome of one processed turn.
type ChatResult struct {
	Reply    string
	Status   model.Status
	ConfigID string
}

// Service wires the stored selection, the configuration catalog, the
// context store and the handler pipeline into one per-turn operation.
type Service struct {
	registry  *registry.Registry
	selection *selection.Manager
	contexts  contextstore.Backend
	locks     *conversationLocker
}

func NewService(reg *registry.Registry, sel *selection.Manager, contexts contextstore.Backend) *Service {
	return &Service{
		registry:  reg,
		selection: sel,
		contexts:  contexts,
		locks:     newConversationLocker(),
	}
}

// Process handles one inbound turn end to end: sentinel routing, selection
// resolution, pipeline assembly, processing and context commit. The only
// hard failure is an unknown explicit configuration id; everything else
// degrades to a still-valid chat reply.
func (s *Service) Process(ctx context.Context, request ChatRequest) (ChatResult, error) {
	isClearContext := request.Message == ClearContextSentinel
	isFirstMessage := request.Message == HandshakeSentinel || isClearContext

	message := request.Message
	if isFirstMessage {
		message = ""
	}

	record, err := s.selection.Resolve(ctx, request.SessionID, request.ConfigID)
	if err != nil {
		return ChatResult{}, err
	}

	config, err := s.registry.ByID(record.ActiveConfigID)
	if err != nil {
		return ChatResult{}, err
	}

	// Everything from history load to commit runs under the conversation
	// lock so concurrent turns for one session cannot lose updates.
	release := s.locks.acquire(request.SessionID)
	defer release()

	store := contextstore.New(s.contexts, request.SessionID)
	if isClearContext {
		store.Clear(ctx)
	}

	chain, err := s.buildPipeline(config, store)
	if err != nil {
		return ChatResult{}, err
	}

	response := chain.Process(ctx, model.Request{
		Message:        message,
		IsFirstMessage: isFirstMessage,
	})

	logx.Debug().
		Str("session_id", request.SessionID).
		Str("config_id", record.ActiveConfigID).
		Str("status", string(response.Status)).
		Msg("turn processed")

	return ChatResult{
		Reply:    response.Result,
		Status:   response.Status,
		ConfigID: record.ActiveConfigID,
	}, nil
}

// buildPipeline instantiates the configured handler chain. Priorities are
// assigned strictly by declaration order, so ties cannot occur.
func (s *Service) buildPipeline(config model.BotConfig, store *contextstore.Store) (*pipeline.Pipeline, error) {
	commands, err := syscmd.NewPipelineFromConfig(config.Commands)
	if err != nil {
		return nil, err
	}

	chain := pipeline.New(store)
	for i, handlerConfig := range config.Handlers {
		handler, err := handlers.New(handlerConfig, commands)
		if err != nil {
			return nil, err
		}
		handler.SetPriority(i)
		chain.AddHandler(handler)
	}
	return chain, nil
}
