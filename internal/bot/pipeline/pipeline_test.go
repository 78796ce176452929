package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granite-bot/server/internal/bot/contextstore"
	"github.com/granite-bot/server/internal/bot/model"
)

type stubHandler struct {
	prio   int
	handle func(request, original model.Request) (model.Response, error)
	calls  int
	seen   []model.Request
	usage  model.Usage
}

func (s *stubHandler) Handle(_ context.Context, request, original model.Request) (model.Response, error) {
	s.calls++
	s.seen = append(s.seen, request)
	return s.handle(request, original)
}

func (s *stubHandler) Priority() int            { return s.prio }
func (s *stubHandler) SetPriority(priority int) { s.prio = priority }
func (s *stubHandler) Usage() model.Usage       { return s.usage }

func finalHandler(prio int, result string) *stubHandler {
	return &stubHandler{
		prio: prio,
		handle: func(model.Request, model.Request) (model.Response, error) {
			return model.Response{Result: result, Status: model.StatusFinal}, nil
		},
	}
}

func skippingHandler(prio int) *stubHandler {
	return &stubHandler{
		prio: prio,
		handle: func(model.Request, model.Request) (model.Response, error) {
			return model.Response{Result: "must never surface", Status: model.StatusSkipped}, nil
		},
	}
}

func newStore(t *testing.T) (*contextstore.Store, *contextstore.MemoryBackend) {
	t.Helper()
	backend := contextstore.NewMemoryBackend()
	return contextstore.New(backend, "conv-1"), backend
}

func TestProcessFirstHandlerFinalShortCircuits(t *testing.T) {
	store, _ := newStore(t)
	first := finalHandler(0, "hello")
	second := finalHandler(1, "never")

	p := New(store, first, second)
	response := p.Process(context.Background(), model.Request{Message: "hi", IsFirstMessage: true})

	assert.Equal(t, model.StatusFinal, response.Status)
	assert.Equal(t, "hello", response.Result)
	assert.Equal(t, 1, first.calls)
	assert.Zero(t, second.calls, "terminal response must stop the chain")
}

func TestProcessSkippedIsNoOpOnContent(t *testing.T) {
	store, _ := newStore(t)
	skipper := skippingHandler(0)
	sink := finalHandler(1, "answer")

	p := New(store, skipper, sink)
	p.Process(context.Background(), model.Request{Message: "original text"})

	require.Len(t, sink.seen, 1)
	assert.Equal(t, "original text", sink.seen[0].Message, "skip must not alter the message")
	// The skipping handler's discarded result must not leak into context.
	for _, turn := range sink.seen[0].Context {
		assert.NotEqual(t, "must never surface", turn.Text)
	}
}

func TestProcessHandlersRunInPriorityOrder(t *testing.T) {
	store, _ := newStore(t)
	var order []int
	mk := func(prio int, status model.Status) *stubHandler {
		return &stubHandler{
			prio: prio,
			handle: func(model.Request, model.Request) (model.Response, error) {
				order = append(order, prio)
				return model.Response{Result: "r", Status: status}, nil
			},
		}
	}

	// Registered out of order on purpose.
	p := New(store, mk(2, model.StatusFinal), mk(0, model.StatusSkipped), mk(1, model.StatusSkipped))
	p.Process(context.Background(), model.Request{Message: "m"})

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestProcessHandlerErrorBecomesErrorResponse(t *testing.T) {
	store, backend := newStore(t)
	failing := &stubHandler{
		prio: 0,
		handle: func(model.Request, model.Request) (model.Response, error) {
			return model.Response{}, errors.New("boom")
		},
	}

	p := New(store, failing)
	response := p.Process(context.Background(), model.Request{Message: "hi"})

	assert.Equal(t, model.StatusError, response.Status)
	assert.Equal(t, "boom", response.Result)

	// The user's own turn is still committed; the failure is terminal.
	persisted, err := backend.Load(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, model.RoleUser, persisted[0].Role)
	assert.Equal(t, "hi", persisted[0].Text)
}

func TestProcessAllHandlersExhaustedYieldsNoAnswer(t *testing.T) {
	store, backend := newStore(t)

	p := New(store, skippingHandler(0), skippingHandler(1))
	response := p.Process(context.Background(), model.Request{Message: "hi"})

	assert.Equal(t, model.StatusNoAnswer, response.Status)
	assert.Equal(t, NoAnswerMessage, response.Result)

	// No terminal handler, nothing committed.
	persisted, err := backend.Load(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestProcessIntermediateRewritesRequestForNextHandler(t *testing.T) {
	store, _ := newStore(t)
	rewriter := &stubHandler{
		prio: 0,
		handle: func(model.Request, model.Request) (model.Response, error) {
			return model.Response{Result: "rewritten", Status: model.StatusIntermediate}, nil
		},
	}
	sink := finalHandler(1, "done")

	p := New(store, rewriter, sink)
	p.Process(context.Background(), model.Request{Message: "original"})

	require.Len(t, sink.seen, 1)
	assert.Equal(t, "rewritten", sink.seen[0].Message)

	// The rewrite lands in context as a user turn.
	last := sink.seen[0].Context[len(sink.seen[0].Context)-1]
	assert.Equal(t, model.RoleUser, last.Role)
	assert.Equal(t, "rewritten", last.Text)
}

func TestProcessResumeLoopReinvokesSameHandler(t *testing.T) {
	store, _ := newStore(t)
	resuming := &stubHandler{prio: 0}
	resuming.handle = func(request, _ model.Request) (model.Response, error) {
		if resuming.calls < 3 {
			return model.Response{Result: "bot: data", Status: model.StatusIntermediateResume}, nil
		}
		return model.Response{Result: "final answer", Status: model.StatusFinal}, nil
	}
	next := finalHandler(1, "never")

	p := New(store, resuming, next)
	response := p.Process(context.Background(), model.Request{Message: "hi"})

	assert.Equal(t, model.StatusFinal, response.Status)
	assert.Equal(t, "final answer", response.Result)
	assert.Equal(t, 3, resuming.calls)
	assert.Zero(t, next.calls)

	// Each resume saw the previous iteration's result as its message.
	assert.Equal(t, "hi", resuming.seen[0].Message)
	assert.Equal(t, "bot: data", resuming.seen[1].Message)
	assert.Equal(t, "bot: data", resuming.seen[2].Message)
}

func TestProcessResumeLoopIsBounded(t *testing.T) {
	store, _ := newStore(t)
	runaway := &stubHandler{
		prio: 0,
		handle: func(model.Request, model.Request) (model.Response, error) {
			return model.Response{Result: "again", Status: model.StatusIntermediateResume}, nil
		},
	}

	p := New(store, runaway)
	response := p.Process(context.Background(), model.Request{Message: "hi"})

	assert.Equal(t, model.StatusError, response.Status)
	assert.LessOrEqual(t, runaway.calls, maxResumeIterations+1)
}

func TestProcessCommitsDeltaOnFinal(t *testing.T) {
	store, backend := newStore(t)
	answering := &stubHandler{
		prio: 0,
		handle: func(model.Request, model.Request) (model.Response, error) {
			return model.Response{
				Result:       "the answer",
				AddToContext: model.History{model.UserTurn("bot: coached")},
				Status:       model.StatusFinal,
			}, nil
		},
	}

	p := New(store, answering)
	p.Process(context.Background(), model.Request{Message: "question"})

	persisted, err := backend.Load(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, persisted, 3)
	assert.Equal(t, model.UserTurn("question"), persisted[0])
	assert.Equal(t, model.UserTurn("bot: coached"), persisted[1])
	assert.Equal(t, model.RoleAssistant, persisted[2].Role)
	assert.Equal(t, "the answer", persisted[2].Text)
}

func TestProcessMergesPersistedHistoryIntoRequests(t *testing.T) {
	backend := contextstore.NewMemoryBackend()
	require.NoError(t, backend.Save(context.Background(), "conv-1", model.History{
		model.UserTurn("earlier question"),
		model.AssistantTurn("earlier answer"),
	}))
	store := contextstore.New(backend, "conv-1")

	sink := finalHandler(0, "ok")
	p := New(store, sink)
	p.Process(context.Background(), model.Request{Message: "follow-up"})

	require.Len(t, sink.seen, 1)
	texts := make([]string, 0, len(sink.seen[0].Context))
	for _, turn := range sink.seen[0].Context {
		texts = append(texts, turn.Text)
	}
	assert.Equal(t, []string{"earlier question", "earlier answer", "follow-up"}, texts)
}

func TestAddRemoveHandlerResort(t *testing.T) {
	store, _ := newStore(t)
	first := finalHandler(1, "first")
	p := New(store, first)

	early := skippingHandler(0)
	p.AddHandler(early)

	response := p.Process(context.Background(), model.Request{Message: "m"})
	assert.Equal(t, "first", response.Result)
	assert.Equal(t, 1, early.calls, "lower priority handler added later must still run first")

	p.RemoveHandler(early)
	p.Process(context.Background(), model.Request{Message: "m"})
	assert.Equal(t, 1, early.calls, "removed handler must not run again")
}
