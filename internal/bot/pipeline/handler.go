package pipeline

import (
	"context"

	"github.com/granite-bot/server/internal/bot/model"
)

// Handler is one stage of the request pipeline. It may answer, defer, or
// partially answer a request.
//
// Handle receives the current request plus the original request that
// entered the pipeline, so a handler can always distinguish the user's own
// utterance from intermediate rewrites. A returned error is caught at the
// orchestrator boundary and converted into a terminal error response;
// expected vendor failures should instead be reported as a response with
// model.StatusError.
type Handler interface {
	Handle(ctx context.Context, request, original model.Request) (model.Response, error)

	// Priority orders handlers in the chain. It is assigned sequentially
	// at configuration-load time, never supplied independently.
	Priority() int
	SetPriority(priority int)

	// Usage classifies the handler for configuration and reporting.
	Usage() model.Usage
}
