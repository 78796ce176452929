package contextstore

import (
	"context"

	"github.com/granite-bot/server/internal/bot/model"
	logx "github.com/granite-bot/server/pkg/logger"
)

// Backend persists whole conversation histories keyed by conversation id.
type Backend interface {
	// Load retrieves the persisted history, or an empty one if nothing is
	// stored under the id.
	Load(ctx context.Context, conversationID string) (model.History, error)

	// Save replaces the persisted history wholesale.
	Save(ctx context.Context, conversationID string, history model.History) error

	// Delete removes the persisted history.
	Delete(ctx context.Context, conversationID string) error
}

// Store owns the in-memory history for one conversation id. It loads
// lazily, accumulates turns in memory and writes back exactly once per
// pipeline invocation via Commit. Persistence failures degrade to an empty
// or stale history instead of failing the request: losing history is
// recoverable, corrupting the live response is not.
type Store struct {
	backend        Backend
	conversationID string

	loaded bool
	turns  model.History
}

func New(backend Backend, conversationID string) *Store {
	return &Store{
		backend:        backend,
		conversationID: conversationID,
	}
}

// Load returns the current in-memory history, reading it from the backend
// on first access. Corrupt or unreadable persisted data yields an empty
// history, never an error.
func (s *Store) Load(ctx context.Context) model.History {
	if !s.loaded {
		turns, err := s.backend.Load(ctx, s.conversationID)
		if err != nil {
			logx.Warn().Err(err).
				Str("conversation_id", s.conversationID).
				Msg("failed to load conversation context, starting empty")
			turns = nil
		}
		s.turns = turns
		s.loaded = true
	}
	return s.turns.Clone()
}

// Append adds a turn to the in-memory history only. Nothing is written
// until Commit.
func (s *Store) Append(ctx context.Context, turn model.Turn) {
	s.Load(ctx)
	s.turns = append(s.turns, turn)
}

// AppendAll adds a batch of turns to the in-memory history.
func (s *Store) AppendAll(ctx context.Context, turns model.History) {
	s.Load(ctx)
	s.turns = append(s.turns, turns...)
}

// Clear discards the in-memory history and best-effort removes the
// persisted record.
func (s *Store) Clear(ctx context.Context) {
	s.turns = nil
	s.loaded = true
	if err := s.backend.Delete(ctx, s.conversationID); err != nil {
		logx.Warn().Err(err).
			Str("conversation_id", s.conversationID).
			Msg("failed to delete conversation context")
	}
}

// Commit persists the current in-memory state. Write failures are logged
// and swallowed so a storage outage never breaks the live reply.
func (s *Store) Commit(ctx context.Context) {
	if !s.loaded {
		return
	}
	if err := s.backend.Save(ctx, s.conversationID, s.turns); err != nil {
		logx.Warn().Err(err).
			Str("conversation_id", s.conversationID).
			Int("turns", len(s.turns)).
			Msg("failed to persist conversation context")
	}
}
