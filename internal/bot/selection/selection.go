package selection

import (
	"context"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/bot/registry"
	logx "github.com/granite-bot/server/pkg/logger"
)

// Store persists which bot configuration a session has selected.
type Store interface {
	// Get retrieves the record for a session key. The second return value
	// is false when no record exists.
	Get(ctx context.Context, sessionKey string) (model.SelectionRecord, bool, error)

	// Put replaces the record wholesale.
	Put(ctx context.Context, record model.SelectionRecord) error
}

// Manager implements the register-or-update rule for session selections:
// creation happens once, with the catalog default; updates are explicit
// and total.
type Manager struct {
	store    Store
	registry *registry.Registry
}

func NewManager(store Store, registry *registry.Registry) *Manager {
	return &Manager{store: store, registry: registry}
}

// Resolve returns the active selection for a session.
//
// An explicit requestedConfigID always wins and overwrites the stored
// record; it must name a catalogued configuration, otherwise the not-found
// error surfaces to the caller and nothing is written. Without an explicit
// id, an existing record is returned unchanged and a missing one is
// created with the catalog default. Store failures degrade to the default
// selection instead of failing the request.
func (m *Manager) Resolve(ctx context.Context, sessionKey, requestedConfigID string) (model.SelectionRecord, error) {
	if requestedConfigID != "" {
		if _, err := m.registry.ByID(requestedConfigID); err != nil {
			return model.SelectionRecord{}, err
		}
		record := model.SelectionRecord{SessionKey: sessionKey, ActiveConfigID: requestedConfigID}
		m.put(ctx, record)
		return record, nil
	}

	record, found, err := m.store.Get(ctx, sessionKey)
	if err != nil {
		logx.Warn().Err(err).Str("session_key", sessionKey).
			Msg("failed to load selection record, falling back to default")
	} else if found {
		if _, err := m.registry.ByID(record.ActiveConfigID); err == nil {
			return record, nil
		}
		// A stored id that no longer exists in the catalog heals to the
		// default rather than poisoning the session.
		logx.Warn().Str("session_key", sessionKey).Str("config_id", record.ActiveConfigID).
			Msg("stored selection references unknown configuration, resetting")
	}

	record = model.SelectionRecord{SessionKey: sessionKey, ActiveConfigID: m.registry.DefaultID()}
	m.put(ctx, record)
	return record, nil
}

func (m *Manager) put(ctx context.Context, record model.SelectionRecord) {
	if err := m.store.Put(ctx, record); err != nil {
		logx.Warn().Err(err).Str("session_key", record.SessionKey).
			Msg("failed to persist selection record")
	}
}
