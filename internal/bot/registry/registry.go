package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/core/errx"
	logx "github.com/granite-bot/server/pkg/logger"
)

// Registry is the immutable catalog of named bot configurations. It is
// populated once at startup and injected wherever needed; there is no
// implicit global caching.
type Registry struct {
	configs map[string]model.BotConfig
	order   []string
}

type catalogFile struct {
	Bots []model.BotConfig `yaml:"bots"`
}

// Load reads the catalog from a YAML file. Environment variable references
// in the file (${VAR}) are expanded, so credentials stay out of the
// catalog itself.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bot catalog: %w", err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &catalog); err != nil {
		return nil, fmt.Errorf("parse bot catalog: %w", err)
	}
	if len(catalog.Bots) == 0 {
		return nil, fmt.Errorf("bot catalog %s defines no bots", path)
	}

	registry, err := New(catalog.Bots)
	if err != nil {
		return nil, err
	}

	logx.Info().Int("bots", len(catalog.Bots)).Str("path", path).Msg("bot catalog loaded")
	return registry, nil
}

// New builds a registry from already-assembled configurations, preserving
// declaration order.
func New(configs []model.BotConfig) (*Registry, error) {
	r := &Registry{configs: make(map[string]model.BotConfig, len(configs))}
	for _, config := range configs {
		if config.ID == "" {
			return nil, fmt.Errorf("bot configuration without an id")
		}
		if _, exists := r.configs[config.ID]; exists {
			return nil, fmt.Errorf("duplicate bot configuration id %q", config.ID)
		}
		r.configs[config.ID] = config
		r.order = append(r.order, config.ID)
	}
	return r, nil
}

// ByID resolves a configuration, failing with a not-found error for ids
// absent from the catalog.
func (r *Registry) ByID(id string) (model.BotConfig, error) {
	config, ok := r.configs[id]
	if !ok {
		return model.BotConfig{}, errx.ConfigNotFound(id)
	}
	return config, nil
}

// DefaultID is the first-declared configuration id, used for sessions that
// never chose one explicitly.
func (r *Registry) DefaultID() string {
	return r.order[0]
}

// Names maps configuration id to display name in declaration order-stable
// form for the chat UI selector.
func (r *Registry) Names() map[string]string {
	names := make(map[string]string, len(r.order))
	for _, id := range r.order {
		names[id] = r.configs[id].Name
	}
	return names
}

// All returns the configurations in declaration order.
func (r *Registry) All() []model.BotConfig {
	out := make([]model.BotConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.configs[id])
	}
	return out
}
