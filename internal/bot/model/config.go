package model

import "gopkg.in/yaml.v3"

// HandlerType is the closed set of request handler kinds. Handlers are
// constructed from configuration through a factory keyed by this tag,
// never from free-form type names.
type HandlerType string

const (
	HandlerHandshake HandlerType = "handshake"
	HandlerYandexGPT HandlerType = "yandexGpt"
	HandlerOpenAIGPT HandlerType = "openAiGpt"
	HandlerGemini    HandlerType = "gemini"
)

// Usage classifies a handler for configuration and reporting. It plays no
// part in dispatch.
type Usage string

const (
	UsageStaticHandler   Usage = "staticHandler"
	UsagePaidModelGPT    Usage = "paidModelGpt"
	UsageInternalService Usage = "internalService"
	UsageExternalService Usage = "externalService"
)

// HandlerConfig describes one slot in a bot's request handler chain.
// Params stays an undecoded YAML node until the factory decodes it into
// the handler-specific config type.
type HandlerConfig struct {
	Slot   string      `yaml:"slot"`
	Type   HandlerType `yaml:"type"`
	Usage  Usage       `yaml:"usage"`
	Params yaml.Node   `yaml:"params"`
}

// CommandConfig describes one system command handler of a bot.
type CommandConfig struct {
	Command string    `yaml:"command"`
	Type    string    `yaml:"type"`
	Usage   Usage     `yaml:"usage"`
	Params  yaml.Node `yaml:"params"`
}

// BotConfig is one named bot configuration. The catalog of BotConfig
// values is immutable after load and lives for the process lifetime.
type BotConfig struct {
	ID       string          `yaml:"id"`
	Name     string          `yaml:"name"`
	Handlers []HandlerConfig `yaml:"handlers"`
	Commands []CommandConfig `yaml:"commands"`
}

// Params wraps an arbitrary value into a yaml.Node so BotConfig values can
// be assembled in code, mirroring what the catalog loader produces.
func Params(v any) yaml.Node {
	b, err := yaml.Marshal(v)
	if err != nil {
		panic(err)
	}
	var n yaml.Node
	if err := yaml.Unmarshal(b, &n); err != nil {
		panic(err)
	}
	return n
}
