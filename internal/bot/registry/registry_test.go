package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/core/errx"
)

const sampleCatalog = `
bots:
  - id: yandexGptLite
    name: Yandex GPT Lite
    handlers:
      - slot: handshake
        type: handshake
        usage: staticHandler
        params:
          welcomeMessage: "Здравствуйте!"
      - slot: gpt
        type: yandexGpt
        usage: paidModelGpt
        params:
          apiKey: ${TEST_BOT_API_KEY}
          folderId: folder-1
          model: yandexgpt-lite/latest
    commands:
      - command: call_manager
        type: callManager
  - id: openAiGpt
    name: OpenAI GPT
    handlers:
      - slot: gpt
        type: openAiGpt
        usage: paidModelGpt
        params:
          model: gpt-4o-mini
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bots.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadParsesCatalogAndExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BOT_API_KEY", "expanded-secret")

	r, err := Load(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)

	config, err := r.ByID("yandexGptLite")
	require.NoError(t, err)
	assert.Equal(t, "Yandex GPT Lite", config.Name)
	require.Len(t, config.Handlers, 2)
	assert.Equal(t, model.HandlerHandshake, config.Handlers[0].Type)
	require.Len(t, config.Commands, 1)

	// Credentials are taken from the environment, not the file.
	var params struct {
		APIKey string `yaml:"apiKey"`
	}
	require.NoError(t, config.Handlers[1].Params.Decode(&params))
	assert.Equal(t, "expanded-secret", params.APIKey)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	_, err := Load(writeCatalog(t, "bots: []\n"))
	assert.ErrorContains(t, err, "defines no bots")
}

func TestByIDUnknownIsNotFound(t *testing.T) {
	r, err := New([]model.BotConfig{{ID: "a", Name: "A"}})
	require.NoError(t, err)

	_, err = r.ByID("missing")
	assert.True(t, errx.IsNotFound(err))
}

func TestDefaultIDIsFirstDeclared(t *testing.T) {
	r, err := New([]model.BotConfig{{ID: "b", Name: "B"}, {ID: "a", Name: "A"}})
	require.NoError(t, err)
	assert.Equal(t, "b", r.DefaultID())
}

func TestNamesKeepDisplayNames(t *testing.T) {
	r, err := New([]model.BotConfig{{ID: "a", Name: "First"}, {ID: "b", Name: "Second"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "First", "b": "Second"}, r.Names())
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]model.BotConfig{{ID: "a"}, {ID: "a"}})
	assert.ErrorContains(t, err, "duplicate")
}

func TestNewRejectsEmptyID(t *testing.T) {
	_, err := New([]model.BotConfig{{Name: "nameless"}})
	assert.Error(t, err)
}
