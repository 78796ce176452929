package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granite-bot/server/internal/bot"
	"github.com/granite-bot/server/internal/bot/contextstore"
	"github.com/granite-bot/server/internal/bot/handlers"
	"github.com/granite-bot/server/internal/bot/model"
	"github.com/granite-bot/server/internal/bot/registry"
	"github.com/granite-bot/server/internal/bot/selection"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	reg, err := registry.New([]model.BotConfig{
		{
			ID:   "greeterBot",
			Name: "Greeter",
			Handlers: []model.HandlerConfig{
				{
					Slot:  "handshake",
					Type:  model.HandlerHandshake,
					Usage: model.UsageStaticHandler,
					Params: model.Params(handlers.HandshakeConfig{
						WelcomeMessage: "Здравствуйте!",
					}),
				},
			},
		},
		{ID: "secondBot", Name: "Second"},
	})
	require.NoError(t, err)

	botService := bot.NewService(
		reg,
		selection.NewManager(selection.NewMemoryStore(), reg),
		contextstore.NewMemoryBackend(),
	)
	return New(Config{Addr: ":0", AllowedOrigin: "*"}, botService, reg)
}

func postChat(t *testing.T, s *Server, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat_bot", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpointContract(t *testing.T) {
	s := newTestServer(t)

	rec := postChat(t, s, `{"message":"@handshake"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "Здравствуйте!", response.Reply)
	assert.Equal(t, "greeterBot", response.Config.CurrentBotConfig)
	assert.Equal(t, map[string]string{
		"greeterBot": "Greeter",
		"secondBot":  "Second",
	}, response.Config.GptModelsList)

	// A session id is issued when the client did not bring one.
	assert.NotEmpty(t, rec.Header().Get(sessionHeader))
}

func TestChatEndpointKeepsClientSessionID(t *testing.T) {
	s := newTestServer(t)

	header := http.Header{}
	header.Set(sessionHeader, "client-chosen-id")
	rec := postChat(t, s, `{"message":"@handshake"}`, header)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-chosen-id", rec.Header().Get(sessionHeader))
}

func TestChatEndpointSwitchesConfiguration(t *testing.T) {
	s := newTestServer(t)

	rec := postChat(t, s, `{"message":"привет","currentBotConfig":"secondBot"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "secondBot", response.Config.CurrentBotConfig)
}

func TestChatEndpointUnknownConfigIs404(t *testing.T) {
	s := newTestServer(t)

	rec := postChat(t, s, `{"message":"привет","currentBotConfig":"doesNotExist"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var response errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.NotEmpty(t, response.Error)
}

func TestChatEndpointMalformedBodyIs400(t *testing.T) {
	s := newTestServer(t)

	rec := postChat(t, s, `{"message":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
