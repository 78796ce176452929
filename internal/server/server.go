package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/granite-bot/server/internal/bot"
	"github.com/granite-bot/server/internal/bot/registry"
	"github.com/granite-bot/server/internal/core/errx"
	logx "github.com/granite-bot/server/pkg/logger"
)

const sessionHeader = "X-Session-Id"

// Config holds the HTTP layer settings.
type Config struct {
	Addr          string `split_words:"true" default:":8080"`
	AllowedOrigin string `split_words:"true" default:"*"`
}

// Server exposes the chat bot over HTTP.
type Server struct {
	router   *chi.Mux
	bot      *bot.Service
	registry *registry.Registry
}

type chatRequest struct {
	Message          string `json:"message"`
	CurrentBotConfig string `json:"currentBotConfig,omitempty"`
}

type chatResponse struct {
	Reply  string     `json:"reply"`
	Config chatConfig `json:"config"`
}

type chatConfig struct {
	GptModelsList    map[string]string `json:"gptModelsList"`
	CurrentBotConfig string            `json:"currentBotConfig"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(cfg Config, botService *bot.Service, reg *registry.Registry) *Server {
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", sessionHeader},
		ExposedHeaders:   []string{sessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:   router,
		bot:      botService,
		registry: reg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/chat_bot", s.handleChat)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat consumes {message, currentBotConfig?} and produces
// {reply, config:{gptModelsList, currentBotConfig}}. The session is keyed
// by the X-Session-Id header; absent one, the server issues an id and
// returns it in the response header.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var request chatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	w.Header().Set(sessionHeader, sessionID)

	result, err := s.bot.Process(r.Context(), bot.ChatRequest{
		SessionID: sessionID,
		Message:   request.Message,
		ConfigID:  request.CurrentBotConfig,
	})
	if err != nil {
		status := errx.HTTPStatus(err)
		message := err.Error()
		var appErr *errx.Error
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
		logx.Warn().Err(err).Str("session_id", sessionID).Int("status", status).Msg("chat request failed")
		writeJSON(w, status, errorResponse{Error: message})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply: result.Reply,
		Config: chatConfig{
			GptModelsList:    s.registry.Names(),
			CurrentBotConfig: result.ConfigID,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}
