// Package server exposes the HTTP surface: the websocket endpoint plus the
// auth, health and stats routes.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"chat-relay/contract"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"

	"github.com/gorilla/websocket"
)

// Deps are the collaborators the HTTP layer fronts.
type Deps struct {
	Hub         *runtime.Hub
	Pipeline    *runtime.Pipeline
	Auth        services.IAuthService
	Messages    repositories.IMessageRepository
	Sanitizer   contract.Sanitizer
	Monitor     *observability.Monitor
	Limits      runtime.ConnLimits
	ReplayLimit int
}

type Server struct {
	log      *slog.Logger
	deps     Deps
	upgrader websocket.Upgrader
}

func New(log *slog.Logger, deps Deps) *Server {
	return &Server{
		log:  log,
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers talk to this endpoint from arbitrary origins; identity
			// comes from the per-message token, not from the Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the ServeMux with all application routes.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/register", s.handleRegister)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// handleWebSocket upgrades the connection, replays recent history to the new
// client and then blocks in the read pump for the lifetime of the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "websocket endpoint only accepts GET", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := runtime.NewClient(s.deps.Hub, s.deps.Pipeline, conn, s.log, s.deps.Limits)
	s.deps.Monitor.IncrConnectionsOpened()
	s.deps.Hub.Register(client)
	go client.WritePump()

	s.replayRecent(client)

	// The hijacked request keeps its context until this handler returns.
	client.ReadPump(r.Context())
}

// replayRecent queues the latest persisted messages so a joining client sees
// the conversation it walked into. Replay failures are not worth dropping the
// connection over.
func (s *Server) replayRecent(client *runtime.Client) {
	if s.deps.ReplayLimit <= 0 {
		return
	}
	messages, err := s.deps.Messages.Recent(s.deps.ReplayLimit)
	if err != nil {
		s.log.Error("History replay failed", "connection", client.ID(), "error", err)
		return
	}
	for _, msg := range messages {
		s.deps.Hub.SendTo(client, event.Envelope{
			Event: event.KindMessage,
			Data: event.MessagePayload{
				Username: msg.Username,
				Text:     s.deps.Sanitizer.Linkify(msg.Content),
				ID:       msg.ID.String(),
			},
		})
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.deps.Auth.Register(body.Username, body.Password)
	if err != nil {
		s.log.Info("Registration rejected", "username", body.Username, "error", err)
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, apperrors.ErrInvalidPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.deps.Auth.Login(body.Username, body.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Monitor.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
