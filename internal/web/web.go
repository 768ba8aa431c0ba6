// Package web provides the Session API: the HTTP surface for creating and
// driving conversations, inspecting catalogs, and running the cleanup
// sweep on demand (spec.md §6).
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/haasonsaas/conductor/internal/catalog"
	"github.com/haasonsaas/conductor/internal/orchestrator"
	"github.com/haasonsaas/conductor/internal/sessions"
	"github.com/haasonsaas/conductor/internal/stream"
	"github.com/haasonsaas/conductor/internal/tools"
	"github.com/haasonsaas/conductor/pkg/models"
)

// Config holds everything the Session API needs to serve requests.
type Config struct {
	Store        sessions.Store
	Orchestrator *orchestrator.Orchestrator
	Agents       *catalog.Registry
	Knowledge    *catalog.KnowledgeRegistry
	Logger       *slog.Logger
}

// Handler is the Session API's HTTP handler.
type Handler struct {
	cfg Config
	mux *http.ServeMux
}

// NewHandler builds a Handler with all ten Session API routes wired
// (spec.md §6).
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{cfg: cfg, mux: http.NewServeMux()}
	h.setupRoutes()
	return h
}

func (h *Handler) setupRoutes() {
	h.mux.HandleFunc("GET /chats", h.listChats)
	h.mux.HandleFunc("POST /chats", h.createChat)
	h.mux.HandleFunc("GET /chats/{id}", h.getChat)
	h.mux.HandleFunc("POST /chats/{id}/settings", h.updateSettings)
	h.mux.HandleFunc("POST /chats/{id}/supervisor", h.setSupervisor)
	h.mux.HandleFunc("POST /chats/{id}/message", h.sendMessage)
	h.mux.HandleFunc("POST /chats/{id}/message/stream", h.streamMessage)
	h.mux.HandleFunc("GET /agents", h.listAgents)
	h.mux.HandleFunc("GET /tools", h.listTools)
	h.mux.HandleFunc("GET /knowledgebase", h.listKnowledge)
	h.mux.HandleFunc("POST /chats/cleanup", h.cleanup)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) listChats(w http.ResponseWriter, r *http.Request) {
	opts := sessions.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}
	list, err := h.cfg.Store.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createChat(w http.ResponseWriter, r *http.Request) {
	session, err := h.cfg.Store.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) getChat(w http.ResponseWriter, r *http.Request) {
	session, err := h.cfg.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var plan models.ManualPlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeError(w, http.StatusBadRequest, "plan_error", err)
		return
	}

	session, err := h.cfg.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	session.Plan = plan
	if err := h.cfg.Store.Put(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) setSupervisor(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "plan_error", errors.New("enabled must be true or false"))
		return
	}

	session, err := h.cfg.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	session.SupervisorMode = enabled
	if err := h.cfg.Store.Put(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type messageRequest struct {
	Text string `json:"text"`
}

// sendMessage runs a turn to completion and returns the final session
// state plus every frame emitted, as a JSON body rather than NDJSON
// (spec.md §6: the non-streaming sibling of message/stream).
func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "plan_error", err)
		return
	}

	events, err := h.cfg.Orchestrator.RunTurn(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	var frames []models.StreamEvent
	for ev := range events {
		frames = append(frames, ev)
	}

	session, err := h.cfg.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Session *models.Session      `json:"session"`
		Events  []models.StreamEvent `json:"events"`
	}{Session: session, Events: frames})
}

func (h *Handler) streamMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "plan_error", err)
		return
	}

	events, err := h.cfg.Orchestrator.RunTurn(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	sw := stream.NewWriter(w)
	if err := stream.Pipe(r.Context(), sw, events); err != nil {
		h.cfg.Logger.Error("stream interrupted", "error", err)
	}
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Agents.List())
}

func (h *Handler) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []models.ToolDefinition{
		{
			ID:                 tools.ToolWebSearch,
			Description:        "Searches the web for current or time-sensitive information.",
			UseCases:           []string{"weather", "news", "prices", "current events"},
			RelevanceThreshold: 0.5,
			FallbackPolicy:     "skip",
		},
		{
			ID:                 tools.ToolKnowledge,
			Description:        "Looks up a curated knowledge sub-document by domain term.",
			UseCases:           []string{"recipes", "cultural background", "reference facts"},
			RelevanceThreshold: 0.5,
			FallbackPolicy:     "skip",
		},
	})
}

func (h *Handler) listKnowledge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Knowledge.Documents())
}

func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.cfg.Store.Cleanup(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Removed int `json:"removed"`
	}{Removed: n})
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, sessions.ErrNotFound) {
		writeError(w, http.StatusNotFound, "store_error", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "store_error", err)
}

func writeTurnError(w http.ResponseWriter, err error) {
	var te *orchestrator.TurnError
	if errors.As(err, &te) {
		status := http.StatusInternalServerError
		switch te.Kind {
		case orchestrator.ErrorBusy:
			status = http.StatusConflict
		case orchestrator.ErrorCancelled:
			status = http.StatusRequestTimeout
		}
		writeError(w, status, string(te.Kind), te)
		return
	}
	writeError(w, http.StatusInternalServerError, "store_error", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, models.StreamEvent{
		Type:      models.StreamError,
		ErrorKind: kind,
		Message:   err.Error(),
	})
}
