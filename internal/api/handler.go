// Package api exposes the chat bridge over HTTP: an SSE endpoint for
// streaming chat runs, a WebSocket variant, a CLI status probe, and run
// transcript retrieval.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codedeck/codedeck/internal/claude"
	"github.com/codedeck/codedeck/internal/domain"
	"github.com/codedeck/codedeck/internal/service"
	"github.com/codedeck/codedeck/internal/storage"
	apiTypes "github.com/codedeck/codedeck/pkg/api"
)

// Handler routes REST API requests to the chat service.
type Handler struct {
	chat *service.ChatService
	log  *slog.Logger
}

// NewHandler creates a Handler backed by the given chat service.
func NewHandler(chat *service.ChatService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{chat: chat, log: log}
}

// Mount registers all API routes on the provided router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/api/health", h.health)
	r.Get("/api/claude/status", h.claudeStatus)
	r.Post("/api/chat", h.chatSSE)
	r.Get("/api/chat/ws", h.chatWebSocket)
	r.Get("/api/runs/{runID}/transcript", h.getTranscript)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiTypes.HealthResponse{Status: "ok"})
}

func (h *Handler) claudeStatus(w http.ResponseWriter, r *http.Request) {
	status := h.chat.Status(r.Context())
	writeJSON(w, http.StatusOK, apiTypes.ClaudeStatusResponse{
		Reachable: status.Reachable,
		Version:   status.Version,
		Error:     status.Error,
	})
}

func (h *Handler) getTranscript(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	records, err := h.chat.Transcript(runID)
	var corruption *storage.TranscriptCorruptionError
	switch {
	case errors.As(err, &corruption):
		// Readable records still come back; serve them.
		h.log.Warn("transcript partially corrupt",
			"run_id", runID, "corrupt_lines", corruption.CorruptLines)
	case errors.Is(err, service.ErrTranscriptsDisabled),
		errors.Is(err, storage.ErrRunNotFound),
		errors.Is(err, storage.ErrInvalidRunID):
		writeError(w, http.StatusNotFound, "transcript not found", "")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to read transcript", err.Error())
		return
	}

	resp := apiTypes.TranscriptResponse{
		RunID:   runID,
		Records: make([]apiTypes.TranscriptRecord, len(records)),
	}
	for i, rec := range records {
		resp.Records[i] = apiTypes.TranscriptRecord{
			Sequence:  rec.Sequence,
			Timestamp: rec.Timestamp,
			Kind:      string(rec.Kind),
			Payload:   string(rec.Payload),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// startRun validates the request body and prepares a run. Transport
// handlers call it before committing to a streaming response so validation
// failures can still be plain HTTP errors.
func (h *Handler) startRun(req apiTypes.ChatRequest) (*service.Run, error) {
	history := make([]domain.ConversationTurn, len(req.ConversationHistory))
	for i, turn := range req.ConversationHistory {
		history[i] = domain.ConversationTurn{
			Role:    domain.TurnRole(turn.Role),
			Content: turn.Content,
		}
	}

	return h.chat.StartChat(service.ChatParams{
		Message:       req.Message,
		WorkspacePath: req.WorkspacePath,
		History:       history,
	})
}

// writeChatError maps chat service errors to HTTP responses. Validation
// failures are the client's fault; everything else is a 500.
func writeChatError(w http.ResponseWriter, err error) {
	if isChatRequestError(err) {
		writeError(w, http.StatusBadRequest, chatErrorMessage(err), "")
		return
	}
	writeError(w, http.StatusInternalServerError, chatErrorMessage(err), err.Error())
}

func isChatRequestError(err error) bool {
	return errors.Is(err, claude.ErrEmptyMessage) ||
		errors.Is(err, service.ErrWorkspaceOutsideRoot) ||
		errors.Is(err, service.ErrWorkspaceNotFound)
}

func chatErrorMessage(err error) string {
	switch {
	case errors.Is(err, claude.ErrEmptyMessage):
		return "message is required"
	case errors.Is(err, service.ErrWorkspaceOutsideRoot):
		return "workspace path is not allowed"
	case errors.Is(err, service.ErrWorkspaceNotFound):
		return "workspace directory does not exist"
	default:
		return "failed to start chat"
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := apiTypes.ErrorResponse{Error: message}
	if details != "" {
		resp.Details = details
	}
	_ = json.NewEncoder(w).Encode(resp)
}
