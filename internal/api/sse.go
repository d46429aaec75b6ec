package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/codedeck/codedeck/internal/domain"
	apiTypes "github.com/codedeck/codedeck/pkg/api"
)

// chatSSE runs one chat request and streams its canonical events as
// Server-Sent Events. The subscription is registered before the run starts
// so that no event, not even an instant spawn failure, is lost between the
// client seeing the 200 and the first push.
func (h *Handler) chatSSE(w http.ResponseWriter, r *http.Request) {
	var req apiTypes.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "")
		return
	}

	run, err := h.startRun(req)
	if err != nil {
		writeChatError(w, err)
		return
	}

	recv := run.Stream.Subscribe(h.chat.StreamBuffer())
	defer recv.Close()
	run.Start(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			// Client is gone; kill the process and stop reading. Events
			// still in flight are dropped, never truncated.
			run.Stream.Cancel()
			return
		case event, ok := <-recv.C:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, run.ID, event); err != nil {
				run.Stream.Cancel()
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent serialises a single canonical event in the SSE wire format:
//
//	event: <type>\n
//	data: <json>\n
//	\n
func writeSSEEvent(w http.ResponseWriter, runID string, event domain.Event) error {
	apiEvent := domainEventToAPIEvent(runID, event)
	data, err := json.Marshal(apiEvent)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", apiEvent.Type, data)
	return err
}
