package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	apiTypes "github.com/codedeck/codedeck/pkg/api"
)

const wsWriteTimeout = 10 * time.Second

var chatUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatWebSocket streams one chat run over a WebSocket. The client sends a
// single ChatRequest frame; the server answers with event frames and closes
// after done. The stream is one-directional past that first frame — the
// read loop only watches for the client going away, which cancels the run.
func (h *Handler) chatWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req apiTypes.ChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.writeWSError(conn, "", "invalid request frame", "")
		return
	}

	run, err := h.startRun(req)
	if err != nil {
		h.writeWSError(conn, "", chatErrorMessage(err), "")
		return
	}

	recv := run.Stream.Subscribe(h.chat.StreamBuffer())
	defer recv.Close()
	run.Start(r.Context())

	// A closed or erroring read means the client is gone.
	readerGone := make(chan struct{})
	go func() {
		defer close(readerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readerGone:
			run.Stream.Cancel()
			return
		case event, ok := <-recv.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(domainEventToAPIEvent(run.ID, event)); err != nil {
				run.Stream.Cancel()
				return
			}
		}
	}
}

// writeWSError sends one error event frame and closes the socket; on a
// dead socket it gives up silently.
func (h *Handler) writeWSError(conn *websocket.Conn, runID, message, code string) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteJSON(apiTypes.StreamEvent{
		Type:      apiTypes.EventTypeError,
		RunID:     runID,
		Timestamp: time.Now(),
		Data:      apiTypes.ErrorData{Message: message, Code: code},
	})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message),
		time.Now().Add(wsWriteTimeout))
}
