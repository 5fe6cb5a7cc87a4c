package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ssematimba/gate-check/internal/session"
)

// streamSessionEvents streams outcome events from a session over SSE until
// the client disconnects or the session stops.
func streamSessionEvents(w http.ResponseWriter, r *http.Request, managed *ManagedSession) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventCh := managed.Broadcaster.AddListener()
	defer managed.Broadcaster.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "status", sessionToResponse(managed))

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Type), event)
			if managed.State() == session.StateStopped {
				return
			}
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
