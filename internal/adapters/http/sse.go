package httpadapter

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/medassist/chat-backend/internal/core/domain"
)

// streamSSE relays generation events as server-sent events. Each delta is
// flushed immediately; the stream ends with "[DONE]" or an "ERROR - ..."
// data line.
func streamSSE(w http.ResponseWriter, r *http.Request, events <-chan domain.GenerationEvent) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			switch {
			case event.Err != nil:
				writeSSEData(w, "ERROR - "+event.Err.Error())
				flush()
				return
			case event.Done:
				writeSSEData(w, "[DONE]")
				flush()
				return
			case event.Delta != "":
				writeSSEData(w, event.Delta)
				flush()
			}
		}
	}
}

// writeSSEData emits one event. Multi-line payloads become one data: line
// per line so the SSE framing stays valid.
func writeSSEData(w http.ResponseWriter, payload string) {
	for _, line := range strings.Split(payload, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}
