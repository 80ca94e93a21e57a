package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ametelin/docqa/internal/core/domain"
)

// streamEventPayload is the wire form of one server-sent event on the
// streaming answer endpoint.
type streamEventPayload struct {
	Type   string         `json:"type"`
	Token  string         `json:"token,omitempty"`
	Result *domain.Answer `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// queryStream answers one question as a server-sent event stream: zero or more
// token events, then exactly one result or error event, then [DONE]. Parameter
// errors are reported as a plain JSON error before any event is written.
func (rt *Router) queryStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming is not supported by response writer")
		return
	}

	start := time.Now()
	events, err := rt.answers.StreamAnswer(r.Context(), req)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	tokens := 0
	for event := range events {
		payload := streamEventPayload{Type: string(event.Type)}
		switch event.Type {
		case domain.StreamToken:
			payload.Token = event.Token
			tokens++
		case domain.StreamResult:
			payload.Result = event.Result
			if rt.metrics != nil && event.Result != nil {
				rt.metrics.RecordAnswer(serviceAPI, "/v1/query/stream",
					string(event.Result.Strategy), string(event.Result.Chain), string(event.Result.Fallback),
					len(event.Result.Sources), time.Since(start))
			}
		case domain.StreamError:
			payload.Error = event.Err.Error()
		}

		if err := writeSSE(w, flusher, payload); err != nil {
			// Client is gone; the producer unwinds via request context
			// cancellation. Drain so the channel close is observed.
			for range events {
			}
			return
		}
	}

	if rt.metrics != nil {
		rt.metrics.RecordStreamTokens(serviceAPI, tokens)
	}

	if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
		return
	}
	flusher.Flush()
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, payload streamEventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
