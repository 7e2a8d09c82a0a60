package api

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/AgentForm/internal/models"
)

// fallbackErrorResponse is sent when a response body cannot be marshaled.
var fallbackErrorResponse = func() []byte {
	b, err := json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("api: cannot marshal fallback error response: %v", err))
	}
	return b
}()

// decodeJSONBody decodes a size-limited JSON request body into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)).Decode(dst)
}

// writeJSONError writes the standard error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, models.Error(message))
}

// writeJSONResponse marshals before touching headers so an encoding failure
// can still be reported as a 500.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response any) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		body = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", err)
	}
}

// streamText writes fragments as an unbuffered plain-text body, flushing after
// each one. It stops early when the client goes away and reports the bytes written.
func streamText(w http.ResponseWriter, fragments iter.Seq[string]) int {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	written := 0
	for fragment := range fragments {
		n, err := w.Write([]byte(fragment))
		written += n
		if err != nil {
			slog.Warn("Server.streamText: client went away", "error", err, "bytes", written)
			break
		}
		if err := rc.Flush(); err != nil {
			slog.Debug("Server.streamText: flush not supported", "error", err)
		}
	}
	return written
}
