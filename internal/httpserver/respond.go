package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// RespondError writes err using the shared apierr envelope. Pass the
// request-scoped logger so internal errors get logged with context.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	apierr.WriteError(w, logger, err)
}
