package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	domainerrors "github.com/foruapp/foru/internal/errors"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError translates err to a status code and a {"error": ...} body.
// Validation failures also carry their field details. Server-side failures
// are logged here and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domainerrors.CodeOf(err)
	status := code.HTTPStatus()

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
		msg := "internal error"
		switch code {
		case domainerrors.CodeStorage, domainerrors.CodeUpstream:
			msg = domainerrors.MessageOf(err)
		}
		jsonError(w, http.StatusInternalServerError, msg)
		return
	}

	var de *domainerrors.Error
	if domainerrors.As(err, &de) && de.Details != nil {
		jsonResponse(w, status, map[string]any{"error": de.Message, "details": de.Details})
		return
	}
	jsonError(w, status, domainerrors.MessageOf(err))
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target); err != nil {
		return domainerrors.Validation(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
