package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"clinic-scheduling-api/internal/model"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.Any("error", err))
	}
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, messageResponse{Message: msg})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindAuth:
		return http.StatusUnauthorized
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"message": ...}. Internal details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusOf(err)
	if code == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	writeMessage(w, code, model.Message(err))
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewValidationError("Corpo da requisição inválido.")
	}
	return nil
}
