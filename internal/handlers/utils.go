package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/akolanti/landbot/internal/adapter"
	"github.com/akolanti/landbot/internal/chatbot"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are gone, nothing left to tell the client
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string, code string, details string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(message, code, details))
}

// writeServiceError maps chatbot errors to their status; anything else is a 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var ce *chatbot.Error
	if errors.As(err, &ce) {
		if ce.Code == chatbot.ErrorInternal || ce.Code == chatbot.ErrorUpstream {
			logRH.FromContext(ctx).Error("Request failed", "code", ce.Code, "error", err)
		}
		WriteErrorResponse(w, ce.HTTPStatus(), ce.Reason, string(ce.Code), "")
		return
	}
	logRH.FromContext(ctx).Error("Unexpected error", "error", err)
	WriteErrorResponse(w, http.StatusInternalServerError, "Erreur interne du serveur", string(chatbot.ErrorInternal), "")
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.FromContext(ctx).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, into any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer func() {
		if err := r.Body.Close(); err != nil {
			logRH.FromContext(r.Context()).Debug("Couldn't close request body", "error", err)
		}
	}()
	return json.NewDecoder(r.Body).Decode(into)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(key + " doit être un entier positif")
	}
	return v, nil
}

func (h *Handler) getTargetDirectory() (string, error) {
	targetDir := h.uploadDir
	if targetDir == "" {
		root, err := os.Getwd()
		if err != nil {
			return "", err
		}
		targetDir = filepath.Join(root, "temporary_data")
	}
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", err
	}
	return targetDir, nil
}
