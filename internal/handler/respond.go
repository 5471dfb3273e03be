package handler

import (
	"encoding/json"
	"net/http"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Base().Error("failed to encode response body", zap.Error(err))
	}
}

// writeError maps err's apperr.Kind to an HTTP status and a safe public
// message, never leaking internal error detail for Authentication or
// Internal kinds (§7).
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(apperr.KindOf(err))
	if status >= http.StatusInternalServerError {
		logger.Base().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": apperr.PublicMessage(err)})
}
