package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"sweetshop/internal/backend"
	"sweetshop/internal/services"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	respondWithJSON(w, code, map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// respondServiceError translates a service failure into the inline message
// the page shows. Backend rejections keep their status and message;
// anything transport-shaped becomes a bad-gateway message. Nothing here is
// ever fatal to the gateway itself.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAdminRequired):
		respondWithError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, services.ErrSignInRequired):
		respondWithError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, services.ErrSweetNotFound):
		respondWithError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		if apiErr, ok := backend.AsAPIError(err); ok {
			message := apiErr.Message
			if message == "" {
				message = "The shop backend rejected the request"
			}
			respondWithError(w, apiErr.Status, "backend_error", message)
			return
		}
		respondWithError(w, http.StatusBadGateway, "backend_unreachable", "Could not reach the shop backend")
	}
}
