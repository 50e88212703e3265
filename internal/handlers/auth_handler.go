package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"sweetshop/internal/guard"
	"sweetshop/internal/models"
	"sweetshop/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
	logger      zerolog.Logger
}

func NewAuthHandler(authService *services.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

type authResult struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Email and password are required")
		return
	}

	home, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, authResult{
		Message:  "Login successful",
		Redirect: home,
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Name, email, and password are required")
		return
	}

	home, err := h.authService.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, authResult{
		Message:  "Registration successful",
		Redirect: home,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(); err != nil {
		h.logger.Error().Err(err).Msg("Logout failed")
		respondWithError(w, http.StatusInternalServerError, "logout_failed", "Failed to clear session")
		return
	}

	respondWithJSON(w, http.StatusOK, authResult{
		Message:  "Signed out",
		Redirect: guard.PathRoot,
	})
}

// respondAuthError keeps the transport/rejection distinction visible in the
// message while both paths leave the session untouched.
func (h *AuthHandler) respondAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrBackendUnreachable) {
		respondWithError(w, http.StatusBadGateway, "backend_unreachable", err.Error())
		return
	}
	respondWithError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
}
