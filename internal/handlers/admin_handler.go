package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"sweetshop/internal/models"
	"sweetshop/internal/services"
)

type AdminHandler struct {
	adminService *services.AdminService
	logger       zerolog.Logger
}

func NewAdminHandler(adminService *services.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

func (h *AdminHandler) ListSweets(w http.ResponseWriter, r *http.Request) {
	sweets, err := h.adminService.Load(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sweets)
}

func (h *AdminHandler) SearchSweets(w http.ResponseWriter, r *http.Request) {
	q := models.SearchQuery{
		Category: r.URL.Query().Get("category"),
		LowPrice: r.URL.Query().Get("low_price"),
		Name:     r.URL.Query().Get("name"),
	}

	sweets, err := h.adminService.Search(r.Context(), q)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sweets)
}

func (h *AdminHandler) AddSweet(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	sweet, err := h.adminService.Add(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, sweet)
}

func (h *AdminHandler) UpdateSweet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	sweet, err := h.adminService.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sweet)
}

func (h *AdminHandler) DeleteSweet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.adminService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Sweet deleted successfully",
	})
}

func (h *AdminHandler) RestockSweet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity < 1 {
		respondWithError(w, http.StatusBadRequest, "invalid_quantity", "Quantity must be a positive integer")
		return
	}

	sweet, err := h.adminService.Restock(r.Context(), id, quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sweet)
}

func (h *AdminHandler) decodeInput(w http.ResponseWriter, r *http.Request) (models.SweetInput, bool) {
	var input models.SweetInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return models.SweetInput{}, false
	}
	if input.Name == "" || input.Category == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Name and category are required")
		return models.SweetInput{}, false
	}
	if input.Price < 0 || input.Quantity < 0 {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Price and quantity must not be negative")
		return models.SweetInput{}, false
	}
	return input, true
}
