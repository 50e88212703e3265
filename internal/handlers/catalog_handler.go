package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"sweetshop/internal/services"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
	logger         zerolog.Logger
}

func NewCatalogHandler(catalogService *services.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

func (h *CatalogHandler) ListSweets(w http.ResponseWriter, r *http.Request) {
	if _, err := h.catalogService.Load(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	sweets := h.catalogService.Sweets(r.URL.Query().Get("category"), r.URL.Query().Get("name"))
	respondWithJSON(w, http.StatusOK, sweets)
}

func (h *CatalogHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	quantity := 1
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondWithError(w, http.StatusBadRequest, "invalid_quantity", "Quantity must be a positive integer")
			return
		}
		quantity = parsed
	}

	receipt, err := h.catalogService.Purchase(r.Context(), id, quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, receipt)
}

func (h *CatalogHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w)
}

func (h *CatalogHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SweetID  string `json:"sweet_id"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SweetID == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.catalogService.AddToCart(req.SweetID, req.Quantity); err != nil {
		respondServiceError(w, err)
		return
	}
	h.respondCart(w)
}

func (h *CatalogHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.catalogService.RemoveFromCart(mux.Vars(r)["id"])
	h.respondCart(w)
}

func (h *CatalogHandler) respondCart(w http.ResponseWriter) {
	respondWithJSON(w, http.StatusOK, cartState{
		Lines: h.catalogService.CartLines(),
		Total: h.catalogService.CartTotal(),
	})
}
