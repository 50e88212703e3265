package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"sweetshop/internal/cart"
	"sweetshop/internal/guard"
	"sweetshop/internal/middleware"
	"sweetshop/internal/models"
	"sweetshop/internal/services"
	"sweetshop/internal/session"
)

// PageHandler serves the three page routes. Every request runs the route
// guard against the session resolved for this request; a redirect decision
// becomes a 302 and a render decision becomes the page's JSON state
// document (visual rendering lives in the browser, not here).
type PageHandler struct {
	adminService   *services.AdminService
	catalogService *services.CatalogService
	logger         zerolog.Logger
}

func NewPageHandler(adminService *services.AdminService, catalogService *services.CatalogService, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		adminService:   adminService,
		catalogService: catalogService,
		logger:         logger,
	}
}

type cartState struct {
	Lines []cart.Line `json:"lines"`
	Total float64     `json:"total"`
}

type pageState struct {
	Page       string         `json:"page"`
	User       *models.User   `json:"user,omitempty"`
	Sweets     []models.Sweet `json:"sweets,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Cart       *cartState     `json:"cart,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func (h *PageHandler) Root(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, guard.PathRoot)
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, guard.PathLogin)
}

func (h *PageHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, guard.PathCatalog)
}

func (h *PageHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, guard.PathAdmin)
}

// NotFound sends unknown paths back to the root, as the guard's decision
// table demands.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, guard.PathRoot, http.StatusFound)
}

func (h *PageHandler) serve(w http.ResponseWriter, r *http.Request, path string) {
	sess, _ := middleware.GetSession(r)

	decision := guard.Decide(path, sess)
	if decision.Action == guard.ActionRedirect {
		http.Redirect(w, r, decision.Target, http.StatusFound)
		return
	}

	switch decision.Page {
	case guard.PageLogin:
		respondWithJSON(w, http.StatusOK, pageState{Page: guard.PageLogin})
	case guard.PageCatalog:
		h.renderCatalog(w, r, sess)
	case guard.PageAdmin:
		h.renderAdmin(w, r, sess)
	}
}

// renderCatalog fetches the public catalog on every mount and applies the
// client-side filters from the query string to the cached copy. A fetch
// failure still renders the page, with the error inline.
func (h *PageHandler) renderCatalog(w http.ResponseWriter, r *http.Request, sess session.Session) {
	state := pageState{
		Page: guard.PageCatalog,
		User: sess.Profile,
	}

	if _, err := h.catalogService.Load(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to load catalog")
		state.Error = "Failed to fetch sweets"
	}

	state.Sweets = h.catalogService.Sweets(r.URL.Query().Get("category"), r.URL.Query().Get("name"))
	state.Categories = h.catalogService.Categories()
	state.Cart = &cartState{
		Lines: h.catalogService.CartLines(),
		Total: h.catalogService.CartTotal(),
	}

	respondWithJSON(w, http.StatusOK, state)
}

func (h *PageHandler) renderAdmin(w http.ResponseWriter, r *http.Request, sess session.Session) {
	state := pageState{
		Page: guard.PageAdmin,
		User: sess.Profile,
	}

	if _, err := h.adminService.Load(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to load inventory")
		state.Error = "Failed to fetch sweets"
	}
	state.Sweets = h.adminService.Sweets()

	respondWithJSON(w, http.StatusOK, state)
}
