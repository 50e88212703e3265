package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sweetshop/internal/backend"
	"sweetshop/internal/handlers"
	"sweetshop/internal/middleware"
	"sweetshop/internal/models"
	"sweetshop/internal/services"
	"sweetshop/internal/session"
)

// SetupRouter wires the page routes and the action routes. Page routes are
// open; the route guard inside the page handler decides between rendering
// and redirecting. Action routes carry the session requirements directly.
func SetupRouter(api *backend.Client, sessions *session.Store, logger zerolog.Logger) *mux.Router {
	authService := services.NewAuthService(api, sessions, logger)
	adminService := services.NewAdminService(api, sessions, logger)
	catalogService := services.NewCatalogService(api, sessions, logger)

	authHandler := handlers.NewAuthHandler(authService, logger)
	adminHandler := handlers.NewAdminHandler(adminService, logger)
	catalogHandler := handlers.NewCatalogHandler(catalogService, logger)
	pageHandler := handlers.NewPageHandler(adminService, catalogService, logger)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(10), 20)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(rateLimiter.Middleware())
	r.Use(middleware.WithSession(sessions))

	// Pages. The guard runs on every request; nothing is cached across a
	// session transition.
	r.HandleFunc("/", pageHandler.Root).Methods("GET")
	r.HandleFunc("/login", pageHandler.Login).Methods("GET")
	r.HandleFunc("/homepage", pageHandler.Catalog).Methods("GET")
	r.HandleFunc("/admin", pageHandler.Admin).Methods("GET")

	actions := r.PathPrefix("/actions").Subrouter()
	actions.Use(middleware.RequestValidation())
	actions.HandleFunc("/login", authHandler.Login).Methods("POST")
	actions.HandleFunc("/register", authHandler.Register).Methods("POST")
	actions.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireSession(string(models.RoleAdmin)))
	admin.Use(middleware.RequestValidation())
	admin.HandleFunc("/sweets", adminHandler.ListSweets).Methods("GET")
	admin.HandleFunc("/sweets/search", adminHandler.SearchSweets).Methods("GET")
	admin.HandleFunc("/sweets", adminHandler.AddSweet).Methods("POST")
	admin.HandleFunc("/sweets/{id}", adminHandler.UpdateSweet).Methods("PUT")
	admin.HandleFunc("/sweets/{id}", adminHandler.DeleteSweet).Methods("DELETE")
	admin.HandleFunc("/sweets/{id}/restock", adminHandler.RestockSweet).Methods("POST")

	catalog := r.PathPrefix("/homepage").Subrouter()
	catalog.Use(middleware.RequireSession())
	catalog.Use(middleware.RequestValidation())
	catalog.HandleFunc("/sweets", catalogHandler.ListSweets).Methods("GET")
	catalog.HandleFunc("/purchase/{id}", catalogHandler.Purchase).Methods("POST")
	catalog.HandleFunc("/cart", catalogHandler.GetCart).Methods("GET")
	catalog.HandleFunc("/cart", catalogHandler.AddToCart).Methods("POST")
	catalog.HandleFunc("/cart/{id}", catalogHandler.RemoveFromCart).Methods("DELETE")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Unknown paths always land on the login root.
	r.NotFoundHandler = http.HandlerFunc(pageHandler.NotFound)

	return r
}
