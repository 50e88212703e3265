package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"sweetshop/internal/backend"
	"sweetshop/internal/models"
	"sweetshop/internal/session"
	"sweetshop/internal/storage"
)

// fakeShop is a stand-in for the remote sweets backend: a bcrypt-checked
// account table and a sweets collection behind the same HTTP surface the
// gateway consumes.
type fakeShop struct {
	t      *testing.T
	users  map[string]fakeAccount
	sweets []models.Sweet
	// omitOnAdd lists response fields the add endpoint should drop, to
	// exercise the local-fallback reconciliation.
	omitOnAdd map[string]bool
}

type fakeAccount struct {
	name string
	role string
	hash []byte
}

func newFakeShop(t *testing.T) *fakeShop {
	return &fakeShop{
		t:         t,
		users:     map[string]fakeAccount{},
		omitOnAdd: map[string]bool{},
	}
}

func (f *fakeShop) addAccount(name, email, password, role string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	f.users[email] = fakeAccount{name: name, role: role, hash: hash}
}

func (f *fakeShop) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		account, ok := f.users[req.Email]
		if !ok || bcrypt.CompareHashAndPassword(account.hash, []byte(req.Password)) != nil {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Invalid email or password"})
			return
		}

		json.NewEncoder(w).Encode(models.AuthResponse{
			Token: "token-" + req.Email,
			User:  models.User{Name: account.name, Email: req.Email, Role: account.role},
		})
	})

	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if _, exists := f.users[req.Email]; exists {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "User already exists"})
			return
		}
		f.addAccount(req.Name, req.Email, req.Password, "customer")

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.AuthResponse{
			Token: "token-" + req.Email,
			User:  models.User{Name: req.Name, Email: req.Email, Role: "customer"},
		})
	})

	mux.HandleFunc("/api/sweets", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(f.sweets)
	})

	mux.HandleFunc("/api/sweets/search", func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		name := r.URL.Query().Get("name")
		out := []models.Sweet{}
		for _, s := range f.sweets {
			if category != "" && s.Category != category {
				continue
			}
			if name != "" && s.Name != name {
				continue
			}
			out = append(out, s)
		}
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("/api/sweets/addSweets", func(w http.ResponseWriter, r *http.Request) {
		var input models.SweetInput
		_ = json.NewDecoder(r.Body).Decode(&input)

		sweet := models.Sweet{
			ID:        "srv-1",
			Name:      input.Name,
			Category:  input.Category,
			Price:     input.Price,
			Quantity:  input.Quantity,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		f.sweets = append(f.sweets, sweet)

		resp := map[string]any{}
		if !f.omitOnAdd["_id"] {
			resp["_id"] = sweet.ID
		}
		if !f.omitOnAdd["name"] {
			resp["name"] = sweet.Name
		}
		if !f.omitOnAdd["category"] {
			resp["category"] = sweet.Category
		}
		if !f.omitOnAdd["price"] {
			resp["price"] = sweet.Price
		}
		if !f.omitOnAdd["quantity"] {
			resp["quantity"] = sweet.Quantity
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/update/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/update/"):]
		var body struct {
			Name     string  `json:"name"`
			Category string  `json:"category"`
			Price    float64 `json:"price"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		for i := range f.sweets {
			if f.sweets[i].ID == id {
				f.sweets[i].Name = body.Name
				f.sweets[i].Category = body.Category
				f.sweets[i].Price = body.Price
				// The real backend habitually omits fields here; answer
				// with a sparse object.
				json.NewEncoder(w).Encode(map[string]any{"_id": id, "name": body.Name})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Sweet not found"})
	})

	mux.HandleFunc("/delete/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/delete/"):]
		for i := range f.sweets {
			if f.sweets[i].ID == id {
				f.sweets = append(f.sweets[:i], f.sweets[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("/api/sweets/", func(w http.ResponseWriter, r *http.Request) {
		// /api/sweets/{id}/restock and /api/sweets/{id}/purchase
		path := r.URL.Path[len("/api/sweets/"):]
		for i := range f.sweets {
			s := &f.sweets[i]
			switch path {
			case s.ID + "/restock":
				n := atoi(r.URL.Query().Get("restoreQuantity"))
				s.Quantity += n
				json.NewEncoder(w).Encode(map[string]any{"_id": s.ID, "quantity": s.Quantity})
				return
			case s.ID + "/purchase":
				n := atoi(r.URL.Query().Get("quantity"))
				if n > s.Quantity {
					w.WriteHeader(http.StatusBadRequest)
					json.NewEncoder(w).Encode(map[string]string{"message": "Insufficient stock"})
					return
				}
				s.Quantity -= n
				json.NewEncoder(w).Encode(map[string]string{"message": "Purchase successful"})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	return requireBearer(mux)
}

// requireBearer enforces the token on the endpoints the real backend
// protects.
func requireBearer(next http.Handler) http.Handler {
	open := map[string]bool{
		"/api/auth/login":    true,
		"/api/auth/register": true,
		"/api/sweets":        true,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !open[r.URL.Path] && r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Authorization required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

type testEnv struct {
	shop     *fakeShop
	server   *httptest.Server
	api      *backend.Client
	sessions *session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	shop := newFakeShop(t)
	server := httptest.NewServer(shop.handler())
	t.Cleanup(server.Close)

	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "session.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sessions := session.NewStore(store, zerolog.Nop())
	t.Cleanup(sessions.Close)

	return &testEnv{
		shop:     shop,
		server:   server,
		api:      backend.NewClient(server.URL, 5*time.Second, zerolog.Nop()),
		sessions: sessions,
	}
}

func (e *testEnv) signInAs(t *testing.T, role string) {
	t.Helper()
	if err := e.sessions.Login("token-test", models.User{Name: "T", Role: role}); err != nil {
		t.Fatalf("establish session: %v", err)
	}
}
