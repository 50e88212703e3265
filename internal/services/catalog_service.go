package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"sweetshop/internal/backend"
	"sweetshop/internal/cart"
	"sweetshop/internal/models"
	"sweetshop/internal/session"
)

// ErrSignInRequired is returned when a purchase is attempted without an
// authenticated session.
var ErrSignInRequired = errors.New("sign in to purchase sweets")

var ErrSweetNotFound = errors.New("sweet not found")

// PurchaseReceipt is what the customer sees after a successful purchase.
// Total is preformatted with two decimals the way the shop displays money.
type PurchaseReceipt struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

// CatalogService is the customer page's working state: the public inventory
// cache, client-side filters over it, and the ephemeral cart. Purchases are
// the only operation that talks to the backend; everything else is local
// derived state.
type CatalogService struct {
	api      *backend.Client
	sessions *session.Store
	logger   zerolog.Logger
	basket   *cart.Cart

	mu     sync.Mutex
	sweets []models.Sweet
}

func NewCatalogService(api *backend.Client, sessions *session.Store, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		api:      api,
		sessions: sessions,
		logger:   logger,
		basket:   cart.New(),
	}
}

// Load fetches the public inventory collection; no token is needed.
func (s *CatalogService) Load(ctx context.Context) ([]models.Sweet, error) {
	sweets, err := s.api.ListSweets(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sweets = sweets
	s.mu.Unlock()

	return s.Sweets("", ""), nil
}

// Sweets returns the cached catalog filtered locally by category and name
// substring. Empty filters pass everything. Matching is case-insensitive.
func (s *CatalogService) Sweets(category, name string) []models.Sweet {
	s.mu.Lock()
	defer s.mu.Unlock()

	category = strings.ToLower(strings.TrimSpace(category))
	name = strings.ToLower(strings.TrimSpace(name))

	out := make([]models.Sweet, 0, len(s.sweets))
	for _, sweet := range s.sweets {
		if category != "" && strings.ToLower(sweet.Category) != category {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(sweet.Name), name) {
			continue
		}
		out = append(out, sweet)
	}
	return out
}

// Categories lists the distinct categories present in the cached catalog,
// for the filter control.
func (s *CatalogService) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	var out []string
	for _, sweet := range s.sweets {
		if sweet.Category == "" || seen[sweet.Category] {
			continue
		}
		seen[sweet.Category] = true
		out = append(out, sweet.Category)
	}
	return out
}

// Purchase buys a quantity of one sweet. On success the cached quantity is
// decremented optimistically and the receipt carries the quantity times the
// listed price.
func (s *CatalogService) Purchase(ctx context.Context, id string, quantity int) (PurchaseReceipt, error) {
	sess := s.sessions.Current()
	if !sess.IsAuthenticated {
		return PurchaseReceipt{}, ErrSignInRequired
	}
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	sweet, ok := findSweet(s.sweets, id)
	s.mu.Unlock()
	if !ok {
		return PurchaseReceipt{}, ErrSweetNotFound
	}

	if _, err := s.api.Purchase(ctx, sess.Token, id, quantity); err != nil {
		return PurchaseReceipt{}, err
	}

	s.mu.Lock()
	for i := range s.sweets {
		if s.sweets[i].ID == id {
			s.sweets[i].Quantity -= quantity
		}
	}
	s.mu.Unlock()

	receipt := PurchaseReceipt{
		Name:     sweet.Name,
		Quantity: quantity,
		Total:    fmt.Sprintf("%.2f", sweet.Price*float64(quantity)),
	}

	s.logger.Info().Str("sweet", sweet.Name).Int("quantity", quantity).Str("total", receipt.Total).Msg("Purchase completed")
	return receipt, nil
}

// AddToCart puts a cached sweet into the cart.
func (s *CatalogService) AddToCart(id string, quantity int) error {
	s.mu.Lock()
	sweet, ok := findSweet(s.sweets, id)
	s.mu.Unlock()
	if !ok {
		return ErrSweetNotFound
	}
	s.basket.Add(sweet, quantity)
	return nil
}

func (s *CatalogService) RemoveFromCart(id string) {
	s.basket.Remove(id)
}

func (s *CatalogService) CartLines() []cart.Line {
	return s.basket.Lines()
}

func (s *CatalogService) CartTotal() float64 {
	return s.basket.Total()
}
