package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sweetshop/internal/backend"
	"sweetshop/internal/models"
	"sweetshop/internal/session"
)

// ErrAdminRequired is returned when an admin operation is attempted without
// an authenticated admin session. The service re-checks this itself so no
// inventory fetch ever happens for a denied mount.
var ErrAdminRequired = errors.New("admin access required")

// AdminService is the admin console's working state: the fetched inventory
// plus the currently displayed (possibly search-filtered) view. Mutations
// are one backend round-trip reconciled optimistically into the local list
// from the server's response, with locally-entered values filling any field
// the server omitted.
type AdminService struct {
	api      *backend.Client
	sessions *session.Store
	logger   zerolog.Logger

	mu       sync.Mutex
	all      []models.Sweet
	filtered []models.Sweet
	searched bool
}

func NewAdminService(api *backend.Client, sessions *session.Store, logger zerolog.Logger) *AdminService {
	return &AdminService{
		api:      api,
		sessions: sessions,
		logger:   logger,
	}
}

// token returns the admin's bearer token or ErrAdminRequired.
func (s *AdminService) token() (string, error) {
	sess := s.sessions.Current()
	if !sess.IsAuthenticated || sess.Role != string(models.RoleAdmin) {
		return "", ErrAdminRequired
	}
	return sess.Token, nil
}

// Load fetches the full inventory collection. Denied sessions never reach
// the backend.
func (s *AdminService) Load(ctx context.Context) ([]models.Sweet, error) {
	if _, err := s.token(); err != nil {
		return nil, err
	}

	sweets, err := s.api.ListSweets(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.all = sweets
	s.filtered = nil
	s.searched = false
	s.mu.Unlock()

	return s.Sweets(), nil
}

// Sweets returns the currently displayed list: the search result when a
// search is active, the full inventory otherwise.
func (s *AdminService) Sweets() []models.Sweet {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.all
	if s.searched {
		src = s.filtered
	}
	out := make([]models.Sweet, len(src))
	copy(out, src)
	return out
}

// Search runs a server-side filtered query. An empty query clears the
// filter and shows the cached full inventory without a round-trip.
func (s *AdminService) Search(ctx context.Context, q models.SearchQuery) ([]models.Sweet, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}

	if q.IsEmpty() {
		s.mu.Lock()
		s.filtered = nil
		s.searched = false
		s.mu.Unlock()
		return s.Sweets(), nil
	}

	sweets, err := s.api.SearchSweets(ctx, token, q)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.filtered = sweets
	s.searched = true
	s.mu.Unlock()

	return s.Sweets(), nil
}

// ClearSearch drops an active filter.
func (s *AdminService) ClearSearch() []models.Sweet {
	s.mu.Lock()
	s.filtered = nil
	s.searched = false
	s.mu.Unlock()
	return s.Sweets()
}

// Add creates a sweet and appends the reconciled record to the local list.
func (s *AdminService) Add(ctx context.Context, input models.SweetInput) (models.Sweet, error) {
	token, err := s.token()
	if err != nil {
		return models.Sweet{}, err
	}

	patch, err := s.api.AddSweet(ctx, token, input)
	if err != nil {
		return models.Sweet{}, err
	}

	sweet := reconcile(models.Sweet{}, patch, input)
	if sweet.ID == "" {
		// The backend omitted the identifier; synthesize one so the row
		// stays addressable until the next full reload.
		sweet.ID = timestampID()
	}

	s.mu.Lock()
	s.all = append(s.all, sweet)
	if s.searched {
		s.filtered = append(s.filtered, sweet)
	}
	s.mu.Unlock()

	s.logger.Info().Str("sweet", sweet.Name).Str("category", sweet.Category).Msg("Sweet added")
	return sweet, nil
}

// Update edits name, category, and price of an existing sweet.
func (s *AdminService) Update(ctx context.Context, id string, input models.SweetInput) (models.Sweet, error) {
	token, err := s.token()
	if err != nil {
		return models.Sweet{}, err
	}

	patch, err := s.api.UpdateSweet(ctx, token, id, input)
	if err != nil {
		return models.Sweet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := models.Sweet{ID: id}
	if existing, ok := findSweet(s.all, id); ok {
		current = existing
	}

	sweet := reconcile(current, patch, input)
	if sweet.ID == "" {
		sweet.ID = id
	}
	replaceSweet(s.all, id, sweet)
	replaceSweet(s.filtered, id, sweet)

	s.logger.Info().Str("sweet_id", id).Msg("Sweet updated")
	return sweet, nil
}

// Delete removes the sweet remotely and locally.
func (s *AdminService) Delete(ctx context.Context, id string) error {
	token, err := s.token()
	if err != nil {
		return err
	}

	if err := s.api.DeleteSweet(ctx, token, id); err != nil {
		return err
	}

	s.mu.Lock()
	s.all = removeSweet(s.all, id)
	s.filtered = removeSweet(s.filtered, id)
	s.mu.Unlock()

	s.logger.Info().Str("sweet_id", id).Msg("Sweet deleted")
	return nil
}

// Restock raises the quantity; only the quantity from the response is
// folded back into the local row.
func (s *AdminService) Restock(ctx context.Context, id string, quantity int) (models.Sweet, error) {
	token, err := s.token()
	if err != nil {
		return models.Sweet{}, err
	}

	patch, err := s.api.Restock(ctx, token, id, quantity)
	if err != nil {
		return models.Sweet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, ok := findSweet(s.all, id)
	if !ok {
		updated = models.Sweet{ID: id}
	}
	if patch.Quantity != nil {
		updated.Quantity = *patch.Quantity
	}
	replaceSweet(s.all, id, updated)
	replaceSweet(s.filtered, id, updated)

	s.logger.Info().Str("sweet_id", id).Int("quantity", updated.Quantity).Msg("Sweet restocked")
	return updated, nil
}

// reconcile merges a mutation response over the known record, preferring
// the server's value for every field it sent and the local input for every
// field it omitted.
func reconcile(current models.Sweet, patch models.SweetPatch, input models.SweetInput) models.Sweet {
	out := current

	if patch.ID != nil {
		out.ID = *patch.ID
	}
	if patch.Name != nil {
		out.Name = *patch.Name
	} else if input.Name != "" {
		out.Name = input.Name
	}
	if patch.Category != nil {
		out.Category = *patch.Category
	} else if input.Category != "" {
		out.Category = input.Category
	}
	if patch.Price != nil {
		out.Price = *patch.Price
	} else {
		out.Price = input.Price
	}
	if patch.Quantity != nil {
		out.Quantity = *patch.Quantity
	} else if input.Quantity != 0 {
		out.Quantity = input.Quantity
	}
	if patch.LastAction != nil {
		out.LastAction = patch.LastAction
	}
	if patch.History != nil {
		out.History = patch.History
	}
	if patch.CreatedAt != nil {
		out.CreatedAt = *patch.CreatedAt
	} else if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now()
	}
	if patch.UpdatedAt != nil {
		out.UpdatedAt = *patch.UpdatedAt
	} else {
		out.UpdatedAt = time.Now()
	}

	return out
}

func findSweet(list []models.Sweet, id string) (models.Sweet, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return models.Sweet{}, false
}

func replaceSweet(list []models.Sweet, id string, sweet models.Sweet) {
	for i := range list {
		if list[i].ID == id {
			list[i] = sweet
		}
	}
}

func removeSweet(list []models.Sweet, id string) []models.Sweet {
	out := list[:0]
	for _, s := range list {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func timestampID() string {
	return time.Now().UTC().Format("20060102150405.000000000")
}
