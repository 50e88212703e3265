package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"sweetshop/internal/models"
	"sweetshop/internal/storage"
)

const (
	tokenKey   = "token"
	profileKey = "user"
)

// Session is the gateway's belief about who is signed in. Role and Profile
// are only meaningful while IsAuthenticated is true.
type Session struct {
	IsAuthenticated bool
	Token           string
	Role            string
	Profile         *models.User
}

// Store is the single source of truth for the signed-in user. It keeps two
// entries in durable storage, a bearer token and a JSON-serialized profile,
// and treats them as one unit: both present and readable, or the session is
// unauthenticated. A profile that is present but unparseable, or a token
// that is a JWT past its expiry, is repaired by clearing both entries
// silently rather than surfacing an error.
type Store struct {
	storage storage.Store
	logger  zerolog.Logger

	mu      sync.Mutex
	current Session
	subs    []chan Session
	quit    chan struct{}
	once    sync.Once
}

func NewStore(st storage.Store, logger zerolog.Logger) *Store {
	s := &Store{
		storage: st,
		logger:  logger,
		quit:    make(chan struct{}),
	}
	s.current = s.read()

	go s.watchStorage(st.Watch())
	return s
}

// Current re-reads and validates both storage entries, updates the cached
// state, and returns it. Callers get a consistent snapshot even when a
// login or logout races with them in another goroutine.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked()
}

// Login establishes a session from a token and profile the caller already
// obtained from the backend. No network I/O happens here; in-memory state
// is updated synchronously so an observer polling immediately after this
// call sees the new session.
func (s *Store) Login(token string, profile models.User) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(tokenKey, token); err != nil {
		return err
	}
	if err := s.storage.Set(profileKey, string(data)); err != nil {
		return err
	}

	p := profile
	s.setLocked(Session{
		IsAuthenticated: true,
		Token:           token,
		Role:            profile.Role,
		Profile:         &p,
	})

	s.logger.Info().Str("role", profile.Role).Str("name", profile.Name).Msg("Session established")
	return nil
}

// Logout clears both entries and resets the state. Calling it on an already
// signed-out store is a no-op.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// Subscribe returns a channel that receives the new session state after
// every transition, including ones triggered by another process writing the
// shared storage. Slow receivers miss intermediate states, never the need
// to re-query.
func (s *Store) Subscribe() <-chan Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Session, 1)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Store) Close() {
	s.once.Do(func() { close(s.quit) })
}

func (s *Store) watchStorage(events <-chan struct{}) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
			s.mu.Lock()
			s.refreshLocked()
			s.mu.Unlock()
		case <-s.quit:
			return
		}
	}
}

// refreshLocked runs the read-and-validate logic and publishes the result
// if the state changed.
func (s *Store) refreshLocked() Session {
	next := s.read()
	if !sameSession(s.current, next) {
		s.setLocked(next)
	}
	return s.current
}

// read derives the session from storage. Any defect in the persisted pair
// downgrades to unauthenticated; parse failures and expired JWTs also wipe
// the entries so the bad state cannot come back on the next read.
func (s *Store) read() Session {
	token, hasToken, err := s.storage.Get(tokenKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read token entry")
		return Session{}
	}
	rawProfile, hasProfile, err := s.storage.Get(profileKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read profile entry")
		return Session{}
	}

	if !hasToken || !hasProfile {
		return Session{}
	}

	var profile models.User
	if err := json.Unmarshal([]byte(rawProfile), &profile); err != nil {
		s.logger.Warn().Err(err).Msg("Stored profile is corrupt, clearing session")
		s.wipe()
		return Session{}
	}

	if tokenExpired(token) {
		s.logger.Info().Msg("Stored token is expired, clearing session")
		s.wipe()
		return Session{}
	}

	return Session{
		IsAuthenticated: true,
		Token:           token,
		Role:            profile.Role,
		Profile:         &profile,
	}
}

func (s *Store) clearLocked() error {
	if err := s.storage.Delete(tokenKey); err != nil {
		return err
	}
	if err := s.storage.Delete(profileKey); err != nil {
		return err
	}
	if s.current.IsAuthenticated {
		s.logger.Info().Msg("Session cleared")
	}
	s.setLocked(Session{})
	return nil
}

// wipe removes both entries during self-healing. Errors are logged only;
// recovery must never fail the read that triggered it.
func (s *Store) wipe() {
	if err := s.storage.Delete(tokenKey); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to delete token entry")
	}
	if err := s.storage.Delete(profileKey); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to delete profile entry")
	}
}

func (s *Store) setLocked(next Session) {
	s.current = next
	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
		}
	}
}

func sameSession(a, b Session) bool {
	if a.IsAuthenticated != b.IsAuthenticated {
		return false
	}
	return a.Token == b.Token && a.Role == b.Role
}

// tokenExpired inspects the stored credential without verifying it: the
// gateway has no signing secret, it only wants to drop a JWT the backend
// will reject anyway. Tokens that are not JWTs stay opaque and pass.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
