package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"sweetshop/internal/backend"
	"sweetshop/internal/guard"
	"sweetshop/internal/models"
	"sweetshop/internal/session"
)

// ErrBackendUnreachable replaces transport-level failures so handlers can
// show a connectivity message instead of the raw wrapped error. Control
// flow is identical either way: no session mutation happens on any failure.
var ErrBackendUnreachable = errors.New("could not reach the shop backend")

// AuthService drives the login and registration flow: it exchanges
// credentials with the backend and, only on a response carrying a token,
// establishes the session and reports the role-appropriate home path.
type AuthService struct {
	api      *backend.Client
	sessions *session.Store
	logger   zerolog.Logger
}

func NewAuthService(api *backend.Client, sessions *session.Store, logger zerolog.Logger) *AuthService {
	return &AuthService{
		api:      api,
		sessions: sessions,
		logger:   logger,
	}
}

// SignIn authenticates against the backend. On success the session store
// holds the new session before this returns, and the returned path is where
// the caller should navigate next.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return "", s.describe(err, "Login failed")
	}
	return s.establish(resp)
}

// SignUp registers a new account; the backend signs the user in as part of
// registration, so the response is handled exactly like a login.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (string, error) {
	resp, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return "", s.describe(err, "Registration failed")
	}
	return s.establish(resp)
}

// SignOut clears the session. The backend is not told; bearer tokens are
// simply discarded.
func (s *AuthService) SignOut() error {
	return s.sessions.Logout()
}

func (s *AuthService) establish(resp models.AuthResponse) (string, error) {
	if resp.Token == "" {
		return "", errors.New("backend response did not include a token")
	}
	if err := s.sessions.Login(resp.Token, resp.User); err != nil {
		return "", err
	}
	return guard.HomePath(resp.User.Role), nil
}

// describe maps an error into the message the user sees. API rejections
// keep the backend's own message when it sent one; transport failures get
// the generic connectivity error.
func (s *AuthService) describe(err error, fallback string) error {
	if apiErr, ok := backend.AsAPIError(err); ok {
		s.logger.Warn().Int("status", apiErr.Status).Msg(fallback)
		if apiErr.Message != "" {
			return errors.New(apiErr.Message)
		}
		return errors.New(fallback)
	}
	s.logger.Error().Err(err).Msg(fallback)
	return ErrBackendUnreachable
}
