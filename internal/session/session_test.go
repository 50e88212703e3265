package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"sweetshop/internal/models"
	"sweetshop/internal/storage"
)

func newTestStorage(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.NewFileStore(filepath.Join(t.TempDir(), "session.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("create file store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestStore(t *testing.T) (*Store, storage.Store) {
	t.Helper()
	st := newTestStorage(t)
	s := NewStore(st, zerolog.Nop())
	t.Cleanup(s.Close)
	return s, st
}

func TestLoginThenCurrent(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Login("T", models.User{Name: "A", Role: "admin"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	sess := s.Current()
	if !sess.IsAuthenticated {
		t.Fatal("expected authenticated session")
	}
	if sess.Role != "admin" {
		t.Fatalf("expected role admin, got %q", sess.Role)
	}
	if sess.Token != "T" {
		t.Fatalf("expected token T, got %q", sess.Token)
	}
	if sess.Profile == nil || sess.Profile.Name != "A" {
		t.Fatalf("expected profile name A, got %+v", sess.Profile)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.Login("T", models.User{Name: "A", Role: "customer"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Logout(); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
		sess := s.Current()
		if sess.IsAuthenticated {
			t.Fatalf("logout %d: expected unauthenticated session", i)
		}
		if sess.Role != "" {
			t.Fatalf("logout %d: expected empty role, got %q", i, sess.Role)
		}
	}
}

// A session survives a restart of the store over the same storage, the way
// a browser session survives a page reload.
func TestSessionSurvivesRestart(t *testing.T) {
	st := newTestStorage(t)

	first := NewStore(st, zerolog.Nop())
	if err := first.Login("T", models.User{Name: "A", Role: "admin"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	first.Close()

	second := NewStore(st, zerolog.Nop())
	defer second.Close()

	sess := second.Current()
	if !sess.IsAuthenticated || sess.Role != "admin" {
		t.Fatalf("expected restored admin session, got %+v", sess)
	}
}

// An unparseable profile entry downgrades to unauthenticated and both
// entries are physically removed.
func TestCorruptProfileSelfHeals(t *testing.T) {
	s, st := newTestStore(t)

	if err := st.Set("token", "T"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := st.Set("user", "{not json"); err != nil {
		t.Fatalf("set profile: %v", err)
	}

	sess := s.Current()
	if sess.IsAuthenticated {
		t.Fatal("expected unauthenticated session after corruption")
	}

	if _, ok, _ := st.Get("token"); ok {
		t.Fatal("expected token entry to be removed")
	}
	if _, ok, _ := st.Get("user"); ok {
		t.Fatal("expected profile entry to be removed")
	}
}

func TestPartialEntriesAreUnauthenticated(t *testing.T) {
	s, st := newTestStore(t)

	if err := st.Set("token", "T"); err != nil {
		t.Fatalf("set token: %v", err)
	}

	if sess := s.Current(); sess.IsAuthenticated {
		t.Fatal("token without profile must not authenticate")
	}
}

// An opaque non-JWT token is never rejected locally.
func TestOpaqueTokenIsTrusted(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.Login("not-a-jwt-at-all", models.User{Name: "A", Role: "customer"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess := s.Current(); !sess.IsAuthenticated {
		t.Fatal("expected opaque token to remain valid")
	}
}

// A stored JWT past its expiry is treated like corruption: cleared, both
// entries gone.
func TestExpiredJWTSelfHeals(t *testing.T) {
	s, st := newTestStore(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	token, err := expired.SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if err := s.Login(token, models.User{Name: "A", Role: "admin"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	if sess := s.Current(); sess.IsAuthenticated {
		t.Fatal("expected expired token to clear the session")
	}
	if _, ok, _ := st.Get("token"); ok {
		t.Fatal("expected token entry to be removed")
	}
}

func TestValidJWTIsAccepted(t *testing.T) {
	s, _ := newTestStore(t)

	fresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := fresh.SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if err := s.Login(token, models.User{Name: "A", Role: "customer"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess := s.Current(); !sess.IsAuthenticated {
		t.Fatal("expected unexpired JWT to authenticate")
	}
}

func TestSubscribeSeesTransitions(t *testing.T) {
	s, _ := newTestStore(t)
	updates := s.Subscribe()

	if err := s.Login("T", models.User{Name: "A", Role: "admin"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	select {
	case sess := <-updates:
		if !sess.IsAuthenticated || sess.Role != "admin" {
			t.Fatalf("expected admin session update, got %+v", sess)
		}
	case <-time.After(time.Second):
		t.Fatal("no update after login")
	}

	if err := s.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}

	select {
	case sess := <-updates:
		if sess.IsAuthenticated {
			t.Fatalf("expected signed-out update, got %+v", sess)
		}
	case <-time.After(time.Second):
		t.Fatal("no update after logout")
	}
}

// A second store over the same storage observes the first one's logout,
// the way another tab observes the storage event.
func TestCrossStoreLogoutPropagates(t *testing.T) {
	st := newTestStorage(t)

	a := NewStore(st, zerolog.Nop())
	defer a.Close()
	b := NewStore(st, zerolog.Nop())
	defer b.Close()

	if err := a.Login("T", models.User{Name: "A", Role: "customer"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess := b.Current(); !sess.IsAuthenticated {
		t.Fatal("expected second store to see the login on query")
	}

	updates := b.Subscribe()
	if err := a.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}

	select {
	case sess := <-updates:
		if sess.IsAuthenticated {
			t.Fatalf("expected signed-out update, got %+v", sess)
		}
	case <-time.After(time.Second):
		t.Fatal("second store never observed the logout")
	}
}
