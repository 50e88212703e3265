package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const filePollInterval = time.Second

// FileStore persists entries as a single JSON snapshot rewritten on every
// mutation. A background poller picks up writes made by another process so
// Watch fires for those too.
type FileStore struct {
	path   string
	logger zerolog.Logger

	mu       sync.Mutex
	entries  map[string]string
	watchers []chan struct{}
	lastMod  time.Time
	quit     chan struct{}
	once     sync.Once
}

func NewFileStore(path string, logger zerolog.Logger) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		logger:  logger,
		entries: map[string]string{},
		quit:    make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	go s.pollLoop()
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	if err := s.flush(); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	if err := s.flush(); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *FileStore) Watch() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.watchers = append(s.watchers, ch)
	return ch
}

func (s *FileStore) Close() error {
	s.once.Do(func() { close(s.quit) })
	return nil
}

// load reads the snapshot if one exists. A missing file means a fresh store.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read storage snapshot: %w", err)
	}

	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		// A broken snapshot must not take the application down. Start
		// empty; the next flush replaces it.
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Discarding unreadable storage snapshot")
		return nil
	}
	s.entries = entries

	if info, err := os.Stat(s.path); err == nil {
		s.lastMod = info.ModTime()
	}
	return nil
}

// flush writes the snapshot atomically via a temp file rename.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write storage snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace storage snapshot: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		s.lastMod = info.ModTime()
	}
	return nil
}

// notify signals every watcher without blocking. Callers hold s.mu.
func (s *FileStore) notify() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// pollLoop watches the snapshot's modification time so a write from a second
// process on the same machine is observed, mirroring the cross-tab storage
// event of a browser.
func (s *FileStore) pollLoop() {
	ticker := time.NewTicker(filePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			info, err := os.Stat(s.path)
			if err != nil {
				s.mu.Unlock()
				continue
			}
			if info.ModTime().After(s.lastMod) {
				s.lastMod = info.ModTime()
				if err := s.reloadLocked(); err != nil {
					s.logger.Warn().Err(err).Msg("Failed to reload storage snapshot")
				}
				s.notify()
			}
			s.mu.Unlock()
		case <-s.quit:
			return
		}
	}
}

func (s *FileStore) reloadLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	s.entries = entries
	return nil
}
