package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const sqlPollInterval = time.Second

// SQLStore keeps the session entries in a relational key-value table so a
// fleet of gateway processes can share one session record. Both the mysql
// and postgres drivers are supported; the statements differ only in
// placeholder style and upsert syntax.
type SQLStore struct {
	db     *sql.DB
	logger zerolog.Logger

	upsertStmt string
	getStmt    string
	deleteStmt string

	mu       sync.Mutex
	watchers []chan struct{}
	lastSeen int64
	quit     chan struct{}
	once     sync.Once
}

func NewSQLStore(driver, dsn string, logger zerolog.Logger) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s storage: %w", driver, err)
	}

	s := &SQLStore{
		db:     db,
		logger: logger,
		quit:   make(chan struct{}),
	}

	switch driver {
	case "mysql":
		s.upsertStmt = "INSERT INTO session_entries (entry_key, entry_value, updated_at) VALUES (?, ?, ?) " +
			"ON DUPLICATE KEY UPDATE entry_value = VALUES(entry_value), updated_at = VALUES(updated_at)"
		s.getStmt = "SELECT entry_value FROM session_entries WHERE entry_key = ?"
		s.deleteStmt = "DELETE FROM session_entries WHERE entry_key = ?"
	case "postgres":
		s.upsertStmt = "INSERT INTO session_entries (entry_key, entry_value, updated_at) VALUES ($1, $2, $3) " +
			"ON CONFLICT (entry_key) DO UPDATE SET entry_value = EXCLUDED.entry_value, updated_at = EXCLUDED.updated_at"
		s.getStmt = "SELECT entry_value FROM session_entries WHERE entry_key = $1"
		s.deleteStmt = "DELETE FROM session_entries WHERE entry_key = $1"
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	s.lastSeen = s.latestUpdate()
	go s.pollLoop()

	logger.Info().Str("driver", driver).Msg("Connected to sql session storage")
	return s, nil
}

func (s *SQLStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS session_entries (
		entry_key   VARCHAR(64) PRIMARY KEY,
		entry_value TEXT NOT NULL,
		updated_at  BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate session_entries: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(s.getStmt, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read entry %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(key, value string) error {
	now := time.Now().UnixNano()
	if _, err := s.db.Exec(s.upsertStmt, key, value, now); err != nil {
		return fmt.Errorf("write entry %s: %w", key, err)
	}
	s.markLocal(now)
	s.notify()
	return nil
}

func (s *SQLStore) Delete(key string) error {
	if _, err := s.db.Exec(s.deleteStmt, key); err != nil {
		return fmt.Errorf("delete entry %s: %w", key, err)
	}
	s.markLocal(time.Now().UnixNano())
	s.notify()
	return nil
}

func (s *SQLStore) Watch() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.watchers = append(s.watchers, ch)
	return ch
}

func (s *SQLStore) Close() error {
	s.once.Do(func() { close(s.quit) })
	return s.db.Close()
}

func (s *SQLStore) markLocal(ts int64) {
	s.mu.Lock()
	if ts > s.lastSeen {
		s.lastSeen = ts
	}
	s.mu.Unlock()
}

func (s *SQLStore) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *SQLStore) latestUpdate() int64 {
	var ts sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(updated_at) FROM session_entries").Scan(&ts); err != nil {
		return 0
	}
	return ts.Int64
}

// pollLoop detects writes made by other processes. Deletes are invisible to
// the max-timestamp probe, which matches the best-effort contract: the next
// explicit read still sees the truth.
func (s *SQLStore) pollLoop() {
	ticker := time.NewTicker(sqlPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			latest := s.latestUpdate()
			s.mu.Lock()
			changed := latest > s.lastSeen
			if changed {
				s.lastSeen = latest
			}
			s.mu.Unlock()
			if changed {
				s.notify()
			}
		case <-s.quit:
			return
		}
	}
}
