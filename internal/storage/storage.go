package storage

// Store is the durable key-value layer behind the session store. It plays
// the role the browser's localStorage plays for the web client: a handful
// of well-known keys that survive a restart, plus a change notification so
// other observers of the same storage see writes made elsewhere.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	// Watch returns a channel that receives a signal after every mutation,
	// including mutations made by another process sharing the same storage.
	// Delivery is best-effort; a slow receiver may coalesce signals.
	Watch() <-chan struct{}
	Close() error
}
