package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ax5-sect/server/internal/agent/model"
	logx "github.com/ax5-sect/server/pkg/logger"
)

const defaultLockTTL = 5 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager guarantees at most one active turn per conversation id. Turns for
// the same id queue behind a process-local mutex and, when a distributed
// locker is configured, behind a cross-process lock as well.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  model.Locker
	lockTTL time.Duration
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking with the given lease.
func WithLocker(locker model.Locker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
func (m *Manager) acquire(conversationID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[conversationID]
	if !exists {
		entry = &lockEntry{}
		m.locks[conversationID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[conversationID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, conversationID)
	}
}

// active reports how many callers hold or wait on locks; used by tests.
func (m *Manager) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// WithLock runs fn while holding the turn lock for conversationID.
func (m *Manager) WithLock(ctx context.Context, conversationID string, fn func(context.Context) error) error {
	entry := m.acquire(conversationID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(conversationID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, conversationID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire conversation lock: %w", err)
		}
		defer func() {
			// release with a fresh context so a cancelled turn still frees the lease
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				logx.Warn().
					Str("conversation_id", conversationID).
					Err(err).
					Msg("Failed to release conversation lock (will expire via TTL)")
			}
		}()
	}

	return fn(ctx)
}
