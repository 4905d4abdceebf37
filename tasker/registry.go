package tasker

import (
	"sync"
	"time"

	"github.com/nejkit/telegram-drive-bridge/domain"
)

const defaultTombstoneTTL = 10 * time.Minute

// Key identifies a task by its status message.
type Key struct {
	ChatID          int64
	StatusMessageID int
}

// Registry maps status messages to the aborters of live tasks. One mutex
// serializes registration against deletion handling. Deletions that find
// nothing leave a tombstone so a task cannot be registered afterwards for a
// status message that is already gone.
type Registry struct {
	mu         sync.Mutex
	aborters   map[Key]*Aborter
	tombstones map[Key]time.Time

	tombstoneTTL time.Duration
	now          func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		aborters:     make(map[Key]*Aborter),
		tombstones:   make(map[Key]time.Time),
		tombstoneTTL: defaultTombstoneTTL,
		now:          time.Now,
	}
}

// Register runs build and stores its aborter under key, holding the registry
// lock for the whole sequence. build is not called when key is tombstoned or
// already registered.
func (r *Registry) Register(key Key, build func() (*Aborter, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneTombstones()

	if _, ok := r.tombstones[key]; ok {
		return domain.ErrorStatusMessageDeleted
	}

	if _, ok := r.aborters[key]; ok {
		return domain.ErrorAborterExists
	}

	aborter, err := build()

	if err != nil {
		return err
	}

	r.aborters[key] = aborter

	return nil
}

// Abort removes the aborter under key and aborts it.
func (r *Registry) Abort(key Key) (*Aborter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.abortLocked(key)
}

// Complete drops the aborter of a task that finished on its own. It reports
// false when the task was aborted first.
func (r *Registry) Complete(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.aborters[key]; !ok {
		return false
	}

	delete(r.aborters, key)

	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.aborters)
}

func (r *Registry) abortLocked(key Key) (*Aborter, bool) {
	aborter, ok := r.aborters[key]

	if !ok {
		return nil, false
	}

	delete(r.aborters, key)
	aborter.Abort()

	return aborter, true
}

func (r *Registry) tombstoneLocked(key Key) {
	r.pruneTombstones()
	r.tombstones[key] = r.now()
}

func (r *Registry) pruneTombstones() {
	deadline := r.now().Add(-r.tombstoneTTL)

	for key, deletedAt := range r.tombstones {
		if deletedAt.Before(deadline) {
			delete(r.tombstones, key)
		}
	}
}
