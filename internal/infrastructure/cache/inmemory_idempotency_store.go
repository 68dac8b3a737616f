package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps issuance marks in process. Only safe for a
// single replica.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	expires map[string]time.Time

	stop context.CancelFunc
	done chan struct{}
}

// NewInMemoryIdempotencyStore starts a sweeper that drops expired marks
// every interval (five minutes when interval <= 0). Close stops it.
func NewInMemoryIdempotencyStore(interval time.Duration) *InMemoryIdempotencyStore {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &InMemoryIdempotencyStore{
		expires: make(map[string]time.Time),
		stop:    cancel,
		done:    make(chan struct{}),
	}
	go s.sweep(ctx, interval)
	return s
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp, ok := s.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expires[key] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	exp, ok := s.expires[key]
	s.mu.Unlock()
	return ok && time.Now().Before(exp), nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.expires, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. Later calls return immediately.
func (s *InMemoryIdempotencyStore) Close() error {
	s.stop()
	<-s.done
	return nil
}

func (s *InMemoryIdempotencyStore) sweep(ctx context.Context, interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.expires, key)
		}
	}
}

// Size counts stored marks, expired ones included
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
