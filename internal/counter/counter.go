// Package counter provides the public contribution count shown next to the
// contribution form. The number is display-only: it is read from the
// backend when possible, cached in a fallback store, and bumped locally
// after each accepted contribution without waiting for the backend.
package counter

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/smartdog/pet-contribution/internal/store"
)

const (
	// StoreKey is the fallback store key holding the last known count.
	StoreKey = "petContributionCount"

	// DefaultCount is shown when neither the backend nor the store has a value.
	DefaultCount = 2847
)

// Counter is the display counter used by the contribution flow.
type Counter interface {
	// Read returns the current count, falling back to the cached value or
	// the default. It never fails.
	Read(ctx context.Context) int
	// IncrementOptimistically adds one to the last known value, persists
	// it, and returns the new value.
	IncrementOptimistically(ctx context.Context) int
}

// Source reads the authoritative count. *backend.Client satisfies it.
type Source interface {
	Count(ctx context.Context) (int, error)
}

// Service implements Counter over a remote Source and a fallback store.
type Service struct {
	source   Source
	kv       store.KV
	fallback int

	mu    sync.Mutex
	value int
	known bool
}

var _ Counter = (*Service)(nil)

// NewService creates a counter. source may be nil for offline use.
// A fallback of zero or less uses DefaultCount.
func NewService(source Source, kv store.KV, fallback int) *Service {
	if fallback <= 0 {
		fallback = DefaultCount
	}
	return &Service{source: source, kv: kv, fallback: fallback}
}

func (s *Service) Read(ctx context.Context) int {
	if s.source != nil {
		n, err := s.source.Count(ctx)
		if err == nil {
			s.remember(n)
			s.persist(ctx, n)
			return n
		}
		log.Warn().Err(err).Msg("Counter read failed, using cached value")
	}

	n := s.cached(ctx)
	s.remember(n)
	return n
}

func (s *Service) IncrementOptimistically(ctx context.Context) int {
	s.mu.Lock()
	if !s.known {
		s.mu.Unlock()
		base := s.cached(ctx)
		s.mu.Lock()
		if !s.known {
			s.value, s.known = base, true
		}
	}
	s.value++
	n := s.value
	s.mu.Unlock()

	s.persist(ctx, n)
	log.Debug().Int("count", n).Msg("Counter incremented")
	return n
}

// cached reads the fallback store, returning the default when the key is
// absent or unparsable.
func (s *Service) cached(ctx context.Context) int {
	if s.kv == nil {
		return s.fallback
	}
	raw, found, err := s.kv.Get(ctx, StoreKey)
	if err != nil {
		log.Warn().Err(err).Str("key", StoreKey).Msg("Counter store read failed")
		return s.fallback
	}
	if !found {
		return s.fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Debug().Str("value", raw).Msg("Ignoring unparsable cached count")
		return s.fallback
	}
	return n
}

func (s *Service) remember(n int) {
	s.mu.Lock()
	s.value, s.known = n, true
	s.mu.Unlock()
}

func (s *Service) persist(ctx context.Context, n int) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Put(ctx, StoreKey, strconv.Itoa(n)); err != nil {
		log.Warn().Err(err).Str("key", StoreKey).Msg("Counter store write failed")
	}
}
