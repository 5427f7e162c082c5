package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartdog/pet-contribution/internal/photo"
)

// DefaultDraftTTL is how long accepted photos are kept for a retry.
const DefaultDraftTTL = 30 * time.Minute

// maxMemoryDrafts bounds the in-process draft store.
const maxMemoryDrafts = 256

// Drafts keeps the photos of a form that did not go through, keyed by an
// opaque token carried in a hidden form field, so the next attempt does not
// need them uploaded again. Load returns nil for unknown or expired tokens.
type Drafts interface {
	Save(ctx context.Context, token string, photos []photo.Selected) error
	Load(ctx context.Context, token string) ([]photo.Selected, error)
	Delete(ctx context.Context, token string) error
}

// NewDraftToken returns a fresh draft token.
func NewDraftToken() string {
	return uuid.NewString()
}

// ValidDraftToken reports whether token has the shape NewDraftToken produces.
// Tokens end up in storage keys, so anything else is discarded.
func ValidDraftToken(token string) bool {
	if token == "" {
		return false
	}
	_, err := uuid.Parse(token)
	return err == nil && len(token) == 36
}

type memoryDraft struct {
	photos  []photo.Selected
	expires time.Time
}

// MemoryDrafts is an in-process Drafts with expiry.
type MemoryDrafts struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]memoryDraft
}

var _ Drafts = (*MemoryDrafts)(nil)

// NewMemoryDrafts creates an empty store. A ttl of zero or less uses
// DefaultDraftTTL.
func NewMemoryDrafts(ttl time.Duration) *MemoryDrafts {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &MemoryDrafts{ttl: ttl, now: time.Now, drafts: make(map[string]memoryDraft)}
}

func (m *MemoryDrafts) Save(_ context.Context, token string, photos []photo.Selected) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.evictLocked(now)
	if _, ok := m.drafts[token]; !ok && len(m.drafts) >= maxMemoryDrafts {
		m.evictOldestLocked()
	}
	m.drafts[token] = memoryDraft{
		photos:  append([]photo.Selected(nil), photos...),
		expires: now.Add(m.ttl),
	}
	return nil
}

func (m *MemoryDrafts) Load(_ context.Context, token string) ([]photo.Selected, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[token]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(d.expires) {
		delete(m.drafts, token)
		return nil, nil
	}
	return append([]photo.Selected(nil), d.photos...), nil
}

func (m *MemoryDrafts) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, token)
	return nil
}

func (m *MemoryDrafts) evictLocked(now time.Time) {
	for token, d := range m.drafts {
		if !now.Before(d.expires) {
			delete(m.drafts, token)
		}
	}
}

func (m *MemoryDrafts) evictOldestLocked() {
	var (
		oldest  string
		expires time.Time
	)
	for token, d := range m.drafts {
		if oldest == "" || d.expires.Before(expires) {
			oldest, expires = token, d.expires
		}
	}
	delete(m.drafts, oldest)
}
