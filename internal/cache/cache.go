// Package cache holds per-user computed results (dashboards, patterns,
// reports) behind typed keys with per-kind TTLs and explicit invalidation.
package cache

import (
	"context"
	"sync"
	"time"

	"moni/internal/log"
)

// Kind identifies what a cached value is.
type Kind string

const (
	KindSummary  Kind = "summary"
	KindHistory  Kind = "history"
	KindNetWorth Kind = "net_worth"
	KindBudgets  Kind = "budgets"
	KindPatterns Kind = "patterns"
	KindReport   Kind = "report"
)

// Key addresses one cached value. Period is free-form ("2024-03", "2024", "6m").
type Key struct {
	Kind   Kind
	UserID string
	Period string
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.UserID + ":" + k.Period
}

// DefaultTTLs are used for kinds missing from Options.TTLs.
var DefaultTTLs = map[Kind]time.Duration{
	KindSummary:  5 * time.Minute,
	KindHistory:  15 * time.Minute,
	KindNetWorth: 10 * time.Minute,
	KindBudgets:  5 * time.Minute,
	KindPatterns: 30 * time.Minute,
	KindReport:   10 * time.Minute,
}

type Options struct {
	MaxEntries int
	DefaultTTL time.Duration
	TTLs       map[Kind]time.Duration
}

// Store is the application cache. A nil *Store is valid and caches nothing.
type Store struct {
	lru  *LRUCache[Key, any]
	ttls map[Kind]time.Duration
}

func NewStore(opts Options) *Store {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 5 * time.Minute
	}
	ttls := make(map[Kind]time.Duration, len(DefaultTTLs))
	for k, v := range DefaultTTLs {
		ttls[k] = v
	}
	for k, v := range opts.TTLs {
		ttls[k] = v
	}
	return &Store{
		lru:  NewLRUCache[Key, any](opts.MaxEntries, opts.DefaultTTL),
		ttls: ttls,
	}
}

func (s *Store) ttl(k Kind) time.Duration {
	if d, ok := s.ttls[k]; ok {
		return d
	}
	return s.lru.ttl
}

func (s *Store) Set(key Key, v any) {
	if s == nil {
		return
	}
	s.lru.SetWithTTL(key, v, s.ttl(key.Kind))
}

func (s *Store) get(key Key) (any, bool) {
	if s == nil {
		return nil, false
	}
	return s.lru.Get(key)
}

// Invalidate drops a single entry.
func (s *Store) Invalidate(key Key) {
	if s == nil {
		return
	}
	s.lru.Delete(key)
}

// InvalidateUser drops every entry cached for userID and returns how many were removed.
func (s *Store) InvalidateUser(userID string) int {
	if s == nil {
		return 0
	}
	return s.lru.DeleteFunc(func(k Key) bool { return k.UserID == userID })
}

// InvalidateKind drops every entry of the given kind for userID.
func (s *Store) InvalidateKind(userID string, kind Kind) int {
	if s == nil {
		return 0
	}
	return s.lru.DeleteFunc(func(k Key) bool { return k.UserID == userID && k.Kind == kind })
}

func (s *Store) Size() int {
	if s == nil {
		return 0
	}
	return s.lru.Size()
}

// CleanExpired implements Cleaner.
func (s *Store) CleanExpired() int {
	if s == nil {
		return 0
	}
	return s.lru.CleanExpired()
}

// Get returns the value cached under key when present and of type T.
func Get[T any](s *Store, key Key) (T, bool) {
	var zero T
	v, ok := s.get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// GetOrLoad returns the cached value for key, calling load and caching its
// result on a miss. Load errors are returned and not cached.
func GetOrLoad[T any](ctx context.Context, s *Store, key Key, load func(context.Context) (T, error)) (T, error) {
	if v, ok := Get[T](s, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	s.Set(key, v)
	return v, nil
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans the registered caches.
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
	started     bool
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 && m.logger != nil {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanNow runs one cleanup pass and returns the number of removed entries.
func (m *Manager) CleanNow() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		if m.started {
			<-m.cleanupDone
		}
	})
}
