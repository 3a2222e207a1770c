package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreTypedGet(t *testing.T) {
	s := NewStore(Options{})
	key := Key{Kind: KindSummary, UserID: "u1", Period: "2024-03"}
	s.Set(key, 42)

	v, ok := Get[int](s, key)
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = Get[string](s, key)
	assert.False(t, ok, "wrong type is a miss")
}

func TestStoreInvalidateUser(t *testing.T) {
	s := NewStore(Options{})
	s.Set(Key{Kind: KindSummary, UserID: "u1", Period: "2024-03"}, 1)
	s.Set(Key{Kind: KindPatterns, UserID: "u1"}, 2)
	s.Set(Key{Kind: KindReport, UserID: "u1", Period: "2024"}, 3)
	s.Set(Key{Kind: KindSummary, UserID: "u2", Period: "2024-03"}, 4)

	assert.Equal(t, 3, s.InvalidateUser("u1"))
	assert.Equal(t, 1, s.Size())
	_, ok := Get[int](s, Key{Kind: KindSummary, UserID: "u2", Period: "2024-03"})
	assert.True(t, ok)
}

func TestStoreInvalidateKeyAndKind(t *testing.T) {
	s := NewStore(Options{})
	a := Key{Kind: KindSummary, UserID: "u1", Period: "2024-03"}
	b := Key{Kind: KindSummary, UserID: "u1", Period: "2024-04"}
	c := Key{Kind: KindHistory, UserID: "u1", Period: "6"}
	s.Set(a, 1)
	s.Set(b, 2)
	s.Set(c, 3)

	s.Invalidate(a)
	_, ok := Get[int](s, a)
	assert.False(t, ok)

	assert.Equal(t, 1, s.InvalidateKind("u1", KindSummary))
	_, ok = Get[int](s, c)
	assert.True(t, ok)
}

func TestStorePerKindTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(Options{TTLs: map[Kind]time.Duration{KindSummary: time.Second}})
	s.lru.now = clock.now

	summary := Key{Kind: KindSummary, UserID: "u1"}
	patterns := Key{Kind: KindPatterns, UserID: "u1"}
	s.Set(summary, 1)
	s.Set(patterns, 2)

	clock.advance(time.Minute)
	_, ok := Get[int](s, summary)
	assert.False(t, ok)
	_, ok = Get[int](s, patterns)
	assert.True(t, ok, "patterns keep the default 30m ttl")
}

func TestGetOrLoad(t *testing.T) {
	s := NewStore(Options{})
	key := Key{Kind: KindNetWorth, UserID: "u1"}
	calls := 0
	load := func(context.Context) (float64, error) {
		calls++
		return 10.5, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoad(context.Background(), s, key, load)
		require.NoError(t, err)
		assert.Equal(t, 10.5, v)
	}
	assert.Equal(t, 1, calls)

	failing := Key{Kind: KindNetWorth, UserID: "u2"}
	_, err := GetOrLoad(context.Background(), s, failing, func(context.Context) (float64, error) {
		return 0, errors.New("boom")
	})
	assert.Error(t, err)
	_, ok := Get[float64](s, failing)
	assert.False(t, ok, "errors are not cached")
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	s.Set(Key{Kind: KindSummary, UserID: "u1"}, 1)
	_, ok := Get[int](s, Key{Kind: KindSummary, UserID: "u1"})
	assert.False(t, ok)
	assert.Equal(t, 0, s.InvalidateUser("u1"))

	v, err := GetOrLoad(context.Background(), s, Key{}, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(Options{})
	s.lru.now = clock.now
	s.Set(Key{Kind: KindSummary, UserID: "u1"}, 1)

	m := NewManager(nil)
	m.Register(s)
	clock.advance(time.Hour)
	assert.Equal(t, 1, m.CleanNow())

	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
	m.Stop()
}
