package dataset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
	"github.com/couchcryptid/city-sensor-pipeline/internal/observability"
)

// --- mock for cache tests ---

type countingSource struct {
	calls map[string]int
	err   error
}

func newCountingSource() *countingSource {
	return &countingSource{calls: make(map[string]int)}
}

func (m *countingSource) Fetch(_ context.Context, path string) ([]byte, error) {
	m.calls[path]++
	if m.err != nil {
		return nil, m.err
	}
	return []byte("body:" + path), nil
}

// --- CachedSource tests ---

func TestCachedSource_Hit(t *testing.T) {
	inner := newCountingSource()
	cached := newCachedSource(inner, 10, 0, observability.NewMetricsForTesting(), clockwork.NewFakeClock())

	b1, err := cached.Fetch(context.Background(), "/a.csv")
	require.NoError(t, err)
	b2, err := cached.Fetch(context.Background(), "/a.csv")
	require.NoError(t, err)

	assert.Equal(t, "body:/a.csv", string(b1))
	assert.Equal(t, b1, b2)
	assert.Equal(t, 1, inner.calls["/a.csv"], "should only call inner once")
}

func TestCachedSource_Expiry(t *testing.T) {
	inner := newCountingSource()
	clock := clockwork.NewFakeClock()
	cached := newCachedSource(inner, 10, time.Minute, nil, clock)

	_, err := cached.Fetch(context.Background(), "/a.csv")
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = cached.Fetch(context.Background(), "/a.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls["/a.csv"])

	clock.Advance(time.Second)
	_, err = cached.Fetch(context.Background(), "/a.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["/a.csv"], "expired entries are refetched")
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	inner := newCountingSource()
	inner.err = errors.Join(domain.ErrFetch, errors.New("boom"))
	cached := newCachedSource(inner, 10, 0, nil, clockwork.NewFakeClock())

	_, err := cached.Fetch(context.Background(), "/a.csv")
	require.ErrorIs(t, err, domain.ErrFetch)

	inner.err = nil
	_, err = cached.Fetch(context.Background(), "/a.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["/a.csv"])
}

func TestCachedSource_Disabled(t *testing.T) {
	inner := newCountingSource()
	assert.Same(t, inner, NewCachedSource(inner, 0, time.Minute, nil))
}

// --- LRU tests ---

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()

	c.put("a", []byte("1"), time.Time{})
	c.put("b", []byte("2"), time.Time{})

	// Touch "a" so "b" becomes least recently used.
	_, ok := c.get("a", now)
	require.True(t, ok)

	c.put("c", []byte("3"), time.Time{})
	assert.Equal(t, 2, c.size())

	_, ok = c.get("b", now)
	assert.False(t, ok, "b should be evicted")
	_, ok = c.get("a", now)
	assert.True(t, ok)
	_, ok = c.get("c", now)
	assert.True(t, ok)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()

	c.put("a", []byte("1"), time.Time{})
	c.put("a", []byte("2"), time.Time{})

	v, ok := c.get("a", now)
	require.True(t, ok)
	assert.Equal(t, "2", string(v))
	assert.Equal(t, 1, c.size())
}

func TestLRUCache_ExpiredRemoved(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()

	c.put("a", []byte("1"), now.Add(time.Second))
	_, ok := c.get("a", now.Add(time.Second))
	assert.False(t, ok)
	assert.Equal(t, 0, c.size())
}
