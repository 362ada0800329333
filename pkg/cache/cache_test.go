package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openglide/skysearch/pkg/search"
)

type recordedEvent struct {
	kind string
	tier string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) RecordCacheHit(tier string)  { f.add("hit", tier) }
func (f *fakeRecorder) RecordCacheMiss(tier string) { f.add("miss", tier) }
func (f *fakeRecorder) RecordCacheError(tier, operation string) {
	f.add("error:"+operation, tier)
}

func (f *fakeRecorder) add(kind, tier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{kind: kind, tier: tier})
}

func (f *fakeRecorder) count(kind, tier string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.kind == kind && e.tier == tier {
			n++
		}
	}
	return n
}

func testKey(text string) Key {
	tokens, _ := search.Parse(text)
	return NewKey([]string{"user", "club", "airport"}, text, tokens, 20, false)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestKey_String(t *testing.T) {
	tokens, err := search.Parse("lv aachen")
	require.NoError(t, err)

	a := NewKey([]string{"user", "club"}, "lv aachen", tokens, 20, false)
	b := NewKey([]string{"club", "user"}, "lv aachen", tokens, 20, false)

	assert.Equal(t, a.String(), b.String(), "kind order must not change the key")
	assert.Regexp(t, `^skysearch:v2:[0-9a-f]{64}$`, a.String())

	variants := []Key{
		NewKey([]string{"user"}, "lv aachen", tokens, 20, false),
		NewKey([]string{"user", "club"}, "lv aachen", tokens, 10, false),
		NewKey([]string{"user", "club"}, "lv aachen", tokens, 20, true),
		NewKey([]string{"user", "club"}, "aachen lv", search.Escape([]string{"aachen", "lv"}), 20, false),
		// Same tokens, but the echoed query differs
		NewKey([]string{"user", "club"}, "lv  aachen", tokens, 20, false),
	}
	for _, v := range variants {
		assert.NotEqual(t, a.String(), v.String())
	}
}

func TestKey_String_DoesNotMutateKinds(t *testing.T) {
	kinds := []string{"user", "airport", "club"}
	_ = NewKey(kinds, "x", search.Escape([]string{"x"}), 20, false).String()
	assert.Equal(t, []string{"user", "airport", "club"}, kinds)
}

func TestKey_Valid(t *testing.T) {
	tokens := search.Escape([]string{"x"})

	assert.True(t, NewKey([]string{"user"}, "x", tokens, 1, false).Valid())
	assert.False(t, NewKey(nil, "x", tokens, 1, false).Valid())
	assert.False(t, NewKey([]string{"user"}, "", nil, 1, false).Valid())
	assert.False(t, NewKey([]string{"user"}, "x", tokens, 0, false).Valid())
}

func TestResultCache_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	c := New(nil, WithRecorder(rec))
	key := testKey("aachen")

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, key, []byte(`{"count":1}`)))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1}`, string(got))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.ItemCount)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)

	assert.Equal(t, 1, rec.count("hit", TierMemory))
	assert.Equal(t, 1, rec.count("miss", TierMemory))

	c.Purge()
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestResultCache_InvalidKey(t *testing.T) {
	c := New(nil)

	_, err := c.Get(context.Background(), Key{})
	assert.ErrorIs(t, err, ErrInvalidCacheKey)
	assert.ErrorIs(t, c.Set(context.Background(), Key{}, []byte("x")), ErrInvalidCacheKey)
}

func TestResultCache_MemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := New(&Config{MaxEntries: 8, TTL: 20 * time.Millisecond})
	key := testKey("expiring")

	require.NoError(t, c.Set(ctx, key, []byte("v")))

	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, key)
		return err == ErrCacheMiss
	}, time.Second, 10*time.Millisecond)
}

func TestResultCache_WritesThroughToRedis(t *testing.T) {
	mr, client := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	key := testKey("lv aachen")

	c := New(&Config{TTL: time.Minute}, WithRedis(client))
	require.NoError(t, c.Set(ctx, key, []byte("payload")))
	// The background write must outlive the request context.
	cancel()

	assert.Eventually(t, func() bool {
		return mr.Exists(key.String())
	}, 2*time.Second, 10*time.Millisecond)

	value, err := mr.Get(key.String())
	require.NoError(t, err)
	assert.Equal(t, "payload", value)
	assert.Equal(t, time.Minute, mr.TTL(key.String()))
}

func TestResultCache_RedisBackfillsMemory(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	rec := &fakeRecorder{}
	key := testKey("edka")

	require.NoError(t, mr.Set(key.String(), "shared"))

	c := New(nil, WithRedis(client), WithRecorder(rec))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared"), got)
	assert.Equal(t, 1, rec.count("hit", TierRedis))

	mr.FlushAll()

	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared"), got)
	assert.Equal(t, 1, rec.count("hit", TierMemory))
}

func TestResultCache_RedisMiss(t *testing.T) {
	_, client := setupRedis(t)
	rec := &fakeRecorder{}
	c := New(nil, WithRedis(client), WithRecorder(rec))

	_, err := c.Get(context.Background(), testKey("nothing"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 1, rec.count("miss", TierRedis))
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestResultCache_RedisUnavailable(t *testing.T) {
	mr, client := setupRedis(t)
	rec := &fakeRecorder{}
	c := New(nil, WithRedis(client), WithRecorder(rec))
	mr.Close()

	_, err := c.Get(context.Background(), testKey("down"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 1, rec.count("error:get", TierRedis))

	require.NoError(t, c.Set(context.Background(), testKey("down"), []byte("v")))
	assert.Eventually(t, func() bool {
		return rec.count("error:set", TierRedis) == 1
	}, 5*time.Second, 20*time.Millisecond)

	got, err := c.Get(context.Background(), testKey("down"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
