package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Symbol string  `json:"symbol"`
	Vol    float64 `json:"vol"`
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bars:XYZ", Key("bars", "XYZ"))
	assert.Equal(t, "chain:XYZ:2024-06-03", Key("chain", "XYZ", "2024-06-03"))
}

func TestRedisCacheGetSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(db, "volscan")
	ctx := context.Background()

	mock.ExpectSet("volscan:bars:XYZ", []byte(`{"symbol":"XYZ","vol":0.2}`), time.Hour).SetVal("OK")
	require.NoError(t, c.Set(ctx, "bars:XYZ", payload{Symbol: "XYZ", Vol: 0.2}, time.Hour))

	mock.ExpectGet("volscan:bars:XYZ").SetVal(`{"symbol":"XYZ","vol":0.2}`)
	var got payload
	require.NoError(t, c.Get(ctx, "bars:XYZ", &got))
	assert.Equal(t, payload{Symbol: "XYZ", Vol: 0.2}, got)

	mock.ExpectGet("volscan:bars:ABC").RedisNil()
	assert.ErrorIs(t, c.Get(ctx, "bars:ABC", &got), ErrCacheMiss)

	mock.ExpectGet("volscan:bars:ERR").SetErr(errors.New("conn reset"))
	err := c.Get(ctx, "bars:ERR", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(db, "volscan")
	c.token = func() string { return "tok-1" }
	ctx := context.Background()

	mock.ExpectSetNX("volscan:lock:run", "tok-1", time.Minute).SetVal(true)
	ok, err := c.TryLock(ctx, "lock:run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectSetNX("volscan:lock:run", "tok-1", time.Minute).SetVal(false)
	ok, err = c.TryLock(ctx, "lock:run", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectEval(unlockScript, []string{"volscan:lock:run"}, "tok-1").SetVal(int64(1))
	require.NoError(t, c.Unlock(ctx, "lock:run"))

	// not held by this instance: no round trip
	require.NoError(t, c.Unlock(ctx, "lock:run"))

	mock.ExpectUnlink("volscan:a", "volscan:b").SetVal(2)
	require.NoError(t, c.Delete(ctx, "a", "b"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheLockError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(db, "volscan")
	c.token = func() string { return "tok-2" }

	mock.ExpectSetNX("volscan:run", "tok-2", time.Minute).SetErr(errors.New("down"))
	ok, err := c.TryLock(context.Background(), "run", time.Minute)
	require.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheBytes(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(db, "volscan")

	mock.ExpectGet("volscan:raw").SetVal("abc")
	var b []byte
	require.NoError(t, c.Get(context.Background(), "raw", &b))
	assert.Equal(t, []byte("abc"), b)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Symbol: "XYZ", Vol: 0.3}, 0))
	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "XYZ", got.Symbol)

	var s string
	require.NoError(t, c.Set(ctx, "s", "plain", 0))
	require.NoError(t, c.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	require.NoError(t, c.Get(ctx, "k", &v))

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithMemoryMaxSize(2))
	c.now = func() time.Time { now = now.Add(time.Second); return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	var v int
	require.NoError(t, c.Get(ctx, "a", &v))
	require.NoError(t, c.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, c.Len())
	assert.ErrorIs(t, c.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, c.Get(ctx, "a", &v))
}

func TestMemoryCacheLock(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	ok, err := c.TryLock(ctx, "run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.TryLock(ctx, "run", time.Minute)
	assert.False(t, ok)

	require.NoError(t, c.Unlock(ctx, "run"))
	ok, _ = c.TryLock(ctx, "run", time.Minute)
	assert.True(t, ok)
}
