package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name  string
	store Store
	// advance moves the backend's notion of time forward.
	advance func(time.Duration)
}

func backends(t *testing.T) []backend {
	t.Helper()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	memClock := now
	mem := NewMemory().WithClock(func() time.Time { return memClock })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sq, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	sqClock := now
	sq.now = func() time.Time { return sqClock }

	return []backend{
		{"memory", mem, func(d time.Duration) { memClock = memClock.Add(d) }},
		{"redis", NewRedis(rdb), mr.FastForward},
		{"sqlite", sq, func(d time.Duration) { sqClock = sqClock.Add(d) }},
	}
}

func TestStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			_, err := b.store.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.store.Set(ctx, "users", []byte(`[{"id":1}]`), 0))
			got, err := b.store.Get(ctx, "users")
			require.NoError(t, err)
			require.Equal(t, `[{"id":1}]`, string(got))

			require.NoError(t, b.store.Set(ctx, "users", []byte(`[]`), 0))
			got, err = b.store.Get(ctx, "users")
			require.NoError(t, err)
			require.Equal(t, `[]`, string(got))

			require.NoError(t, b.store.Delete(ctx, "users", "never-set"))
			_, err = b.store.Get(ctx, "users")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreTTL(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			require.NoError(t, b.store.Set(ctx, "reset", []byte("r"), time.Minute))
			require.NoError(t, b.store.Set(ctx, "forever", []byte("f"), 0))

			b.advance(59 * time.Second)
			_, err := b.store.Get(ctx, "reset")
			require.NoError(t, err)

			b.advance(2 * time.Second)
			_, err = b.store.Get(ctx, "reset")
			require.ErrorIs(t, err, ErrNotFound)

			_, err = b.store.Get(ctx, "forever")
			require.NoError(t, err)
		})
	}
}

func TestStoreIncrFixedWindow(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			for want := int64(1); want <= 3; want++ {
				n, err := b.store.Incr(ctx, "rl:login:a@b.c", time.Minute)
				require.NoError(t, err)
				require.Equal(t, want, n)
			}

			// later hits must not extend the window
			b.advance(61 * time.Second)
			n, err := b.store.Incr(ctx, "rl:login:a@b.c", time.Minute)
			require.NoError(t, err)
			require.Equal(t, int64(1), n)
		})
	}
}
