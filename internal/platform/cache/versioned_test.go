package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-tax/testing"
)

type payload struct {
	Value int `json:"value"`
}

func newTestCache(t *testing.T) *Versioned {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "test", time.Minute)
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Value: calls}, nil
	}

	key, err := c.BuildKey(ctx, "gstr1", "B2B")
	require.NoError(t, err)
	require.Equal(t, "gstr1:B2B:1", key)

	var got payload
	hit, err := c.FetchJSON(ctx, key, &got, loader)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 1, got.Value)

	hit, err = c.FetchJSON(ctx, key, &got, loader)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "gstr1", "B2B")
	require.NoError(t, err)
	require.Equal(t, "gstr1:B2B:2", key)

	hit, err = c.FetchJSON(ctx, key, &got, loader)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 2, got.Value)
}

func TestNilCacheCallsLoader(t *testing.T) {
	var c *Versioned
	var got payload
	hit, err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return payload{Value: 7}, nil
	})
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 7, got.Value)
	require.NoError(t, c.Bump(context.Background()))
}
