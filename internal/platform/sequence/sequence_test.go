package sequence

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisStore(client, "klinik:seq:")
}

// drawConcurrently calls Next n times from n goroutines and returns the
// sorted results.
func drawConcurrently(t *testing.T, s Store, key string, n int) []int64 {
	t.Helper()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Next(context.Background(), key)
			assert.NoError(t, err)
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		}()
	}
	wg.Wait()
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	return got
}

func TestMemoryStore_NextStartsAtOne(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	v, err := s.Next(ctx, MRNKey("umum"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = s.Next(ctx, MRNKey("umum"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	v, err = s.Next(ctx, MRNKey("sirkumsisi"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "categories are counted independently")
}

func TestMemoryStore_ConcurrentNextIsUnique(t *testing.T) {
	got := drawConcurrently(t, NewMemoryStore(), QueueKey("2026-01-15"), 50)
	for i, v := range got {
		assert.Equal(t, int64(i+1), v)
	}
}

func TestMemoryStore_SeedNeverLowers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, "k", 10))
	require.NoError(t, s.Seed(ctx, "k", 3))
	v, err := s.Next(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(11), v)
	assert.Equal(t, int64(11), s.Current("k"))
}

func TestMemoryStore_EmptyKey(t *testing.T) {
	_, err := NewMemoryStore().Next(context.Background(), "")
	assert.Error(t, err)
}

func TestRedisStore_Next(t *testing.T) {
	mr, s := setupRedisStore(t)
	ctx := context.Background()

	v, err := s.Next(ctx, MRNKey("umum"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = s.Next(ctx, MRNKey("umum"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	stored, err := mr.Get("klinik:seq:mrn:umum")
	require.NoError(t, err)
	assert.Equal(t, "2", stored)
}

func TestRedisStore_ConcurrentNextIsUnique(t *testing.T) {
	_, s := setupRedisStore(t)
	got := drawConcurrently(t, s, MRNKey("sirkumsisi"), 30)
	for i, v := range got {
		assert.Equal(t, int64(i+1), v)
	}
}

func TestRedisStore_Seed(t *testing.T) {
	_, s := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, MRNKey("umum"), 41))
	require.NoError(t, s.Seed(ctx, MRNKey("umum"), 5))

	v, err := s.Next(ctx, MRNKey("umum"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "mrn:umum", MRNKey("umum"))
	assert.Equal(t, "queue:2026-01-15", QueueKey("2026-01-15"))
}
