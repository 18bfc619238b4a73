package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// runStoreContract exercises the behavior every backend must share
func runStoreContract(t *testing.T, s domain.KeyValueStore) {
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "user:alice", []byte(`{"id":"alice"}`), 0))

		got, err := s.Get(ctx, "user:alice")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"alice"}`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "user:bob", []byte("v1"), 0))
		require.NoError(t, s.Set(ctx, "user:bob", []byte("v2"), 0))

		got, err := s.Get(ctx, "user:bob")
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "day:carol:2024-01-01", []byte("x"), 0))
		require.NoError(t, s.Delete(ctx, "day:carol:2024-01-01"))
		require.NoError(t, s.Delete(ctx, "day:carol:2024-01-01"))

		_, err := s.Get(ctx, "day:carol:2024-01-01")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("keys by prefix", func(t *testing.T) {
		for _, k := range []string{"day:dave:2024-02-03", "day:dave:2024-02-01", "day:dave:2024-03-01", "day:davey:2024-02-01"} {
			require.NoError(t, s.Set(ctx, k, []byte("{}"), 0))
		}

		keys, err := s.Keys(ctx, "day:dave:2024-02")
		require.NoError(t, err)
		assert.Equal(t, []string{"day:dave:2024-02-01", "day:dave:2024-02-03"}, keys)

		keys, err = s.Keys(ctx, "day:nobody:")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("prefix with pattern characters", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "day:a_b:2024-01-01", []byte("{}"), 0))
		require.NoError(t, s.Set(ctx, "day:axb:2024-01-01", []byte("{}"), 0))

		keys, err := s.Keys(ctx, "day:a_b:")
		require.NoError(t, err)
		assert.Equal(t, []string{"day:a_b:2024-01-01"}, keys)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "tmp:short", []byte("x"), 50*time.Millisecond))

		_, err := s.Get(ctx, "tmp:short")
		require.NoError(t, err)

		time.Sleep(1100 * time.Millisecond)

		_, err = s.Get(ctx, "tmp:short")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)

		keys, err := s.Keys(ctx, "tmp:")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	runStoreContract(t, s)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, s.Set(ctx, "k", value, 0))
	value[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))

	got[0] = 'Y'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "original", string(again))
}

func TestMemoryStore_Cleanup(t *testing.T) {
	s := newMemoryStore(10 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "expiring", []byte("x"), time.Millisecond))
	require.NoError(t, s.Set(ctx, "forever", []byte("x"), 0))

	assert.Eventually(t, func() bool { return s.Size() == 1 }, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "foodlog.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foodlog.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "user:erin", []byte("profile"), 0))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "user:erin")
	require.NoError(t, err)
	assert.Equal(t, "profile", string(got))
}

func TestSQLiteStore_PurgeExpired(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "foodlog.db"), nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "a", []byte("x"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("x"), 0))

	now = now.Add(2 * time.Minute)
	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("FOODLOG_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FOODLOG_TEST_REDIS_URL not set")
	}

	s, err := NewRedisStore(context.Background(), url, "foodlog-test:"+uuid.NewString()+":", zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not a url", "", nil)
	assert.Error(t, err)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `day:a\*b\?\[x\]:`, escapeGlob("day:a*b?[x]:"))
	assert.Equal(t, "day:alice:", escapeGlob("day:alice:"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Type: TypeMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{Type: TypeSQLite, SQLitePath: filepath.Join(t.TempDir(), "kv.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Type: "etcd"}, nil)
	assert.Error(t, err)
}
