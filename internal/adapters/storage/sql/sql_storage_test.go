package sql

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestStorage(t *testing.T) (*Storage, *clock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// cada conexão :memory: é um banco separado
	sqlDB.SetMaxOpenConns(1)

	c := &clock{now: time.Unix(1704067200, 0).UTC()}
	s, err := New(db, WithClock(c.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, c
}

func TestStorage_IncrementAndExpire(t *testing.T) {
	s, c := setupTestStorage(t)
	ctx := context.Background()

	n, err := s.Increment(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Expire(ctx, "k", time.Minute))

	n, err = s.Increment(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rec, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), rec.Count)
	assert.True(t, rec.ResetAt.Equal(c.Now().Add(time.Minute)))
}

func TestStorage_IncrementWithTTL(t *testing.T) {
	s, c := setupTestStorage(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := s.IncrementWithTTL(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
		c.Advance(10 * time.Second)
	}

	rec, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.ResetAt.Equal(time.Unix(1704067260, 0)), "ttl is set on creation only, got %s", rec.ResetAt)

	c.Advance(time.Minute)

	n, err := s.IncrementWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired row restarts at 1")
}

func TestStorage_GetMissing(t *testing.T) {
	s, _ := setupTestStorage(t)

	_, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_Purge(t *testing.T) {
	s, c := setupTestStorage(t)
	ctx := context.Background()

	_, err := s.IncrementWithTTL(ctx, "short", time.Second)
	require.NoError(t, err)
	_, err = s.IncrementWithTTL(ctx, "long", time.Hour)
	require.NoError(t, err)
	_, err = s.Increment(ctx, "no-ttl")
	require.NoError(t, err)

	c.Advance(time.Minute)

	removed, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorage_PingAndClose(t *testing.T) {
	s, _ := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(ctx), domain.ErrStoreUnavailable)
	_, err := s.Increment(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(Config{Driver: "sqlite"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = Open(Config{Driver: "oracle", DSN: "x"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
