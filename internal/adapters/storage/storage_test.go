package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeanGrijp/request-gate/internal/adapters/storage/memory"
	redisstorage "github.com/JeanGrijp/request-gate/internal/adapters/storage/redis"
	"github.com/JeanGrijp/request-gate/internal/core/domain"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr error
	}{
		{"nothing configured", Config{}, TypeMemory, nil},
		{"redis url and token", Config{RedisURL: "redis://localhost:6379", RedisToken: "t"}, TypeRedis, nil},
		{"only url", Config{RedisURL: "redis://localhost:6379"}, "", domain.ErrConfiguration},
		{"only token", Config{RedisToken: "t"}, "", domain.ErrConfiguration},
		{"blank values count as unset", Config{RedisURL: "  ", RedisToken: " "}, TypeMemory, nil},
		{"explicit memory", Config{Type: "Memory"}, TypeMemory, nil},
		{"explicit sql", Config{Type: "sql", DatabaseDSN: "file::memory:"}, TypeSQL, nil},
		{"explicit redis without credentials", Config{Type: "redis"}, "", domain.ErrConfiguration},
		{"explicit memory with partial redis", Config{Type: "memory", RedisToken: "t"}, "", domain.ErrConfiguration},
		{"unknown type", Config{Type: "memcached"}, "", domain.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("memory by default", func(t *testing.T) {
		s, kind, err := Open(ctx, Config{})
		require.NoError(t, err)
		defer s.Close()

		assert.Equal(t, TypeMemory, kind)
		assert.IsType(t, &memory.Storage{}, s)
	})

	t.Run("redis when url and token are set", func(t *testing.T) {
		mr := miniredis.RunT(t)
		mr.RequireAuth("s3cret")

		s, kind, err := Open(ctx, Config{RedisURL: "redis://" + mr.Addr(), RedisToken: "s3cret"})
		require.NoError(t, err)
		defer s.Close()

		assert.Equal(t, TypeRedis, kind)
		assert.IsType(t, &redisstorage.Storage{}, s)
	})

	t.Run("partial redis config fails", func(t *testing.T) {
		_, _, err := Open(ctx, Config{RedisURL: "redis://localhost:6379"})
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
