// Package redis disponibiliza a implementação durável do CounterStore baseada em Redis.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

type Storage struct {
	client *redis.Client
}

var (
	_ ports.CounterStore        = (*Storage)(nil)
	_ ports.WindowedIncrementer = (*Storage)(nil)
)

// Config exige URL e token juntos; apenas um deles é erro de configuração.
type Config struct {
	URL   string
	Token string
}

// incrWithTTL define a expiração apenas quando a chave acabou de ser criada;
// hits seguintes não estendem a janela.
// KEYS[1] chave do contador; ARGV[1] ttl em milissegundos.
var incrWithTTL = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

func New(cfg Config) (*Storage, error) {
	url := strings.TrimSpace(cfg.URL)
	token := strings.TrimSpace(cfg.Token)
	if url == "" || token == "" {
		return nil, fmt.Errorf("%w: redis url and token must both be set", domain.ErrConfiguration)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis url: %w", domain.ErrConfiguration, err)
	}
	opts.Password = token

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, domain.StoreError("redis ping", err)
	}

	return &Storage{client: client}, nil
}

// NewFromClient usa um cliente já configurado.
func NewFromClient(client *redis.Client) *Storage {
	return &Storage{client: client}
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.StoreError("redis ping", err)
	}
	return nil
}

func (s *Storage) Increment(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, domain.StoreError("redis incr", err)
	}
	return count, nil
}

func (s *Storage) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return domain.StoreError("redis expire", err)
	}
	return nil
}

func (s *Storage) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := incrWithTTL.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, domain.StoreError("redis incr with ttl", err)
	}
	return count, nil
}
