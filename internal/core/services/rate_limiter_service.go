package services

import (
	"context"
	"fmt"
	"time"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

// FixedWindowLimiter implementa a lógica central de rate limiting por janela fixa.
// Uma instância protege um único recurso (prefixo).
type FixedWindowLimiter struct {
	store  ports.CounterStore
	config domain.LimiterConfig
	now    func() time.Time
}

var _ ports.RateLimiter = (*FixedWindowLimiter)(nil)

type LimiterOption func(*FixedWindowLimiter)

// WithClock substitui o relógio de parede, útil em testes de virada de janela.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *FixedWindowLimiter) { l.now = now }
}

// NewFixedWindowLimiter cria uma nova instância do limiter.
func NewFixedWindowLimiter(store ports.CounterStore, cfg domain.LimiterConfig, opts ...LimiterOption) (*FixedWindowLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: counter store is required", domain.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &FixedWindowLimiter{store: store, config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *FixedWindowLimiter) Config() domain.LimiterConfig {
	return l.config
}

// Check conta a requisição na janela atual e decide se ela pode prosseguir.
// Falhas do store voltam como ErrStoreUnavailable; a política fica com o chamador.
func (l *FixedWindowLimiter) Check(ctx context.Context, callerID string) (domain.Decision, error) {
	now := l.now()
	key := domain.NewRateLimitKey(l.config.Prefix, callerID, l.config.Window, now)

	count, err := l.increment(ctx, key.String())
	if err != nil {
		return domain.Decision{Key: key, Limit: l.config.MaxRequests}, err
	}

	remaining := l.config.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return domain.Decision{
		Allowed:      count <= int64(l.config.MaxRequests),
		Limit:        l.config.MaxRequests,
		Remaining:    remaining,
		ResetSeconds: resetSeconds(now, l.config.Window),
		Key:          key,
	}, nil
}

func (l *FixedWindowLimiter) increment(ctx context.Context, key string) (int64, error) {
	if atomic, ok := l.store.(ports.WindowedIncrementer); ok {
		count, err := atomic.IncrementWithTTL(ctx, key, l.config.Window)
		if err != nil {
			return 0, ensureStoreError("increment", err)
		}
		return count, nil
	}

	count, err := l.store.Increment(ctx, key)
	if err != nil {
		return 0, ensureStoreError("increment", err)
	}
	if count == 1 {
		if err := l.store.Expire(ctx, key, l.config.Window); err != nil {
			return 0, ensureStoreError("expire", err)
		}
	}
	return count, nil
}

// resetSeconds é janela - (now mod janela); sempre em [1, janela].
func resetSeconds(now time.Time, window time.Duration) int {
	secs := int64(window / time.Second)
	return int(secs - now.Unix()%secs)
}

func ensureStoreError(op string, err error) error {
	if domain.IsStoreUnavailable(err) {
		return err
	}
	return domain.StoreError(op, err)
}
