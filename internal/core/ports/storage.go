// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"
)

// CounterStore guarda contadores por chave com incremento atômico.
// Increment cria o registro com valor 1 quando ele não existe.
type CounterStore interface {
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// WindowedIncrementer é implementado por stores capazes de incrementar e
// definir o TTL numa única operação atômica. O limiter prefere este caminho.
type WindowedIncrementer interface {
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
