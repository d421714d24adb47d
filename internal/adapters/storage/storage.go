// Package storage escolhe o CounterStore uma única vez, a partir de configuração explícita.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JeanGrijp/request-gate/internal/adapters/storage/memory"
	redisstorage "github.com/JeanGrijp/request-gate/internal/adapters/storage/redis"
	sqlstorage "github.com/JeanGrijp/request-gate/internal/adapters/storage/sql"
	"github.com/JeanGrijp/request-gate/internal/core/domain"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

const (
	TypeAuto   = ""
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeSQL    = "sql"
)

type Config struct {
	Type           string
	RedisURL       string
	RedisToken     string
	DatabaseDriver string
	DatabaseDSN    string
	// SweepInterval controla o janitor em memória e a limpeza SQL.
	SweepInterval time.Duration
}

// Resolve devolve o tipo efetivo. No modo automático, URL e token do Redis
// selecionam o caminho durável; nenhum dos dois seleciona memória; apenas um
// deles é ErrConfiguration.
func Resolve(cfg Config) (string, error) {
	hasURL := strings.TrimSpace(cfg.RedisURL) != ""
	hasToken := strings.TrimSpace(cfg.RedisToken) != ""
	if hasURL != hasToken {
		return "", fmt.Errorf("%w: REDIS_URL and REDIS_TOKEN must be set together", domain.ErrConfiguration)
	}

	switch t := strings.ToLower(strings.TrimSpace(cfg.Type)); t {
	case TypeAuto:
		if hasURL {
			return TypeRedis, nil
		}
		return TypeMemory, nil
	case TypeMemory, TypeSQL:
		return t, nil
	case TypeRedis:
		if !hasURL {
			return "", fmt.Errorf("%w: redis storage requires REDIS_URL and REDIS_TOKEN", domain.ErrConfiguration)
		}
		return t, nil
	default:
		return "", fmt.Errorf("%w: unsupported storage type %q", domain.ErrConfiguration, cfg.Type)
	}
}

// Open constrói o store escolhido. Rotinas de limpeza param quando ctx é cancelado.
func Open(ctx context.Context, cfg Config) (ports.CounterStore, string, error) {
	kind, err := Resolve(cfg)
	if err != nil {
		return nil, "", err
	}

	switch kind {
	case TypeRedis:
		s, err := redisstorage.New(redisstorage.Config{URL: cfg.RedisURL, Token: cfg.RedisToken})
		if err != nil {
			return nil, "", err
		}
		return s, kind, nil
	case TypeSQL:
		s, err := sqlstorage.Open(sqlstorage.Config{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseDSN})
		if err != nil {
			return nil, "", err
		}
		s.StartPurger(ctx, cfg.SweepInterval)
		return s, kind, nil
	default:
		s := memory.New()
		s.StartJanitor(ctx, cfg.SweepInterval)
		return s, kind, nil
	}
}
