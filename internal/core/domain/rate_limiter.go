// Package domain concentra entidades e estruturas centrais do gate de requisições.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// KeySeparator separa as partes da chave. O prefixo nunca o contém e a janela
// é numérica, então o chamador (que pode ser IPv6) fica delimitado sem ambiguidade.
const KeySeparator = ":"

// RateLimitKey identifica um contador: recurso protegido, chamador e janela fixa.
type RateLimitKey struct {
	Prefix   string
	CallerID string
	Window   int64
}

// NewRateLimitKey normaliza o chamador e calcula o índice da janela para now.
func NewRateLimitKey(prefix, callerID string, window time.Duration, now time.Time) RateLimitKey {
	return RateLimitKey{
		Prefix:   prefix,
		CallerID: strings.ToLower(strings.TrimSpace(callerID)),
		Window:   WindowIndex(now, window),
	}
}

func (k RateLimitKey) String() string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", k.Prefix, k.CallerID, k.Window)
}

// WindowIndex devolve floor(segundos_unix / segundos_da_janela).
func WindowIndex(now time.Time, window time.Duration) int64 {
	secs := int64(window / time.Second)
	if secs <= 0 {
		return 0
	}
	return now.Unix() / secs
}

// WindowEnd é o instante em que a janela que contém now se fecha.
func WindowEnd(now time.Time, window time.Duration) time.Time {
	secs := int64(window / time.Second)
	if secs <= 0 {
		return now
	}
	return time.Unix((WindowIndex(now, window)+1)*secs, 0)
}

// CounterRecord pertence exclusivamente ao CounterStore.
type CounterRecord struct {
	Count   int64
	ResetAt time.Time
}

// Expired indica se a janela do registro já terminou em now.
func (r CounterRecord) Expired(now time.Time) bool {
	return !r.ResetAt.IsZero() && !now.Before(r.ResetAt)
}

type LimiterConfig struct {
	Prefix      string
	Window      time.Duration
	MaxRequests int
}

// Validate rejeita configurações inválidas sem ajustar valores.
func (c LimiterConfig) Validate() error {
	if strings.TrimSpace(c.Prefix) == "" {
		return fmt.Errorf("%w: resource prefix is required", ErrInvalidConfig)
	}
	if strings.Contains(c.Prefix, KeySeparator) {
		return fmt.Errorf("%w: resource prefix must not contain %q, got %q", ErrInvalidConfig, KeySeparator, c.Prefix)
	}
	if c.Window < time.Second || c.Window%time.Second != 0 {
		return fmt.Errorf("%w: window must be a positive whole number of seconds, got %s", ErrInvalidConfig, c.Window)
	}
	if c.MaxRequests < 0 {
		return fmt.Errorf("%w: max requests must be >= 0, got %d", ErrInvalidConfig, c.MaxRequests)
	}
	return nil
}

type Decision struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetSeconds int
	Key          RateLimitKey
}
