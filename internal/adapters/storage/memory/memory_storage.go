// Package memory disponibiliza o CounterStore em memória do processo.
//
// Correto apenas para deploys de um único processo: cada instância tem sua
// própria visão dos contadores, então várias instâncias subcontam no total.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

type Storage struct {
	mu      sync.Mutex
	records map[string]*domain.CounterRecord
	now     func() time.Time
}

var _ ports.CounterStore = (*Storage)(nil)

type Option func(*Storage)

func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

func New(opts ...Option) *Storage {
	s := &Storage{
		records: make(map[string]*domain.CounterRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment recomeça o contador quando o registro anterior já expirou.
func (s *Storage) Increment(_ context.Context, key string) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Expired(now) {
		rec = &domain.CounterRecord{}
		s.records[key] = rec
	}
	rec.Count++
	return rec.Count, nil
}

func (s *Storage) Expire(_ context.Context, key string, ttl time.Duration) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		rec.ResetAt = now.Add(ttl)
	}
	return nil
}

// Get devolve uma cópia do registro, se existir e não estiver expirado.
func (s *Storage) Get(key string) (domain.CounterRecord, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Expired(now) {
		return domain.CounterRecord{}, false
	}
	return *rec, true
}

// Sweep remove registros expirados e devolve quantos foram removidos.
func (s *Storage) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, k)
			removed++
		}
	}
	return removed
}

func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StartJanitor inicia uma goroutine que chama Sweep periodicamente.
// Pare cancelando o contexto.
func (s *Storage) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}

func (s *Storage) Ping(context.Context) error {
	return nil
}

func (s *Storage) Close() error {
	return nil
}
