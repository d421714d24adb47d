// Package sql disponibiliza um CounterStore durável sobre gorm (postgres ou sqlite).
package sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

const tableName = "rate_limit_counters"

// counterRow é a linha persistida de um contador. ExpiresAt nulo significa
// que Expire ainda não foi chamado para a chave.
type counterRow struct {
	Key       string     `gorm:"column:key;primaryKey;size:255"`
	Hits      int64      `gorm:"column:hits;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
}

func (counterRow) TableName() string { return tableName }

type Storage struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ ports.CounterStore        = (*Storage)(nil)
	_ ports.WindowedIncrementer = (*Storage)(nil)
)

type Config struct {
	Driver string
	DSN    string
}

type Option func(*Storage)

func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

// Open abre a conexão e migra a tabela de contadores.
func Open(cfg Config, opts ...Option) (*Storage, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("%w: database dsn is required", domain.ErrConfiguration)
	}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", domain.ErrConfiguration, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, domain.StoreError("open database", err)
	}
	return New(db, opts...)
}

// New usa uma conexão gorm existente.
func New(db *gorm.DB, opts ...Option) (*Storage, error) {
	if err := db.AutoMigrate(&counterRow{}); err != nil {
		return nil, domain.StoreError("migrate counters", err)
	}

	s := &Storage{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Storage) Increment(ctx context.Context, key string) (int64, error) {
	return s.upsert(ctx, key, nil)
}

// IncrementWithTTL grava expires_at apenas ao criar (ou recriar) a linha.
func (s *Storage) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	expiresAt := s.now().Add(ttl)
	return s.upsert(ctx, key, &expiresAt)
}

// upsert incrementa atomicamente; linhas vencidas recomeçam em 1.
func (s *Storage) upsert(ctx context.Context, key string, expiresAt *time.Time) (int64, error) {
	now := s.now()
	expired := gorm.Expr(tableName+".expires_at IS NOT NULL AND "+tableName+".expires_at <= ?", now)

	var row counterRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := counterRow{Key: key, Hits: 1, ExpiresAt: expiresAt}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"hits": gorm.Expr("CASE WHEN ? THEN 1 ELSE "+tableName+".hits + 1 END", expired),
				"expires_at": gorm.Expr("CASE WHEN ? THEN ? ELSE "+tableName+".expires_at END",
					expired, expiresAt),
			}),
		}).Create(&insert).Error
		if err != nil {
			return err
		}
		return tx.Where("key = ?", key).Take(&row).Error
	})
	if err != nil {
		return 0, domain.StoreError("sql increment", err)
	}
	return row.Hits, nil
}

func (s *Storage) Expire(ctx context.Context, key string, ttl time.Duration) error {
	err := s.db.WithContext(ctx).
		Model(&counterRow{}).
		Where("key = ?", key).
		Update("expires_at", s.now().Add(ttl)).Error
	if err != nil {
		return domain.StoreError("sql expire", err)
	}
	return nil
}

// Get devolve o registro da chave, se existir.
func (s *Storage) Get(ctx context.Context, key string) (domain.CounterRecord, bool, error) {
	var row counterRow
	res := s.db.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&row)
	if res.Error != nil {
		return domain.CounterRecord{}, false, domain.StoreError("sql get", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.CounterRecord{}, false, nil
	}

	rec := domain.CounterRecord{Count: row.Hits}
	if row.ExpiresAt != nil {
		rec.ResetAt = *row.ExpiresAt
	}
	return rec, true, nil
}

// Purge apaga contadores vencidos e devolve quantos foram removidos.
func (s *Storage) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&counterRow{})
	if res.Error != nil {
		return 0, domain.StoreError("sql purge", res.Error)
	}
	return res.RowsAffected, nil
}

// StartPurger chama Purge periodicamente até o contexto ser cancelado.
func (s *Storage) StartPurger(ctx context.Context, every time.Duration) {
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
				_, _ = s.Purge(ctx)
			}
		}
	}()
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return domain.StoreError("sql ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return domain.StoreError("sql ping", err)
	}
	return nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
