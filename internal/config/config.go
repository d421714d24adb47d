// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
)

const (
	ResourceInvoice  = "invoice"
	ResourceCheckout = "checkout"
)

type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Storage     StorageConfig
	RateLimiter RateLimiterConfig
}

type ServerConfig struct {
	Port string `validate:"required,numeric"`
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

type StorageConfig struct {
	Type           string        `validate:"omitempty,oneof=memory redis sql"`
	RedisURL       string
	RedisToken     string
	DatabaseDriver string        `validate:"oneof=postgres sqlite"`
	DatabaseDSN    string        `validate:"required_if=Type sql"`
	SweepInterval  time.Duration `validate:"gte=0"`
}

type RateLimiterConfig struct {
	// FailurePolicy é obrigatória: "open" ou "closed".
	FailurePolicy         domain.FailurePolicy `validate:"required,oneof=open closed"`
	Resources             []ResourceConfig     `validate:"required,dive"`
	BlockedUserAgents     []string
	TrustForwardedHeaders bool
}

type ResourceConfig struct {
	Prefix        string `yaml:"prefix" validate:"required,excludesall=:/"`
	WindowSeconds int    `yaml:"window_seconds" validate:"gt=0"`
	MaxRequests   int    `yaml:"max_requests" validate:"gte=0"`
}

func (r ResourceConfig) LimiterConfig() domain.LimiterConfig {
	return domain.LimiterConfig{
		Prefix:      r.Prefix,
		Window:      time.Duration(r.WindowSeconds) * time.Second,
		MaxRequests: r.MaxRequests,
	}
}

// Resource procura um recurso pelo prefixo.
func (c RateLimiterConfig) Resource(prefix string) (ResourceConfig, bool) {
	for _, r := range c.Resources {
		if r.Prefix == prefix {
			return r, true
		}
	}
	return ResourceConfig{}, false
}

type resourcesFile struct {
	Resources []ResourceConfig `yaml:"resources"`
}

var validate = validator.New()

func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080")}
	logCfg := LogConfig{
		Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	storageConfig, err := buildStorageConfig()
	if err != nil {
		return Config{}, err
	}

	rateLimiterConfig, err := buildRateLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server:      server,
		Log:         logCfg,
		Storage:     storageConfig,
		RateLimiter: rateLimiterConfig,
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return cfg, nil
}

func buildStorageConfig() (StorageConfig, error) {
	sweep, err := time.ParseDuration(getEnv("STORAGE_SWEEP_INTERVAL", "1m"))
	if err != nil {
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_SWEEP_INTERVAL: %w", err)
	}

	return StorageConfig{
		Type:           strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_TYPE"))),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		RedisToken:     strings.TrimSpace(os.Getenv("REDIS_TOKEN")),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseDSN:    strings.TrimSpace(os.Getenv("DATABASE_DSN")),
		SweepInterval:  sweep,
	}, nil
}

func buildRateLimiterConfig() (RateLimiterConfig, error) {
	invoice, err := buildResource(ResourceInvoice, 5, 60)
	if err != nil {
		return RateLimiterConfig{}, err
	}
	checkout, err := buildResource(ResourceCheckout, 10, 60)
	if err != nil {
		return RateLimiterConfig{}, err
	}

	resources := []ResourceConfig{invoice, checkout}
	if path := strings.TrimSpace(os.Getenv("RATE_LIMIT_RESOURCES_FILE")); path != "" {
		fromFile, err := loadResourcesFile(path)
		if err != nil {
			return RateLimiterConfig{}, err
		}
		resources = mergeResources(resources, fromFile)
	}

	trust, err := strconv.ParseBool(getEnv("TRUST_FORWARDED_HEADERS", "true"))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid TRUST_FORWARDED_HEADERS: %w", err)
	}

	return RateLimiterConfig{
		FailurePolicy:         domain.FailurePolicy(strings.ToLower(strings.TrimSpace(os.Getenv("RATE_LIMIT_FAILURE_POLICY")))),
		Resources:             resources,
		BlockedUserAgents:     splitList(os.Getenv("BLOCKED_USER_AGENTS")),
		TrustForwardedHeaders: trust,
	}, nil
}

func buildResource(prefix string, defaultRequests, defaultWindow int) (ResourceConfig, error) {
	envPrefix := "RATE_LIMIT_" + strings.ToUpper(prefix)

	requests, err := strconv.Atoi(getEnv(envPrefix+"_REQUESTS", strconv.Itoa(defaultRequests)))
	if err != nil {
		return ResourceConfig{}, fmt.Errorf("invalid %s_REQUESTS: %w", envPrefix, err)
	}
	windowSeconds, err := strconv.Atoi(getEnv(envPrefix+"_WINDOW_SECONDS", strconv.Itoa(defaultWindow)))
	if err != nil {
		return ResourceConfig{}, fmt.Errorf("invalid %s_WINDOW_SECONDS: %w", envPrefix, err)
	}

	return ResourceConfig{Prefix: prefix, WindowSeconds: windowSeconds, MaxRequests: requests}, nil
}

func loadResourcesFile(path string) ([]ResourceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resources file: %w", err)
	}

	var file resourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse resources file %s: %w", path, err)
	}
	for i := range file.Resources {
		file.Resources[i].Prefix = strings.TrimSpace(file.Resources[i].Prefix)
	}
	return file.Resources, nil
}

// mergeResources substitui pelo prefixo e acrescenta os novos, em ordem estável.
func mergeResources(base, overrides []ResourceConfig) []ResourceConfig {
	byPrefix := make(map[string]ResourceConfig, len(base)+len(overrides))
	for _, r := range base {
		byPrefix[r.Prefix] = r
	}
	for _, r := range overrides {
		byPrefix[r.Prefix] = r
	}

	merged := make([]ResourceConfig, 0, len(byPrefix))
	for _, r := range byPrefix {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Prefix < merged[j].Prefix })
	return merged
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
