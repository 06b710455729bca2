package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"
)

// secretPrefix marks config values encrypted with EncryptValue.
const secretPrefix = "enc:"

// Config is the top-level application configuration.
type Config struct {
	CMS     CMSConfig       `yaml:"cms"`
	Rate    RateLimitConfig `yaml:"rate_limit"`
	Counter CounterConfig   `yaml:"counters"`
	Packs   PacksConfig     `yaml:"packs"`
	Legacy  LegacyConfig    `yaml:"legacy"`
	Gateway GatewayConfig   `yaml:"gateway"`
	MCP     MCPConfig       `yaml:"mcp"`
	Audit   AuditConfig     `yaml:"audit"`
	Logger  LoggerConfig    `yaml:"logger"`
	Tracer  TracerConfig    `yaml:"tracer"`
}

// CMSConfig holds the content platform connection settings.
type CMSConfig struct {
	BaseURL     string               `yaml:"base_url"`
	Username    string               `yaml:"username"`
	AppPassword string               `yaml:"app_password"` // supports enc: prefix
	Timeout     time.Duration        `yaml:"timeout"`
	Breaker     CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig configures the CMS client circuit breaker.
type CircuitBreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// RateLimitConfig holds the router rate limiter settings.
type RateLimitConfig struct {
	Base   int           `yaml:"base"`
	Window time.Duration `yaml:"window"`
}

// CounterConfig selects the rate counter backend.
type CounterConfig struct {
	Backend  string `yaml:"backend"` // "memory", "sqlite", "redis"
	Path     string `yaml:"path"`    // sqlite database path
	RedisURL string `yaml:"redis_url"`
}

// StaticPack declares one pack in config for the static pack store.
type StaticPack struct {
	Name         string   `yaml:"name"`
	Active       bool     `yaml:"active"`
	AllowedRoles []string `yaml:"allowed_roles,omitempty"`
}

// PacksConfig selects the pack configuration backend.
type PacksConfig struct {
	Backend string       `yaml:"backend"` // "static", "sqlite"
	Path    string       `yaml:"path"`    // sqlite database path
	Static  []StaticPack `yaml:"static,omitempty"`
}

// LegacyConfig toggles the legacy tool-name translation tier.
type LegacyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// GatewayTokenEntry is one static auth token for the WebSocket gateway.
// CallerID is the content platform user the token acts as; 0 means the
// token is anonymous and may only call public tools.
type GatewayTokenEntry struct {
	Token    string   `yaml:"token"` // supports enc: prefix
	Name     string   `yaml:"name"`
	CallerID int64    `yaml:"caller_id"`
	Roles    []string `yaml:"roles"`
}

// GatewayConfig holds WebSocket gateway settings.
type GatewayConfig struct {
	Enabled        bool                `yaml:"enabled"`
	Addr           string              `yaml:"addr"`
	Tokens         []GatewayTokenEntry `yaml:"tokens"`
	RequestsPerMin int                 `yaml:"requests_per_min"`
	Burst          int                 `yaml:"burst"`
	TrustedProxies []string            `yaml:"trusted_proxies,omitempty"`
}

// MCPConfig holds MCP stdio server settings.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AuditConfig holds audit log settings.
type AuditConfig struct {
	Path              string `yaml:"path"`
	RetentionMaxAge   string `yaml:"retention_max_age"`  // duration string, "" = no limit
	RetentionMaxSize  string `yaml:"retention_max_size"` // e.g. "100MB", "" = no limit
	RetentionSchedule string `yaml:"retention_schedule"` // cron expression
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a config populated with sensible defaults.
func Defaults() *Config {
	return &Config{
		CMS: CMSConfig{
			Timeout: 30 * time.Second,
		},
		Rate: RateLimitConfig{
			Base:   60,
			Window: 60 * time.Second,
		},
		Counter: CounterConfig{Backend: "memory"},
		Packs:   PacksConfig{Backend: "static"},
		Legacy:  LegacyConfig{Enabled: true},
		Gateway: GatewayConfig{
			Addr:           "127.0.0.1:8791",
			RequestsPerMin: 120,
			Burst:          20,
		},
		MCP: MCPConfig{Enabled: true},
		Audit: AuditConfig{
			Path:              "toolgate-audit.jsonl",
			RetentionSchedule: "0 3 * * *",
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Enabled: false, Exporter: "noop"},
	}
}

// Load reads, merges and validates the configuration at path. A missing file
// yields the defaults with env overrides applied. Secret values prefixed
// with "enc:" are decrypted with the TOOLGATE_CONFIG_KEY passphrase.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			return cfg, Validate(cfg)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := validatePermissions(path); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv("TOOLGATE_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	return cfg, Validate(cfg)
}

// ApplyEnvOverrides maps TOOLGATE_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TOOLGATE_CMS_BASE_URL"); v != "" {
		cfg.CMS.BaseURL = v
	}
	if v := os.Getenv("TOOLGATE_CMS_APP_PASSWORD"); v != "" {
		cfg.CMS.AppPassword = v
	}
	if v := os.Getenv("TOOLGATE_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("TOOLGATE_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("TOOLGATE_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("TOOLGATE_GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := os.Getenv("TOOLGATE_RATE_BASE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Rate.Base = n
		}
	}
}

// Validate rejects configurations the process cannot start with.
func Validate(cfg *Config) error {
	switch cfg.Counter.Backend {
	case "memory", "":
	case "sqlite":
		if cfg.Counter.Path == "" {
			return fmt.Errorf("counters.path is required for the sqlite backend")
		}
	case "redis":
		if cfg.Counter.RedisURL == "" {
			return fmt.Errorf("counters.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown counter backend %q", cfg.Counter.Backend)
	}

	switch cfg.Packs.Backend {
	case "static", "":
	case "sqlite":
		if cfg.Packs.Path == "" {
			return fmt.Errorf("packs.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown pack backend %q", cfg.Packs.Backend)
	}

	if cfg.Rate.Base < 0 {
		return fmt.Errorf("rate_limit.base must not be negative")
	}
	if cfg.Audit.RetentionMaxAge != "" {
		if _, err := time.ParseDuration(cfg.Audit.RetentionMaxAge); err != nil {
			return fmt.Errorf("audit.retention_max_age: %w", err)
		}
	}
	return nil
}

// decryptSecrets resolves enc:-prefixed values in place.
func decryptSecrets(cfg *Config, passphrase string) error {
	if strings.HasPrefix(cfg.CMS.AppPassword, secretPrefix) {
		plain, err := DecryptValue(strings.TrimPrefix(cfg.CMS.AppPassword, secretPrefix), passphrase)
		if err != nil {
			return fmt.Errorf("cms.app_password: %w", err)
		}
		cfg.CMS.AppPassword = plain
	}
	for i, tok := range cfg.Gateway.Tokens {
		if strings.HasPrefix(tok.Token, secretPrefix) {
			plain, err := DecryptValue(strings.TrimPrefix(tok.Token, secretPrefix), passphrase)
			if err != nil {
				return fmt.Errorf("gateway.tokens[%d]: %w", i, err)
			}
			cfg.Gateway.Tokens[i].Token = plain
		}
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts an AES-256-GCM encrypted value.
func DecryptValue(encrypted, passphrase string) (string, error) {
	parts := strings.SplitN(encrypted, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid encrypted format")
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}

	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}

	return string(plaintext), nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
