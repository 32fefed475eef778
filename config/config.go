// Package config reads service configuration from the environment.
//
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it. The vault key is the only
// mandatory setting: Load fails when VAULT_SECRET_KEY is missing or is not
// exactly 64 hex characters, and callers are expected to treat that as fatal.
package config

import (
	"errors"
	"fmt"
	"gameboard-server/vault"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultLocalStoragePath = "./data"
	defaultDataSourceName   = "gameboard.db"
	defaultPresenceFile     = "gameBoard.txt"
	defaultPresenceTTL      = 5 * time.Minute
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultRedisKeyPrefix   = "gameboard:"
	defaultRegisterRate     = 30
)

var defaultAllowedOrigins = []string{"http://127.0.0.1:5500", "https://tonicjunior.github.io"}

type (
	Config struct {
		StorageType      string
		LocalStoragePath string
		DataSourceName   string
		S3BucketName     string
		S3Prefix         string
		Redis            RedisConfig

		PresenceFile string
		PresenceTTL  time.Duration

		// VaultKey is the decoded 32-byte key. It is never logged.
		VaultKey    []byte
		SecretSlots map[string]string

		AdminJWTSecret string
		OpenAIBaseURL  string

		AllowedOrigins        []string
		RegisterRatePerMinute int
	}

	RedisConfig struct {
		Addr      string
		Password  string
		DB        int
		KeyPrefix string
	}
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup.
func FromEnv(lookup LookupFunc) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := &Config{
		StorageType:      strings.ToLower(get("STORAGE_TYPE", "filesystem")),
		LocalStoragePath: get("LOCAL_STORAGE_PATH", defaultLocalStoragePath),
		DataSourceName:   get("DATA_SOURCE_NAME", defaultDataSourceName),
		S3BucketName:     get("S3_BUCKET_NAME", ""),
		S3Prefix:         get("S3_PREFIX", ""),
		Redis: RedisConfig{
			Addr:      get("REDIS_ADDR", ""),
			Password:  get("REDIS_PASSWORD", ""),
			KeyPrefix: get("REDIS_KEY_PREFIX", defaultRedisKeyPrefix),
		},
		PresenceFile:   get("PRESENCE_FILE", defaultPresenceFile),
		PresenceTTL:    defaultPresenceTTL,
		AdminJWTSecret: get("ADMIN_JWT_SECRET", ""),
		OpenAIBaseURL:  strings.TrimRight(get("OPENAI_BASE_URL", defaultOpenAIBaseURL), "/"),
		AllowedOrigins: append([]string(nil), defaultAllowedOrigins...),

		RegisterRatePerMinute: defaultRegisterRate,
	}

	var err error
	cfg.VaultKey, err = vault.ParseKey(get("VAULT_SECRET_KEY", ""))
	if err != nil {
		return nil, fmt.Errorf("VAULT_SECRET_KEY: %w", err)
	}

	slots := vault.DefaultSlots()
	slots[vault.SlotChat] = get("CHAT_KEY_FILE", slots[vault.SlotChat])
	slots[vault.SlotImage] = get("IMAGE_KEY_FILE", slots[vault.SlotImage])
	cfg.SecretSlots = slots

	if v := get("PRESENCE_TTL", ""); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("PRESENCE_TTL: invalid duration %q", v)
		}
		cfg.PresenceTTL = ttl
	}

	if v := get("REDIS_DB", ""); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("REDIS_DB: invalid database index %q", v)
		}
		cfg.Redis.DB = db
	}

	if v := get("REGISTER_RATE_PER_MINUTE", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("REGISTER_RATE_PER_MINUTE: invalid value %q", v)
		}
		cfg.RegisterRatePerMinute = n
	}

	if v := get("ALLOWED_ORIGINS", ""); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that FromEnv cannot express per variable.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageType {
	case "filesystem", "memory", "sqlite":
	case "s3":
		if c.S3BucketName == "" {
			errs = append(errs, errors.New("S3_BUCKET_NAME must be set for s3 storage type"))
		}
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR must be set for redis storage type"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType))
	}
	if c.PresenceFile == "" {
		errs = append(errs, errors.New("PRESENCE_FILE must not be empty"))
	}
	for slot, name := range c.SecretSlots {
		if name == c.PresenceFile {
			errs = append(errs, fmt.Errorf("secret slot %q shares its file with the presence registry", slot))
		}
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
