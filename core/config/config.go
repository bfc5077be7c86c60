package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"orgsync-api/core/constants"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	GoogleAPI    GoogleAPIConfig    `mapstructure:"google"`
	CalendarSync CalendarSyncConfig `mapstructure:"calendar"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // in minutes
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type GoogleAPIConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type CalendarSyncConfig struct {
	// TokenEncryptionKey is a hex encoded 32 byte AES-256 key.
	TokenEncryptionKey string        `mapstructure:"token_encryption_key"`
	Workers            int           `mapstructure:"sync_workers"`
	RemoteTimeout      time.Duration `mapstructure:"remote_timeout"`
	InternalAPIKey     string        `mapstructure:"internal_api_key"`
	DefaultCalendarID  string        `mapstructure:"default_calendar_id"`
}

var (
	mu       sync.RWMutex
	instance *Config
)

// Load reads .env (when present) and the process environment into a Config,
// validates it and installs it as the global instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Set(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "orgsync-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 7070)
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "orgsync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_uri", "")

	v.SetDefault("calendar.token_encryption_key", "")
	v.SetDefault("calendar.sync_workers", constants.DefaultSyncWorkers)
	v.SetDefault("calendar.remote_timeout", constants.DefaultRemoteTimeout)
	v.SetDefault("calendar.internal_api_key", "")
	v.SetDefault("calendar.default_calendar_id", constants.DefaultCalendarID)
}

// Validate fails fast on settings the service cannot run without.
func (c *Config) Validate() error {
	if _, err := c.CalendarSync.EncryptionKey(); err != nil {
		return err
	}
	if c.CalendarSync.Workers <= 0 {
		return fmt.Errorf("config: calendar.sync_workers must be positive, got %d", c.CalendarSync.Workers)
	}
	if c.CalendarSync.RemoteTimeout <= 0 {
		return fmt.Errorf("config: calendar.remote_timeout must be positive, got %s", c.CalendarSync.RemoteTimeout)
	}
	if c.CalendarSync.RemoteTimeout >= constants.RefreshLockTTL {
		return fmt.Errorf("config: calendar.remote_timeout must be below the refresh lock TTL %s, got %s", constants.RefreshLockTTL, c.CalendarSync.RemoteTimeout)
	}
	return nil
}

// EncryptionKey decodes TokenEncryptionKey into raw key bytes.
func (c CalendarSyncConfig) EncryptionKey() ([]byte, error) {
	if c.TokenEncryptionKey == "" {
		return nil, fmt.Errorf("config: CALENDAR_TOKEN_ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(c.TokenEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("config: CALENDAR_TOKEN_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("config: CALENDAR_TOKEN_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// GetSafe returns the loaded config and whether Load has run.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}
