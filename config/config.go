package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CHARSHEET_BACKEND_BASE_URL.
const EnvPrefix = "CHARSHEET"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Host     HostConfig     `mapstructure:"host"`
	View     ViewConfig     `mapstructure:"view"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
	// DefaultCharacter is shown when no character id can be derived from the request.
	DefaultCharacter string `mapstructure:"default_character"`
}

// BackendConfig points at the external character API.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedIPs restricts the host endpoints. Empty allows everyone.
	AllowedIPs []string `mapstructure:"allowed_ips"`
}

// HostConfig tunes the popover integration.
type HostConfig struct {
	OpenAttempts    int           `mapstructure:"open_attempts"`
	OpenDelay       time.Duration `mapstructure:"open_delay"`
	RestoreAttempts int           `mapstructure:"restore_attempts"`
	RestoreDelay    time.Duration `mapstructure:"restore_delay"`
	RegistryTTL     time.Duration `mapstructure:"registry_ttl"`
	PublicURL       string        `mapstructure:"public_url"`
}

// ViewConfig controls how long mounted sheets are kept.
type ViewConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.default_character", "1")
	v.SetDefault("backend.base_url", "http://localhost:3000")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/charsheet.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 20)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.jwt_secret", "change-me")
	v.SetDefault("security.jwt_ttl", "72h")
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)
	v.SetDefault("security.allowed_ips", []string{})
	v.SetDefault("host.open_attempts", 3)
	v.SetDefault("host.open_delay", "500ms")
	v.SetDefault("host.restore_attempts", 2)
	v.SetDefault("host.restore_delay", "300ms")
	v.SetDefault("host.registry_ttl", "720h")
	v.SetDefault("host.public_url", "")
	v.SetDefault("view.idle_ttl", "30m")
	v.SetDefault("view.prune_interval", "1m")
}

// Load reads config from the given YAML file path. An empty path uses
// defaults only. A .env file in the working directory is loaded first and
// CHARSHEET_* environment variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
