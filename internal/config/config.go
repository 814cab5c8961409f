package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the server configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Battle    BattleConfig    `mapstructure:"battle"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Game      GameConfig      `mapstructure:"game"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TTL bounds how long an untouched battle stays in Redis
	TTL time.Duration `mapstructure:"ttl"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// StorageConfig selects where live battles are kept: "redis" or "memory"
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type BattleConfig struct {
	// TurnTimeout forfeits an idle turn owner; 0 disables it
	TurnTimeout   time.Duration `mapstructure:"turn_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type WebSocketConfig struct {
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateBurst      int      `mapstructure:"rate_burst"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type GameConfig struct {
	// StarterCards are granted to every new profile
	StarterCards []string `mapstructure:"starter_cards"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const envPrefix = "ECOCARDS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "ecocards")
	v.SetDefault("storage.backend", "redis")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("battle.turn_timeout", 2*time.Minute)
	v.SetDefault("battle.sweep_interval", 5*time.Second)
	v.SetDefault("websocket.rate_limit", 10.0)
	v.SetDefault("websocket.rate_burst", 20)
	v.SetDefault("websocket.allowed_origins", []string{})
	v.SetDefault("game.starter_cards", []string{"English Oak", "Compost Heap", "Bat Box", "Bike Shelter"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Loader reads the configuration from defaults, an optional YAML file and
// ECOCARDS_* environment variables, in increasing precedence.
type Loader struct {
	v  *viper.Viper
	mu sync.Mutex
}

// NewLoader creates a loader. path may be empty to run on defaults and
// environment only.
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	}
	return &Loader{v: v}
}

// Load reads and validates the configuration
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.v.ConfigFileUsed() != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.WebSocket.AllowedOrigins = normalizeOrigins(cfg.WebSocket.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch calls onChange with the new configuration every time the config
// file is written. Invalid files are reported through onError and ignored.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		l.mu.Lock()
		cfg, err := l.decode()
		l.mu.Unlock()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// normalizeOrigins trims blanks and trailing slashes so origins compare
// equal to a browser's Origin header
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks values that have no usable default
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	switch c.Storage.Backend {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be redis or memory, got %q", c.Storage.Backend))
	}
	if c.Battle.TurnTimeout < 0 {
		errs = append(errs, errors.New("battle.turn_timeout must not be negative"))
	}
	if c.Battle.SweepInterval <= 0 {
		errs = append(errs, errors.New("battle.sweep_interval must be positive"))
	}
	if c.WebSocket.RateLimit < 0 {
		errs = append(errs, errors.New("websocket.rate_limit must not be negative"))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}
