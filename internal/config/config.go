package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g.
// BOATBOAT_BROADCAST_INTERVAL=100ms.
const EnvPrefix = "BOATBOAT"

// FileName is the config file base name searched for in the config directory.
const FileName = "boatboat"

// Config is the full server configuration.
type Config struct {
	ListenAddr    string              `mapstructure:"listen_addr"`
	Log           LogConfig           `mapstructure:"log"`
	Broadcast     BroadcastConfig     `mapstructure:"broadcast"`
	World         WorldConfig         `mapstructure:"world"`
	Session       SessionConfig       `mapstructure:"session"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type LogConfig struct {
	Level   string        `mapstructure:"level"`
	File    string        `mapstructure:"file"`
	Graylog GraylogConfig `mapstructure:"graylog"`
}

type GraylogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type BroadcastConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type WorldConfig struct {
	HitRadius     float64       `mapstructure:"hit_radius"`
	HitDamage     int           `mapstructure:"hit_damage"`
	InitialHealth int           `mapstructure:"initial_health"`
	ProjectileTTL time.Duration `mapstructure:"projectile_ttl"`
	MaxCrew       int           `mapstructure:"max_crew"`
}

type SessionConfig struct {
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	SendQueue    int           `mapstructure:"send_queue"`
	TicketTTL    time.Duration `mapstructure:"ticket_ttl"`
	InboundRate  float64       `mapstructure:"inbound_rate"`
	InboundBurst int           `mapstructure:"inbound_burst"`
}

type ObservabilityConfig struct {
	Pprof bool `mapstructure:"pprof"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8000")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.graylog.enabled", false)
	v.SetDefault("log.graylog.address", "localhost:12201")

	v.SetDefault("broadcast.interval", 50*time.Millisecond)

	v.SetDefault("world.hit_radius", 50.0)
	v.SetDefault("world.hit_damage", 10)
	v.SetDefault("world.initial_health", 100)
	v.SetDefault("world.projectile_ttl", 5*time.Second)
	v.SetDefault("world.max_crew", 0)

	v.SetDefault("session.idle_timeout", 30*time.Second)
	v.SetDefault("session.ping_interval", 10*time.Second)
	v.SetDefault("session.write_wait", 10*time.Second)
	v.SetDefault("session.send_queue", 64)
	v.SetDefault("session.ticket_ttl", 60*time.Second)
	v.SetDefault("session.inbound_rate", 120.0)
	v.SetDefault("session.inbound_burst", 240)

	v.SetDefault("observability.pprof", false)
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return cfg
}

// Load reads configuration from, in increasing precedence: defaults, an
// optional boatboat.{json,yaml,toml} file in configDir, an optional .env file
// in configDir, and BOATBOAT_* environment variables. Missing files are not an
// error; unreadable or malformed ones are.
func Load(configDir string) (Config, error) {
	if configDir == "" {
		configDir = "."
	}

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(FileName)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.ListenAddr != "", "listen_addr is empty")
	check(c.Broadcast.Interval > 0, "broadcast.interval must be positive, got %s", c.Broadcast.Interval)
	check(c.World.HitRadius > 0, "world.hit_radius must be positive, got %v", c.World.HitRadius)
	check(c.World.HitDamage > 0, "world.hit_damage must be positive, got %d", c.World.HitDamage)
	check(c.World.InitialHealth > 0, "world.initial_health must be positive, got %d", c.World.InitialHealth)
	check(c.World.ProjectileTTL > 0, "world.projectile_ttl must be positive, got %s", c.World.ProjectileTTL)
	check(c.World.MaxCrew >= 0, "world.max_crew must not be negative, got %d", c.World.MaxCrew)
	check(c.Session.IdleTimeout > 0, "session.idle_timeout must be positive, got %s", c.Session.IdleTimeout)
	check(c.Session.PingInterval > 0, "session.ping_interval must be positive, got %s", c.Session.PingInterval)
	check(c.Session.WriteWait > 0, "session.write_wait must be positive, got %s", c.Session.WriteWait)
	check(c.Session.SendQueue > 0, "session.send_queue must be positive, got %d", c.Session.SendQueue)
	check(c.Session.TicketTTL > 0, "session.ticket_ttl must be positive, got %s", c.Session.TicketTTL)
	check(c.Session.InboundRate > 0, "session.inbound_rate must be positive, got %v", c.Session.InboundRate)
	check(c.Session.InboundBurst > 0, "session.inbound_burst must be positive, got %d", c.Session.InboundBurst)
	check(!c.Log.Graylog.Enabled || c.Log.Graylog.Address != "", "log.graylog.address is required when graylog is enabled")

	return errors.Join(errs...)
}
