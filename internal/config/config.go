package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envConfigPath     = "KEYZ_CONFIG"
	defaultConfigName = "keyz"
	defaultConfigType = "toml"
	defaultConfigFile = defaultConfigName + "." + defaultConfigType
)

// Source records where a Config was ultimately loaded from, so the server's
// startup log line and keyz-cli's `config show` can report it.
type Source struct {
	Kind string // "explicit", "env", "file", "defaults"
	Path string // empty for "defaults"
}

func (s Source) String() string {
	switch s.Kind {
	case "explicit":
		return fmt.Sprintf("explicit file (%s)", s.Path)
	case "env":
		return fmt.Sprintf("environment via %s (%s)", envConfigPath, s.Path)
	case "file":
		return fmt.Sprintf("default file (%s)", s.Path)
	default:
		return "built-in defaults"
	}
}

// Config is the root configuration structure consumed by the core.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds the listener bind settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StoreConfig controls the in-memory store's TTL and compression behavior.
type StoreConfig struct {
	CompressionThreshold int  `mapstructure:"compression_threshold"`
	CleanupIntervalMs    int  `mapstructure:"cleanup_interval_ms"`
	DefaultTTLSecs       *int `mapstructure:"default_ttl_secs"`
}

// ProtocolConfig controls framing limits, timeouts, and canned replies.
type ProtocolConfig struct {
	MaxMessageBytes        uint32 `mapstructure:"max_message_bytes"`
	IdleTimeoutSecs        int    `mapstructure:"idle_timeout_secs"`
	CloseCommand           string `mapstructure:"close_command"`
	TimeoutResponse        string `mapstructure:"timeout_response"`
	InvalidCommandResponse string `mapstructure:"invalid_command_response"`
}

// IdleTimeout returns the configured idle window as a time.Duration.
func (p ProtocolConfig) IdleTimeout() time.Duration {
	return time.Duration(p.IdleTimeoutSecs) * time.Second
}

// LogConfig controls verbosity and encoding of the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ValidationError reports exactly which configuration field failed validation,
// so both the server's startup log and keyz-cli can point at the culprit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Load resolves a Config from (in priority order) an explicit path, the
// KEYZ_CONFIG environment variable, ./keyz.toml in the working directory, or
// built-in defaults, and reports which source won via Source.
func Load(explicitPath string) (*Config, Source, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(defaultConfigType)
	v.SetEnvPrefix("KEYZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var source Source

	switch {
	case explicitPath != "":
		v.SetConfigFile(explicitPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, source, fmt.Errorf("reading config %s: %w", explicitPath, err)
		}
		source = Source{Kind: "explicit", Path: explicitPath}

	case os.Getenv(envConfigPath) != "":
		path := os.Getenv(envConfigPath)
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, source, fmt.Errorf("reading config %s: %w", path, err)
		}
		source = Source{Kind: "env", Path: path}

	default:
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, source, fmt.Errorf("reading %s: %w", defaultConfigFile, err)
			}
			source = Source{Kind: "defaults"}
		} else {
			abs, _ := filepath.Abs(v.ConfigFileUsed())
			source = Source{Kind: "file", Path: abs}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, source, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, source, err
	}

	return &cfg, source, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7667)

	v.SetDefault("store.compression_threshold", 512)
	v.SetDefault("store.cleanup_interval_ms", 250)

	v.SetDefault("protocol.max_message_bytes", 4*1024*1024)
	v.SetDefault("protocol.idle_timeout_secs", 30)
	v.SetDefault("protocol.close_command", "CLOSE")
	v.SetDefault("protocol.timeout_response", "error:timeout")
	v.SetDefault("protocol.invalid_command_response", "error:invalid command")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate rejects zero/empty values in required fields, surfacing which
// field failed. Called once at startup; a failure there is a server-global
// error (the process exits before the listener binds).
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ValidationError{"server.port", "must be between 1 and 65535"}
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		c.Server.Host = "127.0.0.1"
	}

	if c.Store.CompressionThreshold <= 0 {
		return &ValidationError{"store.compression_threshold", "must be greater than zero"}
	}
	if c.Store.CleanupIntervalMs <= 0 {
		return &ValidationError{"store.cleanup_interval_ms", "must be greater than zero"}
	}
	if c.Store.DefaultTTLSecs != nil && *c.Store.DefaultTTLSecs <= 0 {
		return &ValidationError{"store.default_ttl_secs", "cannot be zero or negative (omit the field instead)"}
	}

	if c.Protocol.MaxMessageBytes == 0 {
		return &ValidationError{"protocol.max_message_bytes", "must be greater than zero"}
	}
	if c.Protocol.IdleTimeoutSecs <= 0 {
		return &ValidationError{"protocol.idle_timeout_secs", "must be greater than zero"}
	}
	if strings.TrimSpace(c.Protocol.CloseCommand) == "" {
		return &ValidationError{"protocol.close_command", "cannot be empty"}
	}
	if c.Protocol.TimeoutResponse == "" {
		return &ValidationError{"protocol.timeout_response", "cannot be empty"}
	}
	if c.Protocol.InvalidCommandResponse == "" {
		return &ValidationError{"protocol.invalid_command_response", "cannot be empty"}
	}

	return nil
}

// Addr returns the "host:port" listener address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
