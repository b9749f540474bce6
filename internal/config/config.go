package config

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

type SessionConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type SecurityConfig struct {
	// Keys by version, e.g. {"1": "..."}; the active version seals new
	// ciphertexts, older versions stay readable.
	EncryptionKeys   map[string]string `mapstructure:"encryption_keys"`
	ActiveKeyVersion int               `mapstructure:"active_key_version"`
}

// KeyRegistry converts the string-keyed viper map into version -> key.
func (s SecurityConfig) KeyRegistry() (map[int]string, error) {
	out := make(map[int]string, len(s.EncryptionKeys))
	for verStr, key := range s.EncryptionKeys {
		version, err := strconv.Atoi(verStr)
		if err != nil {
			return nil, fmt.Errorf("encryption key version %q is not a number", verStr)
		}
		out[version] = key
	}
	return out, nil
}

type RateLimitConfig struct {
	Requests      int `mapstructure:"requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	Security  SecurityConfig  `mapstructure:"security"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it defaults to "config.yaml" in current working directory.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		if path == "" {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
		} else {
			v.SetConfigFile(path)
		}

		// environment overrides, e.g. EF_SERVER_PORT=9000
		v.SetEnvPrefix("EF")
		v.AutomaticEnv()

		if err = v.ReadInConfig(); err != nil {
			err = fmt.Errorf("read config: %w", err)
			return
		}

		var c Config
		if err = v.Unmarshal(&c); err != nil {
			err = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		if c.RateLimit.Requests <= 0 {
			c.RateLimit.Requests = 120
		}
		if c.RateLimit.WindowSeconds <= 0 {
			c.RateLimit.WindowSeconds = 60
		}

		appConfig = &c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}
