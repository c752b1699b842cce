package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/decisionmaker/internal/gate"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DECISIONMAKER_LOG_LEVEL.
const EnvPrefix = "DECISIONMAKER"

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Identity IdentityConfig `mapstructure:"identity"`
	Gate     GateConfig     `mapstructure:"gate"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// IdentityConfig selects the identity backend. An empty Addr means the local
// single-user provider signed in as LocalUser.
type IdentityConfig struct {
	Addr      string `mapstructure:"addr"`
	LocalUser string `mapstructure:"local_user"`
	Listen    string `mapstructure:"listen"`
}

// GateConfig mirrors gate.GateConfig.
type GateConfig struct {
	Tolerance      float64 `mapstructure:"tolerance"`
	RejectNegative bool    `mapstructure:"reject_negative"`
	RejectAboveOne bool    `mapstructure:"reject_above_one"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from file and env. When path is empty it falls back
// to $DECISIONMAKER_CONFIG, then ./decisionmaker.yaml if present.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", "decisionmaker.db")
	v.SetDefault("identity.addr", "")
	v.SetDefault("identity.local_user", "local")
	v.SetDefault("identity.listen", "127.0.0.1:7443")
	v.SetDefault("gate.tolerance", 0.0)
	v.SetDefault("gate.reject_negative", false)
	v.SetDefault("gate.reject_above_one", false)
	v.SetDefault("log.level", "info")

	v.SetConfigType("yaml")
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("decisionmaker")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the rest of the program cannot run with.
func (c Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("config: database.path is required")
	}
	if c.Gate.Tolerance < 0 {
		return fmt.Errorf("config: gate.tolerance must be >= 0, got %g", c.Gate.Tolerance)
	}
	return nil
}

// GateConfig converts the gate section for gate.NewGate.
func (c Config) GateConfig() gate.GateConfig {
	return gate.GateConfig{
		Tolerance:      c.Gate.Tolerance,
		RejectNegative: c.Gate.RejectNegative,
		RejectAboveOne: c.Gate.RejectAboveOne,
	}
}
