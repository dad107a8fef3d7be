package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// EngineConfig configures campaign orchestration behavior.
type EngineConfig struct {
	CheckpointFractions []float64 `yaml:"checkpoint_fractions" mapstructure:"checkpoint_fractions"`
	EscalationThreshold float64   `yaml:"escalation_threshold" mapstructure:"escalation_threshold"`
	DefaultUrgency      float64   `yaml:"default_urgency" mapstructure:"default_urgency"`
	CheckIntervalSecs   int       `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	Channel             string    `yaml:"channel" mapstructure:"channel"`
}

// DispatchConfig configures outreach delivery.
type DispatchConfig struct {
	Mode       string  `yaml:"mode" mapstructure:"mode"` // "log" or "webhook"
	WebhookURL string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CAMPAIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "campaigns.db")
	v.SetDefault("engine.checkpoint_fractions", []float64{0.25, 0.50, 0.75})
	v.SetDefault("engine.escalation_threshold", 0.8)
	v.SetDefault("engine.default_urgency", 1.0)
	v.SetDefault("engine.check_interval_secs", 30)
	v.SetDefault("engine.channel", "email")
	v.SetDefault("dispatch.mode", "log")
	v.SetDefault("dispatch.rate_per_sec", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
