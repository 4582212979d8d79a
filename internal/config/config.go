// Package config loads process and protocol configuration: spf13/viper
// layered over coded-in defaults, overridable by a config.yaml and CLOB_*
// environment variables, with a zap logger built from the resulting level.
package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the application configuration.
type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Monitoring struct {
		PrometheusPort int    `mapstructure:"prometheus_port"`
		LogLevel       string `mapstructure:"log_level"`
	} `mapstructure:"monitoring"`

	GlobalState struct {
		FeeCollector  string `mapstructure:"fee_collector"`
		TakerFeeBps   int    `mapstructure:"taker_fee_bps"`
		MakerBurn     uint64 `mapstructure:"maker_burn"`
	} `mapstructure:"global_state"`

	TWAP struct {
		MaxObservationChangePerUpdateBps int `mapstructure:"max_observation_change_per_update_bps"`
	} `mapstructure:"twap"`

	NATS struct {
		URL     string `mapstructure:"url"`
		Subject string `mapstructure:"subject"`
	} `mapstructure:"nats"`

	RateLimit struct {
		RequestsPerMinute int64 `mapstructure:"requests_per_minute"`
	} `mapstructure:"rate_limit"`
}

var (
	config *Config
	once   sync.Once
)

// LoadConfig loads configuration from configPath (directory containing
// config.yaml) and environment variables; coded defaults apply to every key
// those leave unset.
func LoadConfig(configPath string) (*Config, error) {
	var err error

	once.Do(func() {
		config = &Config{}
		setDefaults(config)

		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if configPath != "" {
			v.AddConfigPath(configPath)
		} else {
			v.AddConfigPath(".")
			v.AddConfigPath("./config")
			v.AddConfigPath("/etc/clob")
		}

		v.AutomaticEnv()
		v.SetEnvPrefix("CLOB")

		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("failed to read config file: %w", readErr)
				return
			}
		}

		if unmarshalErr := v.Unmarshal(config); unmarshalErr != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
			return
		}
	})

	return config, err
}

func setDefaults(c *Config) {
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080

	c.Monitoring.PrometheusPort = 9090
	c.Monitoring.LogLevel = "info"

	c.GlobalState.TakerFeeBps = 10
	c.GlobalState.MakerBurn = 1_000_000_000

	c.TWAP.MaxObservationChangePerUpdateBps = 250

	c.NATS.URL = "nats://127.0.0.1:4222"
	c.NATS.Subject = "clob.fills"

	c.RateLimit.RequestsPerMinute = 100
}

// InitLogger builds a zap.Logger from the configured level.
func InitLogger(cfg *Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch cfg.Monitoring.LogLevel {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
