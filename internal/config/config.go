package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/abaflow/practice-api/internal/repository/postgres"
)

type Config struct {
	Server     ServerConfig
	Database   postgres.Config
	JWT        JWTConfig
	Redis      RedisConfig
	Email      EmailConfig
	Scheduling SchedulingConfig
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	TimeoutSeconds int     `mapstructure:"timeoutSeconds"`
	RateLimitRPS   float64 `mapstructure:"rateLimitRPS"`
	RateBurst      int     `mapstructure:"rateBurst"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// SchedulingConfig carries the tunables of the scheduling core. Grace
// hours feed the missed sweep; the date tolerance feeds session
// matching during reconciliation.
type SchedulingConfig struct {
	SweepGraceHours   float64 `mapstructure:"sweepGraceHours"`
	DateToleranceDays int     `mapstructure:"dateToleranceDays"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("server.rateLimitRPS", 100)
	viper.SetDefault("server.rateBurst", 200)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("scheduling.sweepGraceHours", 2.0)
	viper.SetDefault("scheduling.dateToleranceDays", 0)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
