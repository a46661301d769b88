package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	MQTT       MQTTConfig
	JWT        JWTConfig
	MDNS       MDNSConfig
	Automation AutomationConfig
}

type AppConfig struct {
	Port     int    `mapstructure:"APP_PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"DB_URL"`
}

type RedisConfig struct {
	Addr string `mapstructure:"REDIS_ADDR"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"MQTT_BROKER"`
	ClientID string `mapstructure:"MQTT_CLIENT_ID"`
}

type JWTConfig struct {
	Secret            string `mapstructure:"JWT_SECRET"`
	DeviceTokenTTLMin int    `mapstructure:"DEVICE_TOKEN_TTL_MIN"`
	UserTokenTTLHours int    `mapstructure:"USER_TOKEN_TTL_HOURS"`
}

type MDNSConfig struct {
	Enabled   bool   `mapstructure:"MDNS_ENABLED"`
	LocalName string `mapstructure:"MDNS_LOCAL_NAME"`
}

// AutomationConfig carries the rule-engine behavior switches:
// duplicate-alert suppression and pending-command coalescing.
type AutomationConfig struct {
	SuppressDuplicateAlerts bool `mapstructure:"SUPPRESS_DUPLICATE_ALERTS"`
	CoalescePendingCommands bool `mapstructure:"COALESCE_PENDING_COMMANDS"`
	WorkerConcurrency       int  `mapstructure:"WORKER_CONCURRENCY"`
}

// LoadConfig reads configuration from .env, config.yaml, or env vars
func LoadConfig() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("APP_PORT", 5069)
	viper.SetDefault("DEVICE_TOKEN_TTL_MIN", 15)
	viper.SetDefault("USER_TOKEN_TTL_HOURS", 24)
	viper.SetDefault("SUPPRESS_DUPLICATE_ALERTS", true)
	viper.SetDefault("COALESCE_PENDING_COMMANDS", false)
	viper.SetDefault("WORKER_CONCURRENCY", 10)
	viper.SetDefault("MDNS_LOCAL_NAME", "plantcare.local")

	cfg := &Config{
		App: AppConfig{
			Port:     viper.GetInt("APP_PORT"),
			LogLevel: viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			URL: viper.GetString("DB_URL"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
		},
		MQTT: MQTTConfig{
			Broker:   viper.GetString("MQTT_BROKER"),
			ClientID: viper.GetString("MQTT_CLIENT_ID"),
		},
		JWT: JWTConfig{
			Secret:            viper.GetString("JWT_SECRET"),
			DeviceTokenTTLMin: viper.GetInt("DEVICE_TOKEN_TTL_MIN"),
			UserTokenTTLHours: viper.GetInt("USER_TOKEN_TTL_HOURS"),
		},
		MDNS: MDNSConfig{
			Enabled:   viper.GetBool("MDNS_ENABLED"),
			LocalName: viper.GetString("MDNS_LOCAL_NAME"),
		},
		Automation: AutomationConfig{
			SuppressDuplicateAlerts: viper.GetBool("SUPPRESS_DUPLICATE_ALERTS"),
			CoalescePendingCommands: viper.GetBool("COALESCE_PENDING_COMMANDS"),
			WorkerConcurrency:       viper.GetInt("WORKER_CONCURRENCY"),
		},
	}
	return cfg, nil
}
