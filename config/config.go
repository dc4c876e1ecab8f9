package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisAuthDB       int    `mapstructure:"REDIS_AUTH_DB"`
	RedisSweepQueueDB int    `mapstructure:"REDIS_SWEEP_QUEUE_DB"`

	// Claim protocol configuration.
	HmacKey              string `mapstructure:"HMAC_KEY"`
	HmacToleranceSeconds int    `mapstructure:"HMAC_TOLERANCE_SECONDS"`
	ClaimCodeTTLSeconds  int    `mapstructure:"CLAIM_CODE_TTL_SECONDS"`

	// Device secret configuration.
	DeviceSecretPrefix  string `mapstructure:"DEVICE_SECRET_PREFIX"`
	DeviceSecretLength  int    `mapstructure:"DEVICE_SECRET_LENGTH"`
	DeviceSecretTTLDays int    `mapstructure:"DEVICE_SECRET_TTL_DAYS"`

	// OTA firmware hints returned on heartbeat.
	LatestFirmwareVersion int    `mapstructure:"LATEST_FIRMWARE_VERSION"`
	FirmwareDownloadURL   string `mapstructure:"FIRMWARE_DOWNLOAD_URL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_AUTH_DB", 1)
	viper.SetDefault("REDIS_SWEEP_QUEUE_DB", 3)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("JWT_SECRET", "change-me-dev")
	viper.SetDefault("HMAC_KEY", "change-me-dev-hmac")
	viper.SetDefault("HMAC_TOLERANCE_SECONDS", 300)
	viper.SetDefault("CLAIM_CODE_TTL_SECONDS", 300)
	viper.SetDefault("DEVICE_SECRET_PREFIX", "ds_")
	viper.SetDefault("DEVICE_SECRET_LENGTH", 64)
	viper.SetDefault("DEVICE_SECRET_TTL_DAYS", 90)
	viper.SetDefault("LATEST_FIRMWARE_VERSION", 3)
	viper.SetDefault("FIRMWARE_DOWNLOAD_URL", "https://rd1-io.github.io/tigermeter-api/firmware/prod")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
