package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv  string `mapstructure:"APP_ENV"`
	AppPort string `mapstructure:"APP_PORT"`
	DBPath  string `mapstructure:"DB_PATH"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	AWSRegion  string `mapstructure:"AWS_REGION"`
	AWSBucket  string `mapstructure:"AWS_BUCKET_NAME"`
	S3Endpoint string `mapstructure:"S3_ENDPOINT"` // optional, for localstack/minio
}

// LoadFromEnv reads configuration from the environment, loading a local
// .env file first when one exists.
func LoadFromEnv() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.New("failed to load .env")
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	keys := []string{
		"APP_ENV", "APP_PORT", "DB_PATH", "JWT_SECRET",
		"AWS_REGION", "AWS_BUCKET_NAME", "S3_ENDPOINT",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_PATH", "./data/shelfhub.db")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AWSBucket == "" || cfg.AWSRegion == "" {
		return nil, errors.New("AWS_BUCKET_NAME and AWS_REGION are required")
	}

	return &cfg, nil
}

func (c *Config) IsDev() bool { return c.AppEnv != "production" }
