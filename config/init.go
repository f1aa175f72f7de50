package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/orderstack/orderstack/internal/logger"
	"github.com/orderstack/orderstack/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	IMAPConfig      *IMAPConfig
	StorageConfig   *StorageConfig
	R2StorageConfig *R2StorageConfig
	CronConfig      *CronConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		IMAPConfig:      &IMAPConfig{},
		StorageConfig:   &StorageConfig{},
		R2StorageConfig: &R2StorageConfig{},
		CronConfig:      &CronConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading orderstack config: %v", err)
	}

	return config, nil
}
