// Package config содержит логику чтения конфигурации сервиса dukaorder.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса dukaorder.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	DarajaConsumerKey    string `env:"DARAJA_CONSUMER_KEY"`
	DarajaConsumerSecret string `env:"DARAJA_CONSUMER_SECRET"`
	DarajaShortCode      string `env:"DARAJA_SHORT_CODE"`
	DarajaPassKey        string `env:"DARAJA_PASS_KEY"`
	DarajaEnvironment    string `env:"DARAJA_ENVIRONMENT" envDefault:"sandbox"`
	CallbackBaseURL      string `env:"CALLBACK_BASE_URL"`

	CourierTokenSecret string `env:"COURIER_TOKEN_SECRET" envDefault:"dukaorder-secret"`

	// Координаты магазина — точка отсчёта для расчёта стоимости доставки
	StoreLat float64 `env:"STORE_LAT" envDefault:"-1.286389"`
	StoreLng float64 `env:"STORE_LNG" envDefault:"36.817223"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
