package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config — конфигурация приложения из переменных окружения; файл .env в
// рабочем каталоге подхватывается автоматически.
type Config struct {
	Binance BinanceConfig `envPrefix:"BINANCE_"`
	Kraken  KrakenConfig  `envPrefix:"KRAKEN_"`

	// Testnet переключает все биржи на тестовые контуры. По умолчанию
	// включён: боевой режим надо выбирать осознанно.
	Testnet  bool   `env:"TESTNET" envDefault:"true"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Глубина запрашиваемых стаканов; 0 — глубина по умолчанию биржи.
	OrderBookDepth int `env:"ORDER_BOOK_DEPTH" envDefault:"0"`
	// Разрешение реального исполнения заявок (HTTP и CLI).
	AllowExecution bool `env:"ALLOW_EXECUTION" envDefault:"false"`
	// Терпеть отказ части бирж при сравнении цен.
	BestEffort bool `env:"BEST_EFFORT" envDefault:"false"`
}

type BinanceConfig struct {
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	// Котировочный стейблкоин, который считаем долларом.
	USDStablecoin string `env:"USD_STABLECOIN" envDefault:"USDT"`
}

type KrakenConfig struct {
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
}

// Load читает .env (если есть) и окружение.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}
	return cfg, nil
}
