package app

import (
	"context"

	"github.com/sirupsen/logrus"

	binanceadapter "cryptobroker/internal/adapters/exchange/binance"
	krakenfuturesadapter "cryptobroker/internal/adapters/exchange/krakenfutures"
	"cryptobroker/internal/config"
	"cryptobroker/internal/usecase/broker"
)

// SetupLogging настраивает глобальный logrus по конфигурации.
func SetupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		logrus.Warnf("неизвестный уровень логирования %q, берём info", cfg.LogLevel)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// BuildBroker собирает брокера с биржами из конфигурации. Конструкторы
// адаптеров синхронно тянут справочники пар, поэтому могут упасть.
func BuildBroker(ctx context.Context, cfg *config.Config) (*broker.Broker, error) {
	binance, err := binanceadapter.New(ctx, binanceadapter.Config{
		APIKey:        cfg.Binance.APIKey,
		APISecret:     cfg.Binance.APISecret,
		Testnet:       cfg.Testnet,
		USDStablecoin: cfg.Binance.USDStablecoin,
	})
	if err != nil {
		return nil, err
	}

	kraken, err := krakenfuturesadapter.New(ctx, krakenfuturesadapter.Config{
		APIKey:    cfg.Kraken.APIKey,
		APISecret: cfg.Kraken.APISecret,
		Testnet:   cfg.Testnet,
	})
	if err != nil {
		return nil, err
	}

	opts := []broker.Option{broker.WithDepth(cfg.OrderBookDepth)}
	if cfg.BestEffort {
		opts = append(opts, broker.WithBestEffort())
	}
	br := broker.New(opts...)
	// порядок регистрации - это и порядок разрешения ничьих
	br.AddExchange(binance)
	br.AddExchange(kraken)
	return br, nil
}
