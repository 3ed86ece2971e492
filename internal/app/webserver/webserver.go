package webserver

import (
	"context"

	"cryptobroker/internal/app"
	"cryptobroker/internal/config"
	"cryptobroker/internal/transport/httpapi"
)

func New(ctx context.Context, cfg *config.Config) (*httpapi.Server, error) {
	// Брокер с живыми биржами из конфигурации
	br, err := app.BuildBroker(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Адаптер между httpapi и broker.Broker
	return httpapi.New(cfg.HTTPAddr, &httpapi.BrokerAdapter{Broker: br}, cfg.AllowExecution), nil
}
