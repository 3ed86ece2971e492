package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cryptobroker/internal/app"
	"cryptobroker/internal/config"
	"cryptobroker/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}
	app.SetupLogging(cfg)

	// Ctrl+C прерывает и загрузку справочников, и сам сценарий
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	br, err := app.BuildBroker(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Ошибка подключения к биржам: %v\n", err)
		os.Exit(1)
	}

	if err := usecase.Run(ctx, br, cfg.AllowExecution); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Ошибка выполнения: %v\n", err)
		os.Exit(1)
	}
}
