package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"cryptobroker/internal/app"
	"cryptobroker/internal/app/webserver"
	"cryptobroker/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("конфигурация: %v", err)
	}
	app.SetupLogging(cfg)

	srv, err := webserver.New(context.Background(), cfg)
	if err != nil {
		logrus.Fatalf("подключение к биржам: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			logrus.Errorf("http server stopped: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logrus.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("shutdown error: %v", err)
	} else {
		logrus.Info("server stopped gracefully")
	}
}
