package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"fal-relay/internal/app"
	"fal-relay/internal/config"
	"fal-relay/internal/container"
)

func main() {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("Loaded configuration from .env file")
	}

	c, err := container.BuildContainer()
	if err != nil {
		logrus.Fatalf("Failed to build container: %v", err)
	}

	err = c.Invoke(func(cfg *config.Config, application *app.App) {
		setupLogger(cfg)

		errCh := application.Start()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil {
				logrus.Errorf("Server error: %v", err)
			}
		case sig := <-quit:
			logrus.Infof("Received signal: %v", sig)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Stop(ctx); err != nil {
			logrus.Errorf("Shutdown error: %v", err)
		}
	})
	if err != nil {
		logrus.Fatalf("Failed to start application: %v", err)
	}
}

func setupLogger(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
