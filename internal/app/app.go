// Package app owns the process lifecycle: HTTP server startup and
// graceful shutdown of all services.
package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"fal-relay/internal/config"
	"fal-relay/internal/keypool"
	"fal-relay/internal/proxy"
)

// App wires the HTTP server to the proxy handlers and background
// services.
type App struct {
	cfg    *config.Config
	proxy  *proxy.ProxyServer
	usage  *keypool.WorkerPool
	server *http.Server
}

// NewApp creates the application.
func NewApp(cfg *config.Config, ps *proxy.ProxyServer, usage *keypool.WorkerPool) *App {
	return &App{cfg: cfg, proxy: ps, usage: usage}
}

// Start launches background services and the HTTP listener. It does not
// block; listener errors are reported on the returned channel.
func (a *App) Start() <-chan error {
	a.usage.Start()

	a.server = &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      a.proxy.NewRouter(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Server listening on %s", a.cfg.Addr())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Stop shuts the server down gracefully and drains background work.
func (a *App) Stop(ctx context.Context) error {
	logrus.Info("Shutting down server")

	var err error
	if a.server != nil {
		err = a.server.Shutdown(ctx)
	}
	a.usage.Stop()

	if err != nil {
		return err
	}
	logrus.Info("Server stopped")
	return nil
}
