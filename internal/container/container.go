// Package container assembles the dependency graph.
package container

import (
	"go.uber.org/dig"

	"fal-relay/internal/app"
	"fal-relay/internal/bridge"
	"fal-relay/internal/config"
	"fal-relay/internal/keypool"
	"fal-relay/internal/proxy"
	"fal-relay/internal/registry"
	"fal-relay/internal/upstream"
)

// BuildContainer registers all constructors.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		config.NewConfig,
		registry.NewRegistry,
		keypool.NewUsageStats,
		newUsagePool,
		newKeyProvider,
		newUpstreamClient,
		newBridge,
		proxy.NewProxyServer,
		app.NewApp,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}
	return container, nil
}

func newUsagePool(stats *keypool.UsageStats) *keypool.WorkerPool {
	return keypool.NewWorkerPool(keypool.DefaultWorkerPoolConfig(), stats, nil)
}

func newKeyProvider(cfg *config.Config, usage *keypool.WorkerPool) *keypool.KeyProvider {
	return keypool.NewKeyProvider(cfg.FalKeys, usage)
}

func newUpstreamClient() *upstream.Client {
	return upstream.NewClient(nil)
}

func newBridge(client *upstream.Client) *bridge.Bridge {
	return bridge.NewBridge(client, nil)
}
