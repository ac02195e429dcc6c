// Package proxy exposes the OpenAI-compatible HTTP surface and renders
// the job bridge's event sequences to clients.
package proxy

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fal-relay/internal/bridge"
	"fal-relay/internal/config"
	app_errors "fal-relay/internal/errors"
	"fal-relay/internal/keypool"
	"fal-relay/internal/registry"
	"fal-relay/internal/response"
)

// ProxyServer handles the inbound OpenAI-compatible API.
type ProxyServer struct {
	cfg      *config.Config
	registry *registry.Registry
	keys     *keypool.KeyProvider
	bridge   *bridge.Bridge
}

// NewProxyServer creates the HTTP handler set.
func NewProxyServer(cfg *config.Config, reg *registry.Registry, keys *keypool.KeyProvider, b *bridge.Bridge) *ProxyServer {
	return &ProxyServer{cfg: cfg, registry: reg, keys: keys, bridge: b}
}

// NewRouter builds the gin engine with middleware and all routes.
func (ps *ProxyServer) NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/v1/chat/completions", "/v1/images/generations"})))
	router.Use(requestLogger())

	ps.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches the API routes to the engine.
func (ps *ProxyServer) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/v1")
	auth := ps.authMiddleware()
	v1.POST("/chat/completions", auth, ps.HandleChatCompletions)
	v1.POST("/images/generations", auth, ps.HandleImageGenerations)
	v1.GET("/models", ps.HandleListModels)

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrNotFound, "Not Found"))
	})
}

// requestLogger logs one line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Milliseconds(),
			"ip":       c.ClientIP(),
		})
		if c.Writer.Status() >= 500 {
			entry.Error("Request completed")
		} else {
			entry.Info("Request completed")
		}
	}
}
