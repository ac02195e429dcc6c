package proxy

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app_errors "fal-relay/internal/errors"
	"fal-relay/internal/response"
	"fal-relay/internal/utils"
)

// authMiddleware validates the inbound Authorization header against the
// configured shared secret. Accepted forms: `Bearer <token>`,
// `Key <token>`, or the bare token.
func (ps *ProxyServer) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := header
		switch {
		case strings.HasPrefix(header, "Bearer "):
			token = strings.TrimPrefix(header, "Bearer ")
		case strings.HasPrefix(header, "Key "):
			token = strings.TrimPrefix(header, "Key ")
		}

		if ps.cfg.AccessKey == "" {
			logrus.Error("ACCESS_KEY is not configured; rejecting request")
			response.Error(c, app_errors.NewAPIError(app_errors.ErrAuthentication, "Server authorization misconfiguration."))
			c.Abort()
			return
		}
		if token != ps.cfg.AccessKey {
			logrus.WithField("key", utils.MaskAPIKey(token)).Warn("Invalid inbound API key")
			response.Error(c, app_errors.NewAPIError(app_errors.ErrAuthentication, "Invalid API key."))
			c.Abort()
			return
		}

		c.Next()
	}
}
