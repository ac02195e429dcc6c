package proxy

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fal-relay/internal/response"
)

// HandleListModels handles GET /v1/models with the static registry
// rendered as an OpenAI model list.
func (ps *ProxyServer) HandleListModels(c *gin.Context) {
	response.JSON(c, http.StatusOK, ps.registry.List())
}
