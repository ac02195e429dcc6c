package proxy

import (
	"github.com/gin-gonic/gin"

	app_errors "fal-relay/internal/errors"
	"fal-relay/internal/response"
)

// HandleImageGenerations handles POST /v1/images/generations by
// normalizing the body into the chat-completions shape.
func (ps *ProxyServer) HandleImageGenerations(c *gin.Context) {
	var req ImageGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidRequest, "Invalid JSON in request body for image generation"))
		return
	}

	var parts []ContentPart
	if req.Prompt != "" {
		prompt := req.Prompt
		parts = append(parts, ContentPart{Type: "text", Text: &prompt})
	}
	if req.ImageURL != "" {
		parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: req.ImageURL}})
	}
	if len(parts) == 0 {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidRequest, "Prompt or image_url is required for image generation."))
		return
	}

	chatReq := &ChatCompletionRequest{
		Model:    req.Model,
		Stream:   req.Stream,
		N:        req.N,
		Messages: []Message{{Role: "user", Content: MessageContent{Parts: parts}}},
	}
	ps.handleGeneration(c, chatReq)
}
