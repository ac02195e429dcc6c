// Package response provides helpers for the client-facing JSON envelopes.
package response

import (
	"github.com/gin-gonic/gin"

	app_errors "fal-relay/internal/errors"
)

// errorBody mirrors the OpenAI error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Error renders an APIError as a JSON envelope with its HTTP status.
func Error(c *gin.Context, apiErr *app_errors.APIError) {
	c.JSON(apiErr.HTTPStatus, errorBody{
		Error: errorDetail{
			Message: apiErr.Message,
			Type:    string(apiErr.Type),
		},
	})
}

// JSON renders payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}
