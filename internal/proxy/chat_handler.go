package proxy

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fal-relay/internal/bridge"
	app_errors "fal-relay/internal/errors"
	"fal-relay/internal/params"
	"fal-relay/internal/response"
)

// HandleChatCompletions handles POST /v1/chat/completions.
func (ps *ProxyServer) HandleChatCompletions(c *gin.Context) {
	var req ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidRequest, "Invalid JSON in request body."))
		return
	}
	ps.handleGeneration(c, &req)
}

// handleGeneration is the shared generation path for both inbound
// endpoints; the images route normalizes into the chat shape and calls
// this directly instead of re-dispatching over HTTP.
func (ps *ProxyServer) handleGeneration(c *gin.Context, req *ChatCompletionRequest) {
	modelID, modelCfg, ok := ps.registry.Lookup(req.Model)
	if !ok {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidRequest,
			"Model configuration for \""+req.Model+"\" not found."))
		return
	}

	prompt, images := extractUserInput(req.Messages, modelCfg.MultiImageInput)

	if (modelCfg.ImageToImage || modelCfg.Video) && len(images) == 0 {
		if url, found := recoverHistoryImage(req.Messages); found {
			logrus.WithField("model", modelID).Debug("Reusing reference image from assistant history")
			images = []string{url}
		}
	}

	genReq := bridge.GenerationRequest{
		Model:           modelID,
		Config:          modelCfg,
		Prompt:          prompt,
		ReferenceImages: images,
		OutputCount:     req.N,
	}

	if modelCfg.Video {
		videoParams, cleaned := params.ExtractVideoParams(prompt)
		if len(images) == 0 {
			response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidRequest,
				"Video generation with this model requires an image. Please upload an image."))
			return
		}
		if cleaned == "" {
			response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidRequest,
				"Video generation requires a descriptive prompt for the video content, even when using parameters. The descriptive part of your prompt is empty."))
			return
		}
		genReq.Prompt = cleaned
		genReq.Video = videoParams
	}

	if genReq.Prompt == "" && !modelCfg.Video && !modelCfg.ImageToImage {
		ps.emitStaticMessage(c, modelID, req.Stream, "Please describe the image you want to generate.")
		return
	}

	credential, err := ps.keys.SelectKey()
	if err != nil {
		ps.emitError(c, modelID, req.Stream, app_errors.AsAPIError(err))
		return
	}

	job, err := ps.bridge.Submit(c.Request.Context(), genReq, credential)
	if err != nil {
		apiErr := app_errors.AsAPIError(err)
		if apiErr.Type == app_errors.ErrUpstream || apiErr.Type == app_errors.ErrUpstreamProtocol {
			ps.keys.ReportResult(credential, false, apiErr.Message)
		}
		ps.emitError(c, modelID, req.Stream, apiErr)
		return
	}
	ps.keys.ReportResult(credential, true, "")

	// The emitter cancels this context when the client disconnects so
	// the poll loop stops consuming upstream quota.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events := ps.bridge.Poll(ctx, job)

	if req.Stream {
		ps.streamEvents(c, cancel, job, genReq.Prompt, events)
	} else {
		ps.aggregateEvents(c, job, genReq.Prompt, events)
	}
}
