// Package bridge drives the submit → poll → resolve lifecycle of one
// asynchronous generation job and multiplexes the outcome into an event
// sequence for the response emitters.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	app_errors "fal-relay/internal/errors"
	"fal-relay/internal/registry"
	"fal-relay/internal/upstream"
	"fal-relay/internal/utils"
)

// Bridge submits generation jobs and polls them to completion.
type Bridge struct {
	client *upstream.Client
	policy PolicyFunc
}

// NewBridge creates a Bridge. A nil policy gets DefaultPolicy.
func NewBridge(client *upstream.Client, policy PolicyFunc) *Bridge {
	if policy == nil {
		policy = DefaultPolicy
	}
	return &Bridge{client: client, policy: policy}
}

// Job tracks one submitted upstream job for the duration of a request.
// It is never persisted; once submitted, the upstream job cannot be
// cancelled even if the local poll loop gives up (the queue API exposes
// no cancel endpoint).
type Job struct {
	ID         string
	Model      string
	Config     registry.ModelConfig
	Credential string

	req    GenerationRequest
	policy PollPolicy
	polled atomic.Bool
}

// Submit validates the request, builds the upstream payload, and posts
// it. The returned error is always an *APIError.
func (b *Bridge) Submit(ctx context.Context, req GenerationRequest, credential string) (*Job, error) {
	if (req.Config.Video || req.Config.ImageToImage) && len(req.ReferenceImages) == 0 {
		if req.Config.Video {
			return nil, app_errors.NewAPIError(app_errors.ErrInvalidRequest,
				"Video generation with this model requires an image. Please upload an image.")
		}
		return nil, app_errors.NewAPIError(app_errors.ErrInvalidRequest,
			"This model requires an image for editing/generation. None found in current message or history.")
	}

	payload := buildPayload(req)

	result, err := b.client.Submit(ctx, req.Config.SubmitURL, credential, payload)
	if err != nil {
		return nil, app_errors.NewAPIError(app_errors.ErrUpstream,
			fmt.Sprintf("fal API submission failed: %v", err))
	}

	switch {
	case result.StatusCode == http.StatusOK || result.StatusCode == http.StatusAccepted:
		if result.RequestID == "" {
			logrus.WithField("model", req.Model).Error("No request_id in fal submission response")
			return nil, app_errors.NewAPIError(app_errors.ErrUpstreamProtocol,
				"Missing request_id from fal API after submission.")
		}
	case result.StatusCode == http.StatusRequestEntityTooLarge:
		return nil, app_errors.NewAPIError(app_errors.ErrPayloadTooLarge,
			"The submitted request exceeds the upstream size limit. Use a smaller reference image or shorter prompt.")
	default:
		message := app_errors.ParseUpstreamError(result.Body)
		logrus.WithFields(logrus.Fields{
			"model":  req.Model,
			"status": result.StatusCode,
			"body":   utils.TruncateString(string(result.Body), 500),
		}).Error("fal API submission error")
		return nil, app_errors.NewUpstreamError(result.StatusCode,
			fmt.Sprintf("fal API submission error (status %d): %s", result.StatusCode, message))
	}

	logrus.WithFields(logrus.Fields{
		"model":      req.Model,
		"request_id": result.RequestID,
	}).Info("Submitted generation job")

	return &Job{
		ID:         result.RequestID,
		Model:      req.Model,
		Config:     req.Config,
		Credential: credential,
		req:        req,
		policy:     b.policy(req.Config.Video),
	}, nil
}

// Poll drives the job to a terminal state and returns its event
// sequence. The channel is closed after the terminal event. A job can
// be polled at most once. Cancelling ctx stops polling promptly; no
// further upstream calls are made after cancellation is observed.
func (b *Bridge) Poll(ctx context.Context, job *Job) <-chan Event {
	events := make(chan Event)

	if job.polled.Swap(true) {
		logrus.WithField("request_id", job.ID).Warn("Job polled twice, ignoring")
		close(events)
		return events
	}

	go func() {
		defer close(events)
		b.runPollLoop(ctx, job, events)
	}()

	return events
}

func (b *Bridge) runPollLoop(ctx context.Context, job *Job, events chan<- Event) {
	if !emit(ctx, events, Event{Kind: EventRoleAnnounce}) {
		return
	}

	statusURL := job.Config.StatusURL(job.ID)
	resultURL := job.Config.ResultURL(job.ID)
	video := job.Config.Video

	var lastProgress *float64

	for attempt := 0; attempt < job.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		if attempt > 0 && attempt%job.policy.ProgressStep == 0 {
			text := progressText(video, lastProgress, attempt/job.policy.ProgressStep)
			if !emit(ctx, events, Event{Kind: EventProgress, Text: text}) {
				return
			}
		}

		status, err := b.client.Status(ctx, statusURL, job.Credential)
		if err != nil {
			// Only consumer cancellation stops the loop silently; an
			// upstream transport error is a terminal failure like any
			// other bad status fetch.
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).WithField("request_id", job.ID).Error("Polling failed")
			emit(ctx, events, Event{
				Kind:    EventFailure,
				Text:    fmt.Sprintf("Generation failed: status check error: %v", err),
				ErrType: app_errors.ErrGenerationFailed,
			})
			return
		}

		if status.StatusCode != http.StatusOK && status.StatusCode != http.StatusAccepted {
			logrus.WithFields(logrus.Fields{
				"request_id": job.ID,
				"status":     status.StatusCode,
			}).Error("fal status check returned unexpected status")
			emit(ctx, events, Event{
				Kind:    EventFailure,
				Text:    fmt.Sprintf("Generation failed: fal status check returned %d", status.StatusCode),
				ErrType: app_errors.ErrGenerationFailed,
			})
			return
		}

		if failed, message := terminalFailure(status); failed {
			emit(ctx, events, Event{Kind: EventFailure, Text: message, ErrType: app_errors.ErrGenerationFailed})
			return
		}

		if status.Status == "COMPLETED" {
			b.resolveResult(ctx, job, resultURL, events)
			return
		}

		lastProgress = status.Progress

		select {
		case <-ctx.Done():
			return
		case <-time.After(job.policy.Interval):
		}
	}

	text := "图像生成超时，请稍后再试或调整参数。"
	if video {
		text = "视频生成超时，请稍后再试或调整参数。"
	}
	emit(ctx, events, Event{Kind: EventTimeout, Text: text})
}

func (b *Bridge) resolveResult(ctx context.Context, job *Job, resultURL string, events chan<- Event) {
	result, err := b.client.Result(ctx, resultURL, job.Credential)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		emit(ctx, events, Event{
			Kind:    EventFailure,
			Text:    fmt.Sprintf("Generation failed: result fetch error: %v", err),
			ErrType: app_errors.ErrGenerationFailed,
		})
		return
	}
	if result.StatusCode != http.StatusOK {
		emit(ctx, events, Event{
			Kind:    EventFailure,
			Text:    fmt.Sprintf("Generation failed: fal result fetch returned %d", result.StatusCode),
			ErrType: app_errors.ErrGenerationFailed,
		})
		return
	}

	artifacts := collectArtifacts(job.Config.Video, result)
	if len(artifacts) == 0 {
		emit(ctx, events, Event{
			Kind:    EventFailure,
			Text:    "生成任务已完成，但未能从fal API获取有效的输出URL。",
			ErrType: app_errors.ErrUpstreamProtocol,
		})
		return
	}

	emit(ctx, events, Event{Kind: EventSuccess, Artifacts: artifacts})
}

// emit delivers an event unless the consumer is gone.
func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// terminalFailure checks a status body for an explicit FAILED state or
// an error-level log entry. The failure message is resolved in priority
// order: first error log, structured error field, generic fallback.
func terminalFailure(status *upstream.StatusResult) (bool, string) {
	var errorLog string
	for _, entry := range status.Logs {
		if strings.EqualFold(entry.Level, "ERROR") {
			errorLog = entry.Message
			break
		}
	}
	if status.Status != "FAILED" && errorLog == "" {
		return false, ""
	}

	switch {
	case errorLog != "":
		return true, errorLog
	case status.Error != nil && status.Error.Message != "":
		return true, status.Error.Message
	default:
		return true, "Generation failed at fal API."
	}
}

// collectArtifacts extracts output URLs by model kind: `video.url` for
// video models; `images[].url` first, `image.url` fallback for image
// models.
func collectArtifacts(video bool, result *upstream.ResultPayload) []Artifact {
	var artifacts []Artifact
	if video {
		if result.Video != nil && result.Video.URL != "" {
			artifacts = append(artifacts, Artifact{URL: result.Video.URL, Kind: ArtifactVideo})
		}
		return artifacts
	}
	if len(result.Images) > 0 {
		for _, img := range result.Images {
			if img.URL != "" {
				artifacts = append(artifacts, Artifact{URL: img.URL, Kind: ArtifactImage})
			}
		}
		return artifacts
	}
	if result.Image != nil && result.Image.URL != "" {
		artifacts = append(artifacts, Artifact{URL: result.Image.URL, Kind: ArtifactImage})
	}
	return artifacts
}

func progressText(video bool, progress *float64, tick int) string {
	if progress != nil && *progress >= 0 && *progress <= 1 {
		return fmt.Sprintf("生成进度: %d%%", int(*progress*100))
	}
	base := "图像仍在努力生成中"
	if video {
		base = "视频仍在努力处理中"
	}
	return base + strings.Repeat(".", tick%3+1)
}

// buildPayload assembles the upstream submission body. Video jobs carry
// the extracted video parameters and a single reference image; image
// jobs carry the output count and single or multiple reference images
// per model capability.
func buildPayload(req GenerationRequest) map[string]any {
	payload := map[string]any{"prompt": req.Prompt}

	if req.Config.Video {
		payload["image_url"] = req.ReferenceImages[0]
		payload["duration"] = req.Video.Duration
		payload["aspect_ratio"] = req.Video.AspectRatio
		payload["negative_prompt"] = req.Video.NegativePrompt
		payload["cfg_scale"] = req.Video.CFGScale
		return payload
	}

	count := req.OutputCount
	if count < 1 {
		count = 1
	}
	payload["num_images"] = count

	if req.Config.ImageToImage && len(req.ReferenceImages) > 0 {
		if req.Config.MultiImageInput {
			payload["image_urls"] = req.ReferenceImages
		} else {
			payload["image_url"] = req.ReferenceImages[0]
		}
	}
	return payload
}
