package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fal-relay/internal/bridge"
	app_errors "fal-relay/internal/errors"
	"fal-relay/internal/registry"
	"fal-relay/internal/response"
)

var finishStop = "stop"

// streamEvents renders the job's event sequence as SSE chunks. Once a
// write is rejected or the client context ends, no further writes are
// attempted, the terminator is skipped, and the bridge context is
// cancelled so polling stops.
func (ps *ProxyServer) streamEvents(c *gin.Context, cancel context.CancelFunc, job *bridge.Job, prompt string, events <-chan bridge.Event) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		logrus.Error("Streaming unsupported by the writer, falling back to aggregate response")
		ps.aggregateEvents(c, job, prompt, events)
		return
	}

	setStreamHeaders(c)

	id := "chatcmpl-" + job.ID
	closed := false

	write := func(delta Delta, finishReason *string) {
		if closed {
			return
		}
		if c.Request.Context().Err() != nil {
			closed = true
			cancel()
			return
		}
		if !writeChunk(c, flusher, id, job.Model, delta, finishReason) {
			closed = true
			cancel()
		}
	}

	for ev := range events {
		switch ev.Kind {
		case bridge.EventRoleAnnounce:
			write(Delta{Role: "assistant"}, nil)
		case bridge.EventProgress:
			write(Delta{Content: ev.Text}, nil)
		case bridge.EventFailure:
			write(Delta{Content: failureText(ev)}, nil)
		case bridge.EventTimeout:
			write(Delta{Content: ev.Text}, nil)
		case bridge.EventSuccess:
			write(Delta{Content: successHeader(job.Config)}, nil)
			for i, artifact := range ev.Artifacts {
				if i > 0 {
					write(Delta{Content: "\n\n"}, nil)
				}
				write(Delta{Content: artifactLine(artifact, i)}, nil)
			}
		}
		if closed {
			// Drain silently; the bridge will observe the cancelled
			// context and close the channel.
			for range events {
			}
			return
		}
	}

	write(Delta{}, &finishStop)
	if !closed {
		c.Writer.Write([]byte("data: [DONE]\n\n"))
		flusher.Flush()
	}
}

// aggregateEvents buffers the event sequence and renders one final
// document: a chat completion on success or timeout, an error envelope
// on failure.
func (ps *ProxyServer) aggregateEvents(c *gin.Context, job *bridge.Job, prompt string, events <-chan bridge.Event) {
	var terminal *bridge.Event
	for ev := range events {
		switch ev.Kind {
		case bridge.EventSuccess, bridge.EventFailure, bridge.EventTimeout:
			captured := ev
			terminal = &captured
		}
	}

	if terminal == nil {
		if c.Request.Context().Err() != nil {
			// Client disconnected before a terminal state was reached.
			return
		}
		logrus.WithField("request_id", job.ID).Error("Event sequence ended without a terminal state")
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInternalServer,
			"Generation ended without a result."))
		return
	}

	switch terminal.Kind {
	case bridge.EventFailure:
		response.Error(c, app_errors.NewAPIError(terminal.ErrType, terminal.Text))
	case bridge.EventTimeout:
		content := "无法生成图像或超时，请重试。"
		if job.Config.Video {
			content = "无法生成视频或超时，请重试。"
		}
		ps.writeCompletion(c, "chatcmpl-"+job.ID, job.Model, prompt, content, 20)
	case bridge.EventSuccess:
		var b strings.Builder
		b.WriteString(successHeader(job.Config))
		for i, artifact := range terminal.Artifacts {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(artifactLine(artifact, i))
		}
		content := b.String()
		ps.writeCompletion(c, "chatcmpl-"+job.ID, job.Model, prompt, content, len(content)/4)
	}
}

// emitError renders a submission-stage error: an envelope when not
// streaming, a complete terminated SSE stream when streaming.
func (ps *ProxyServer) emitError(c *gin.Context, model string, stream bool, apiErr *app_errors.APIError) {
	if !stream {
		response.Error(c, apiErr)
		return
	}
	ps.streamStaticMessage(c, model, apiErr.Message)
}

// emitStaticMessage renders a canned assistant message in the requested
// mode, used when there is nothing to submit.
func (ps *ProxyServer) emitStaticMessage(c *gin.Context, model string, stream bool, message string) {
	if stream {
		ps.streamStaticMessage(c, model, message)
		return
	}
	ps.writeCompletion(c, "chatcmpl-"+uuid.NewString(), model, "", message, len(message)/4)
}

// streamStaticMessage emits a full, well-terminated SSE stream carrying
// a single content message.
func (ps *ProxyServer) streamStaticMessage(c *gin.Context, model string, message string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		ps.writeCompletion(c, "chatcmpl-"+uuid.NewString(), model, "", message, len(message)/4)
		return
	}

	setStreamHeaders(c)

	id := "chatcmpl-" + uuid.NewString()
	writeChunk(c, flusher, id, model, Delta{Role: "assistant"}, nil)
	writeChunk(c, flusher, id, model, Delta{Content: message}, nil)
	writeChunk(c, flusher, id, model, Delta{}, &finishStop)
	c.Writer.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

func (ps *ProxyServer) writeCompletion(c *gin.Context, id, model, prompt, content string, completionTokens int) {
	promptTokens := len(prompt) / 4
	response.JSON(c, http.StatusOK, ChatCompletion{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []CompletionChoice{{
			Index:        0,
			Message:      CompletionMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}

func writeChunk(c *gin.Context, flusher http.Flusher, id, model string, delta Delta, finishReason *string) bool {
	chunk := ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []ChunkChoice{{Index: 0, Delta: delta, FinishReason: finishReason}},
	}
	data, err := json.Marshal(chunk)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal stream chunk")
		return false
	}
	if _, err := c.Writer.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
		if !app_errors.IsIgnorableError(err) {
			logrus.WithError(err).Debug("Stream write failed")
		}
		return false
	}
	flusher.Flush()
	return true
}

func setStreamHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

func failureText(ev bridge.Event) string {
	if ev.ErrType == app_errors.ErrGenerationFailed {
		return "生成失败: " + ev.Text
	}
	return ev.Text
}

func successHeader(cfg registry.ModelConfig) string {
	switch {
	case cfg.Video:
		return "视频生成成功!\n\n"
	case cfg.ImageToImage:
		return "图像编辑成功!\n\n"
	default:
		return "图像生成成功!\n\n"
	}
}

func artifactLine(a bridge.Artifact, index int) string {
	if a.Kind == bridge.ArtifactVideo {
		return "视频链接: " + a.URL
	}
	return fmt.Sprintf("![Generated %d](%s)", index+1, a.URL)
}
