package proxy

import (
	"encoding/json"
	"errors"
)

// ChatCompletionRequest is the inbound OpenAI chat-completions body.
type ChatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	N        int       `json:"n"`
}

// ImageGenerationRequest is the inbound OpenAI images-generations body.
// It is normalized into the chat-completions shape and handled by the
// same code path.
type ImageGenerationRequest struct {
	Prompt   string `json:"prompt"`
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	ImageURL string `json:"image_url"`
	N        int    `json:"n"`
}

// Message is one conversation turn.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent is either a plain string or an array of typed parts.
type MessageContent struct {
	Text  *string
	Parts []ContentPart
}

// ContentPart is one element of a multi-part message content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     *string   `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference inside a content part.
type ImageURL struct {
	URL string `json:"url"`
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		c.Text = &str
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err == nil {
		c.Parts = parts
		return nil
	}

	return errors.New("invalid content type: expected string or content part array")
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if len(c.Parts) > 0 {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// ChatCompletionChunk mirrors the OpenAI streaming chunk shape.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice is one choice of a streaming chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental payload of a chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChatCompletion is the aggregated non-streaming response document.
type ChatCompletion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   Usage              `json:"usage"`
}

// CompletionChoice is one choice of an aggregated response.
type CompletionChoice struct {
	Index        int               `json:"index"`
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// CompletionMessage is the assistant message of an aggregated response.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is a rough token estimate, as the upstream reports none.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
