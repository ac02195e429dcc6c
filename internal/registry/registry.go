// Package registry holds the static model table mapping model ids to
// upstream queue endpoints and capability flags.
package registry

import (
	"fmt"
	"sort"
	"time"
)

// DefaultModel is used when the requested model id is unknown.
const DefaultModel = "dall-e-3"

// ModelConfig describes one upstream model: where to submit jobs, where
// to poll them, and what inputs it accepts.
type ModelConfig struct {
	SubmitURL       string
	QueueBaseURL    string
	ImageToImage    bool
	MultiImageInput bool
	Video           bool
}

// Registry is a read-only lookup table of supported models.
type Registry struct {
	models  map[string]ModelConfig
	created int64
}

// NewRegistry creates a registry with the default model table.
func NewRegistry() *Registry {
	return NewRegistryWithModels(defaultModels())
}

// NewRegistryWithModels creates a registry over an explicit table.
func NewRegistryWithModels(models map[string]ModelConfig) *Registry {
	return &Registry{models: models, created: time.Now().Unix()}
}

// Lookup resolves a model id, falling back to DefaultModel for unknown
// ids. The returned id is the one actually resolved.
func (r *Registry) Lookup(model string) (string, ModelConfig, bool) {
	if cfg, ok := r.models[model]; ok {
		return model, cfg, true
	}
	if cfg, ok := r.models[DefaultModel]; ok {
		return DefaultModel, cfg, true
	}
	return "", ModelConfig{}, false
}

// Models returns the supported model ids in deterministic order.
func (r *Registry) Models() []string {
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StatusURL builds the queue status URL for a job id.
func (c ModelConfig) StatusURL(requestID string) string {
	return fmt.Sprintf("%s/requests/%s/status", c.QueueBaseURL, requestID)
}

// ResultURL builds the queue result URL for a job id.
func (c ModelConfig) ResultURL(requestID string) string {
	return fmt.Sprintf("%s/requests/%s", c.QueueBaseURL, requestID)
}

// ModelEntry is one element of the OpenAI-style model list.
type ModelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
	Root    string `json:"root"`
}

// ModelList is the OpenAI-style model list document.
type ModelList struct {
	Object string       `json:"object"`
	Data   []ModelEntry `json:"data"`
}

// List renders the registry as an OpenAI model list.
func (r *Registry) List() ModelList {
	list := ModelList{Object: "list", Data: make([]ModelEntry, 0, len(r.models))}
	for _, id := range r.Models() {
		list.Data = append(list.Data, ModelEntry{
			ID:      id,
			Object:  "model",
			Created: r.created,
			OwnedBy: "fal-relay",
			Root:    id,
		})
	}
	return list
}

func defaultModels() map[string]ModelConfig {
	return map[string]ModelConfig{
		"FLUX-pro": {
			SubmitURL:    "https://queue.fal.run/fal-ai/flux-pro/v1.1-ultra",
			QueueBaseURL: "https://queue.fal.run/fal-ai/flux-pro",
		},
		"recraft-v3": {
			SubmitURL:    "https://queue.fal.run/fal-ai/recraft-v3",
			QueueBaseURL: "https://queue.fal.run/fal-ai/recraft-v3",
		},
		"FLUX-1.1-pro": {
			SubmitURL:    "https://queue.fal.run/fal-ai/flux-pro/v1.1",
			QueueBaseURL: "https://queue.fal.run/fal-ai/flux-pro",
		},
		"ideogram": {
			SubmitURL:    "https://queue.fal.run/fal-ai/ideogram/v2",
			QueueBaseURL: "https://queue.fal.run/fal-ai/ideogram",
		},
		"dall-e-3": {
			SubmitURL:    "https://queue.fal.run/fal-ai/flux/dev",
			QueueBaseURL: "https://queue.fal.run/fal-ai/flux",
		},
		"google-imagen4": {
			SubmitURL:    "https://queue.fal.run/fal-ai/imagen4/preview",
			QueueBaseURL: "https://queue.fal.run/fal-ai/imagen4",
		},
		"flux-kontext-edit": {
			SubmitURL:    "https://queue.fal.run/fal-ai/flux-pro/kontext",
			QueueBaseURL: "https://queue.fal.run/fal-ai/flux-pro",
			ImageToImage: true,
		},
		"flux-kontext-edit-multi": {
			SubmitURL:       "https://queue.fal.run/fal-ai/flux-pro/kontext/multi",
			QueueBaseURL:    "https://queue.fal.run/fal-ai/flux-pro",
			ImageToImage:    true,
			MultiImageInput: true,
		},
		"hidream-i1-full": {
			SubmitURL:    "https://fal.run/fal-ai/hidream-i1-full/stream",
			QueueBaseURL: "https://queue.fal.run/fal-ai/hidream-i1-full",
		},
		"hidream-i1-full-edit": {
			SubmitURL:    "https://queue.fal.run/fal-ai/hidream-i1-full/image-to-image",
			QueueBaseURL: "https://queue.fal.run/fal-ai/hidream-i1-full",
			ImageToImage: true,
		},
		"kling-video-v2.1-master": {
			SubmitURL:    "https://queue.fal.run/fal-ai/kling-video/v2.1/master/image-to-video",
			QueueBaseURL: "https://queue.fal.run/fal-ai/kling-video",
			ImageToImage: true,
			Video:        true,
		},
	}
}
