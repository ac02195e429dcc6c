package bridge

import (
	app_errors "fal-relay/internal/errors"
	"fal-relay/internal/params"
	"fal-relay/internal/registry"
)

// GenerationRequest is the already-parsed input for one generation job.
type GenerationRequest struct {
	Model           string // resolved model id
	Config          registry.ModelConfig
	Prompt          string
	ReferenceImages []string
	OutputCount     int
	Video           params.VideoParams // used only for video models
}

// EventKind tags one output event produced while driving a job.
type EventKind int

const (
	// EventRoleAnnounce opens the event sequence; streaming clients
	// expect an assistant role delta before any content.
	EventRoleAnnounce EventKind = iota
	// EventProgress carries a throttled human-readable progress text.
	EventProgress
	// EventSuccess carries the ordered generated artifacts; terminal.
	EventSuccess
	// EventFailure carries a failure message; terminal.
	EventFailure
	// EventTimeout signals the attempt budget ran out; terminal.
	EventTimeout
)

// ArtifactKind distinguishes generated output types.
type ArtifactKind string

const (
	ArtifactImage ArtifactKind = "image"
	ArtifactVideo ArtifactKind = "video"
)

// Artifact is one generated output URL.
type Artifact struct {
	URL  string
	Kind ArtifactKind
}

// Event is one element of the output sequence a job produces. The
// sequence ends when the event channel closes.
type Event struct {
	Kind      EventKind
	Text      string
	Artifacts []Artifact
	// ErrType classifies failure events so emitters can map them to the
	// right envelope; set only when Kind is EventFailure.
	ErrType app_errors.ErrorType
}
