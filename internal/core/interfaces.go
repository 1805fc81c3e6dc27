// Package core defines the interfaces shared by the story-studio components and
// the error taxonomy they report.
package core

import "context"

// CompletionRequest is one chat-completion call: a system prompt, a user prompt,
// and optional sampling settings. Zero values leave the provider defaults.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Completer wraps the chat-completion backend.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Synthesizer wraps the speech-synthesis backend. It returns the URL of the
// generated audio asset.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, language string) (string, error)
}

// ImageRequest is one image-generation call.
type ImageRequest struct {
	Prompt string
	Model  string
	// Seed is nil when the caller did not choose one. Zero is a valid seed.
	Seed *int
}

// ImageGenerator wraps the image-generation backend. It returns the URL of the
// generated image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// Fetcher downloads the bytes behind a remote asset URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Artifact describes a finished batch output handed to an ArtifactSink.
type Artifact struct {
	Key       string
	Path      string
	Succeeded int
	Total     int
}

// ArtifactSink receives merged artifacts after a successful batch.
type ArtifactSink interface {
	Archive(ctx context.Context, artifact Artifact) error
}
