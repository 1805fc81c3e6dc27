package core

import (
	"fmt"
	"strings"
)

// Format error reasons reported by script structuring.
const (
	ReasonInvalidScriptFormat    = "invalid script format"
	ReasonInvalidScriptStructure = "invalid script structure"
)

// UpstreamError reports a remote API that rejected a call or answered with an
// unexpected shape.
type UpstreamError struct {
	Service    string `json:"service"`
	StatusCode int    `json:"status,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Service, e.Message)
	}

	if e.Code == "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s returned status %d: %s (code: %s)", e.Service, e.StatusCode, e.Message, e.Code)
}

// FormatError reports model output that did not parse into the expected structure.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	return e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// MergeError reports a failed run of the external merge tool.
type MergeError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *MergeError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > 500 {
		stderr = stderr[len(stderr)-500:]
	}

	return fmt.Sprintf("audio merge failed (cmd=%s exit=%d): %s", e.Command, e.ExitCode, stderr)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// ValidationError reports a malformed client request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError for one request field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// SynthesisError reports a speech job that reached a terminal state other than success.
type SynthesisError struct {
	PredictionID  string
	Status        string
	ProviderError string
}

func (e *SynthesisError) Error() string {
	if e.ProviderError == "" {
		return fmt.Sprintf("speech synthesis %s ended with status %s", e.PredictionID, e.Status)
	}

	return fmt.Sprintf("speech synthesis %s ended with status %s: %s", e.PredictionID, e.Status, e.ProviderError)
}

// ImageGenerationError reports an image call whose output held no usable URL.
type ImageGenerationError struct {
	Model  string
	Reason string
	Err    error
}

func (e *ImageGenerationError) Error() string {
	return fmt.Sprintf("image generation with %s failed: %s", e.Model, e.Reason)
}

func (e *ImageGenerationError) Unwrap() error {
	return e.Err
}
