// Package imagegen generates illustrations through hosted text-to-image models.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/replicate"
)

// DefaultSeed is the seed used when a request does not choose one.
const DefaultSeed = 1234

const (
	reasonNoURL         = "no valid image URL in API response"
	reasonInvalidURL    = "invalid image URL format"
	reasonBadStatus     = "prediction ended with status %s: %s"
	logFmtGenerate      = "Generating image: model=%s seed=%d steps=%d guidance=%.1f prompt=%d chars"
	logFmtNeedsImage    = "Model %s expects an input image; invoking without one"
	logFmtGeneratedURL  = "Image generated with %s: %s"
	logFmtGenerateError = "Image generation with %s failed: %v"
)

// ModelConfig is the fixed invocation profile of one image model.
type ModelConfig struct {
	ID                 string
	Steps              int
	Guidance           float64
	RequiresInputImage bool
}

var models = []ModelConfig{
	{ID: "black-forest-labs/flux-schnell", Steps: 4, Guidance: 7.5},
	{ID: "black-forest-labs/flux-dev", Steps: 28, Guidance: 3.5},
	{ID: "black-forest-labs/flux-kontext-pro", Steps: 28, Guidance: 2.5, RequiresInputImage: true},
}

// Models returns the supported model table.
func Models() []ModelConfig {
	out := make([]ModelConfig, len(models))
	copy(out, models)

	return out
}

// LookupModel accepts a full "owner/name" id or just the name.
func LookupModel(id string) (ModelConfig, bool) {
	for _, model := range models {
		if model.ID == id || strings.TrimPrefix(model.ID, "black-forest-labs/") == id {
			return model, true
		}
	}

	return ModelConfig{}, false
}

// Predictor runs one prediction to a terminal state.
type Predictor interface {
	Predict(ctx context.Context, model string, input map[string]any) (*replicate.Prediction, error)
}

// Generator implements core.ImageGenerator.
type Generator struct {
	predictor    Predictor
	defaultModel string
	log          *logger.Logger
}

// NewGenerator creates a Generator. defaultModel is used for requests that name no model.
func NewGenerator(predictor Predictor, defaultModel string, log *logger.Logger) *Generator {
	return &Generator{predictor: predictor, defaultModel: defaultModel, log: log}
}

// DefaultModel returns the model used when a request names none.
func (g *Generator) DefaultModel() string {
	return g.defaultModel
}

// GenerateImage runs the requested model and returns the image URL.
func (g *Generator) GenerateImage(ctx context.Context, req core.ImageRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", core.NewValidationError("prompt", "Prompt is required")
	}

	modelID := req.Model
	if modelID == "" {
		modelID = g.defaultModel
	}

	model, ok := LookupModel(modelID)
	if !ok {
		return "", core.NewValidationError("model", fmt.Sprintf("unsupported image model %q", modelID))
	}

	seed := DefaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	if model.RequiresInputImage {
		g.log.Warn(logFmtNeedsImage, model.ID)
	}

	g.log.Info(logFmtGenerate, model.ID, seed, model.Steps, model.Guidance, len(req.Prompt))

	prediction, err := g.predictor.Predict(ctx, model.ID, BuildInput(model, req.Prompt, seed))
	if err != nil {
		g.log.Error(logFmtGenerateError, model.ID, err)

		return "", fmt.Errorf("image prediction: %w", err)
	}

	if prediction.Status != replicate.StatusSucceeded {
		return "", &core.ImageGenerationError{
			Model:  model.ID,
			Reason: fmt.Sprintf(reasonBadStatus, prediction.Status, prediction.ErrorMessage()),
		}
	}

	url, err := replicate.ExtractURL(prediction.Output)
	if err != nil {
		reason := reasonNoURL
		if errors.Is(err, replicate.ErrInvalidOutputURL) {
			reason = reasonInvalidURL
		}

		g.log.Error(logFmtGenerateError, model.ID, err)

		return "", &core.ImageGenerationError{Model: model.ID, Reason: reason, Err: err}
	}

	g.log.Info(logFmtGeneratedURL, model.ID, url)

	return url, nil
}

// BuildInput assembles the model input for one image call.
func BuildInput(model ModelConfig, prompt string, seed int) map[string]any {
	return map[string]any{
		"prompt":              prompt,
		"seed":                seed,
		"num_inference_steps": model.Steps,
		"guidance_scale":      model.Guidance,
	}
}
