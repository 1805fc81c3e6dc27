// Package speech synthesizes narration through a hosted text-to-speech model
// and publishes the fixed voice catalog the client chooses from.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/replicate"
)

// LanguageChinese selects Chinese language boosting; any other hint means English.
const LanguageChinese = "chinese"

// Fixed acoustic parameters.
const (
	paramSpeed      = 1
	paramVolume     = 1
	paramPitch      = 0
	paramSampleRate = 32000
	paramBitrate    = 128000
	paramChannel    = "mono"
	boostChinese    = "Chinese"
	boostEnglish    = "English"
)

const (
	logFmtSynthesize = "Synthesizing speech: model=%s voice=%s language=%s text=%d chars"
	logFmtFailed     = "Speech prediction %s ended with status %s: %s"
)

// ErrTextEmpty is returned for blank input.
var ErrTextEmpty = errors.New("text to synthesize cannot be empty")

// Predictor runs one prediction to a terminal state.
type Predictor interface {
	Predict(ctx context.Context, model string, input map[string]any) (*replicate.Prediction, error)
}

// Synthesizer implements core.Synthesizer on a hosted speech model.
type Synthesizer struct {
	predictor Predictor
	model     string
	log       *logger.Logger
}

// NewSynthesizer creates a Synthesizer for an "owner/name" model.
func NewSynthesizer(predictor Predictor, model string, log *logger.Logger) *Synthesizer {
	return &Synthesizer{predictor: predictor, model: model, log: log}
}

// Synthesize renders text with the given voice and returns the audio URL.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID, language string) (string, error) {
	text = NormalizeText(text)
	if text == "" {
		return "", ErrTextEmpty
	}

	voiceID = ResolveVoice(voiceID)

	s.log.Info(logFmtSynthesize, s.model, voiceID, language, len(text))

	prediction, err := s.predictor.Predict(ctx, s.model, BuildInput(text, voiceID, language))
	if err != nil {
		if errors.Is(err, replicate.ErrWaitTimeout) {
			id := ""
			if prediction != nil {
				id = prediction.ID
			}

			return "", &core.SynthesisError{PredictionID: id, Status: "timeout", ProviderError: err.Error()}
		}

		return "", fmt.Errorf("speech prediction: %w", err)
	}

	if prediction.Status != replicate.StatusSucceeded {
		s.log.Error(logFmtFailed, prediction.ID, prediction.Status, prediction.ErrorMessage())

		return "", &core.SynthesisError{
			PredictionID:  prediction.ID,
			Status:        prediction.Status,
			ProviderError: prediction.ErrorMessage(),
		}
	}

	url, err := replicate.ExtractURL(prediction.Output)
	if err != nil {
		return "", &core.UpstreamError{Service: "replicate", Message: err.Error()}
	}

	return url, nil
}

// BuildInput assembles the model input for one synthesis call.
func BuildInput(text, voiceID, language string) map[string]any {
	input := map[string]any{
		"text":        text,
		"voice_id":    voiceID,
		"speed":       paramSpeed,
		"volume":      paramVolume,
		"pitch":       paramPitch,
		"sample_rate": paramSampleRate,
		"bitrate":     paramBitrate,
		"channel":     paramChannel,
	}

	if strings.EqualFold(strings.TrimSpace(language), LanguageChinese) {
		input["language_boost"] = boostChinese
		input["english_normalization"] = false
	} else {
		input["language_boost"] = boostEnglish
		input["english_normalization"] = true
	}

	return input
}
