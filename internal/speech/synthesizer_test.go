package speech_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/replicate"
	"github.com/book-expert/story-studio/internal/speech"
)

const testModel = "minimax/speech-02-turbo"

type fakePredictor struct {
	prediction *replicate.Prediction
	err        error
	model      string
	input      map[string]any
}

func (f *fakePredictor) Predict(_ context.Context, model string, input map[string]any) (*replicate.Prediction, error) {
	f.model = model
	f.input = input

	return f.prediction, f.err
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	lg, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = lg.Close() })

	return lg
}

func TestSynthesize_Success(t *testing.T) {
	t.Parallel()

	predictor := &fakePredictor{prediction: &replicate.Prediction{
		ID: "p1", Status: replicate.StatusSucceeded, Output: json.RawMessage(`"https://cdn/a.mp3"`),
	}}
	synth := speech.NewSynthesizer(predictor, testModel, newTestLogger(t))

	url, err := synth.Synthesize(context.Background(), "Once upon a time", "", "english")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a.mp3", url)
	assert.Equal(t, testModel, predictor.model)
	assert.Equal(t, speech.DefaultVoice, predictor.input["voice_id"])
	assert.Equal(t, "mono", predictor.input["channel"])
	assert.Equal(t, 32000, predictor.input["sample_rate"])
	assert.Equal(t, true, predictor.input["english_normalization"])
}

func TestSynthesize_FailedPrediction(t *testing.T) {
	t.Parallel()

	predictor := &fakePredictor{prediction: &replicate.Prediction{
		ID: "p2", Status: replicate.StatusFailed, Error: json.RawMessage(`"content flagged"`),
	}}

	_, err := speech.NewSynthesizer(predictor, testModel, newTestLogger(t)).
		Synthesize(context.Background(), "text", "Calm_Woman", "")

	var synthErr *core.SynthesisError

	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "p2", synthErr.PredictionID)
	assert.Equal(t, replicate.StatusFailed, synthErr.Status)
	assert.Equal(t, "content flagged", synthErr.ProviderError)
}

func TestSynthesize_Timeout(t *testing.T) {
	t.Parallel()

	predictor := &fakePredictor{
		prediction: &replicate.Prediction{ID: "p3", Status: replicate.StatusProcessing},
		err:        fmt.Errorf("prediction p3: %w", replicate.ErrWaitTimeout),
	}

	_, err := speech.NewSynthesizer(predictor, testModel, newTestLogger(t)).
		Synthesize(context.Background(), "text", "", "")

	var synthErr *core.SynthesisError

	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "timeout", synthErr.Status)
	assert.Equal(t, "p3", synthErr.PredictionID)
}

func TestSynthesize_EmptyText(t *testing.T) {
	t.Parallel()

	_, err := speech.NewSynthesizer(&fakePredictor{}, testModel, newTestLogger(t)).
		Synthesize(context.Background(), "   ", "", "")
	require.ErrorIs(t, err, speech.ErrTextEmpty)
}

func TestBuildInput_LanguageBoost(t *testing.T) {
	t.Parallel()

	chinese := speech.BuildInput("你好", "CN_Female_1", "chinese")
	assert.Equal(t, "Chinese", chinese["language_boost"])
	assert.Equal(t, false, chinese["english_normalization"])

	english := speech.BuildInput("hello", "Wise_Woman", "english")
	assert.Equal(t, "English", english["language_boost"])
	assert.Equal(t, true, english["english_normalization"])

	unknown := speech.BuildInput("hola", "Wise_Woman", "spanish")
	assert.Equal(t, "English", unknown["language_boost"])
}

func TestVoices_CatalogIsStableAndComplete(t *testing.T) {
	t.Parallel()

	first := speech.Voices()
	second := speech.Voices()

	require.Len(t, first, 22)
	assert.Equal(t, first, second)
	assert.Equal(t, speech.DefaultVoice, first[0].ID)

	for _, voice := range first {
		assert.NotEmpty(t, voice.ID)
		assert.NotEmpty(t, voice.Name)
		assert.NotEmpty(t, voice.Language)
		assert.NotEmpty(t, voice.Gender)
	}

	first[0].ID = "mutated"
	assert.Equal(t, speech.DefaultVoice, speech.Voices()[0].ID)
}

func TestLookupVoice(t *testing.T) {
	t.Parallel()

	voice, ok := speech.LookupVoice("CN_Male_3")
	require.True(t, ok)
	assert.Equal(t, "zh-cn", voice.Language)

	_, ok = speech.LookupVoice("Nobody")
	assert.False(t, ok)
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, want string
	}{
		{name: "markdown", in: "## Chapter One\n**The** dragon _woke_.", want: "Chapter One The dragon _woke_."},
		{name: "references", in: "She ran[12] far¹.", want: "She ran far."},
		{name: "typography", in: "“Wait—” she said… ‘now’", want: `"Wait-" she said... 'now'`},
		{name: "whitespace", in: "  a\r\n\tb  ", want: "a b"},
		{name: "chinese untouched", in: "从前，有一座山。", want: "从前，有一座山。"},
		{name: "only markup", in: "***", want: ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, speech.NormalizeText(tc.in), tc.name)
	}
}

func TestSynthesize_SendsNormalizedText(t *testing.T) {
	t.Parallel()

	predictor := &fakePredictor{prediction: &replicate.Prediction{
		ID: "p4", Status: replicate.StatusSucceeded, Output: json.RawMessage(`["https://cdn/b.mp3"]`),
	}}
	synth := speech.NewSynthesizer(predictor, testModel, newTestLogger(t))

	_, err := synth.Synthesize(context.Background(), "**Narrator:**  Once\nupon a time", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Narrator: Once upon a time", predictor.input["text"])

	_, err = synth.Synthesize(context.Background(), "**", "", "")
	require.ErrorIs(t, err, speech.ErrTextEmpty)
}
