package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/imagegen"
	"github.com/book-expert/story-studio/internal/media"
	"github.com/book-expert/story-studio/internal/pipeline"
	"github.com/book-expert/story-studio/internal/replicate"
	"github.com/book-expert/story-studio/internal/script"
	"github.com/book-expert/story-studio/internal/server"
	"github.com/book-expert/story-studio/internal/studio"
)

const allowedOrigin = "http://localhost:3000"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	lg, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = lg.Close() })

	return lg
}

type fakeSynthesizer struct{}

func (fakeSynthesizer) Synthesize(_ context.Context, text, voiceID, _ string) (string, error) {
	if text == "fail" {
		return "", &core.SynthesisError{PredictionID: "p1", Status: "failed", ProviderError: "bad voice"}
	}

	return "https://cdn.test/" + voiceID + ".mp3", nil
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if strings.Contains(url, "broken") {
		return nil, &core.UpstreamError{Service: "asset download", StatusCode: http.StatusNotFound, Message: "Not Found"}
	}

	return []byte(url), nil
}

type fakeMerger struct{}

func (fakeMerger) Merge(_ context.Context, _ []string, _, output string) (string, error) {
	return output, os.WriteFile(output, []byte("merged"), 0o600)
}

type recordingPredictor struct {
	mu     sync.Mutex
	models []string
	inputs []map[string]any
}

func (p *recordingPredictor) Predict(_ context.Context, model string, input map[string]any) (*replicate.Prediction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.models = append(p.models, model)
	p.inputs = append(p.inputs, input)

	return &replicate.Prediction{
		ID:     "pred-1",
		Status: replicate.StatusSucceeded,
		Output: json.RawMessage(`"https://img/1.png"`),
	}, nil
}

type fakeWriter struct {
	mu      sync.Mutex
	scripts []string
	err     error
}

func (w *fakeWriter) GenerateStory(_ context.Context, theme, language string) (string, error) {
	if w.err != nil {
		return "", w.err
	}

	return "A story about " + theme + " in " + language, nil
}

func (w *fakeWriter) GeneratePodcast(_ context.Context, topic, _ string) (string, error) {
	return "[Host A]\nWelcome to " + topic, nil
}

func (w *fakeWriter) GenerateImagePrompt(_ context.Context, text, storyContext string) (string, error) {
	return "prompt(" + text + "|" + storyContext + ")", nil
}

func (w *fakeWriter) TranslatePodcast(_ context.Context, scriptText string) (string, error) {
	return w.record(scriptText)
}

func (w *fakeWriter) TranslateStoryScript(_ context.Context, scriptText string) (string, error) {
	return w.record(scriptText)
}

func (w *fakeWriter) record(scriptText string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if strings.TrimSpace(scriptText) == "" {
		return "", core.NewValidationError("script", "Script is required")
	}

	w.scripts = append(w.scripts, scriptText)

	return "译文", nil
}

type fakeScripter struct{}

func (fakeScripter) StoryToScript(_ context.Context, story, _ string) (*script.StoryScript, error) {
	if strings.TrimSpace(story) == "" {
		return nil, core.NewValidationError("story", "Story is required")
	}

	return &script.StoryScript{Scenes: []script.Scene{{Type: script.SceneNarration, Text: story}}}, nil
}

func (fakeScripter) ContentToPodcastScript(_ context.Context, _, _ string) ([]script.Turn, error) {
	return []script.Turn{{Host: script.HostA, Text: "Hello"}, {Host: script.HostB, Text: "Hi"}}, nil
}

type fakeProber struct{}

func (fakeProber) ProbeAPIs(context.Context) studio.ProbeReport {
	return studio.ProbeReport{
		DeepSeek:  studio.ProbeResult{Status: studio.ProbeSuccess},
		Replicate: studio.ProbeResult{Status: studio.ProbeError, Error: &studio.ProbeFailure{Message: "Unauthenticated", Status: 401}},
	}
}

type harness struct {
	handler   http.Handler
	predictor *recordingPredictor
	writer    *fakeWriter
	workspace *media.Workspace
	stamp     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	lg := newTestLogger(t)
	root := t.TempDir()
	clock := func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.UTC) }
	workspace := media.NewWorkspaceWithClock(filepath.Join(root, "output"), filepath.Join(root, "temp"), clock)
	require.NoError(t, workspace.EnsureRoots())

	predictor := &recordingPredictor{}
	images := imagegen.NewGenerator(predictor, imagegen.Models()[0].ID, lg)
	writer := &fakeWriter{}

	deps := server.Deps{
		Synthesizer: fakeSynthesizer{},
		Images:      images,
		Fetcher:     fakeFetcher{},
		Writer:      writer,
		Scripter:    fakeScripter{},
		AudioBatch:  pipeline.NewAudioBatch(fakeSynthesizer{}, fakeFetcher{}, fakeMerger{}, workspace, nil, lg),
		ImageBatch:  pipeline.NewImageBatch(fakePrompts{}, images, nil, lg),
		Prober:      fakeProber{},
		Workspace:   workspace,
	}
	srv := server.New(deps, server.Options{AllowedOrigins: []string{allowedOrigin, "http://127.0.0.1:3000"}}, lg)

	return &harness{
		handler:   srv.Handler(),
		predictor: predictor,
		writer:    writer,
		workspace: workspace,
		stamp:     workspace.Timestamp(),
	}
}

type fakePrompts struct{}

func (fakePrompts) StoryContext(_ context.Context, texts []string) (string, error) {
	return strings.Join(texts, " "), nil
}

func (fakePrompts) SectionImagePrompt(_ context.Context, _, text string) (string, error) {
	return "illustrate " + text, nil
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	return rec
}

func decodeLines(t *testing.T, body string) []map[string]any {
	t.Helper()

	var events []map[string]any

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		var event map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))

		events = append(events, event)
	}

	return events
}

func TestVoices(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	first := h.do(t, http.MethodGet, "/voices", "")
	second := h.do(t, http.MethodGet, "/voices", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	var voices []map[string]string
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &voices))
	require.Len(t, voices, 22)
	assert.Equal(t, "Wise_Woman", voices[0]["id"])

	for _, voice := range voices {
		for _, field := range []string{"id", "name", "language", "gender"} {
			assert.NotEmpty(t, voice[field], "voice %v lacks %s", voice, field)
		}
	}
}

func TestGenerateAndMerge_EmptySectionsNeverStream(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/generate-and-merge", `{"sections":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"success":false,"error":"No valid text sections"}`, rec.Body.String())
}

func TestGenerateAndMerge_StreamsProgress(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/generate-and-merge",
		`{"sections":[{"id":1,"text":"fail","voice":"Wise_Woman"},{"id":2,"text":"B","voice":"Wise_Woman"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	events := decodeLines(t, rec.Body.String())
	require.Len(t, events, 5)
	assert.Equal(t, "progress", events[0]["type"])
	assert.Equal(t, "error", events[1]["type"])
	assert.Contains(t, events[1]["message"], "section 1")
	assert.InDelta(t, 1, events[1]["sectionId"], 0)
	assert.Equal(t, "progress", events[2]["type"])
	assert.Equal(t, "status", events[3]["type"])
	assert.Equal(t, map[string]any{
		"type":     "complete",
		"success":  true,
		"filename": "output/" + h.stamp + "/audio.mp3",
	}, events[4])

	merged, err := os.ReadFile(filepath.Join(h.workspace.OutputRoot(), h.stamp, "audio.mp3"))
	require.NoError(t, err)
	assert.Equal(t, []byte("merged"), merged)

	served := h.do(t, http.MethodGet, "/output/"+h.stamp+"/audio.mp3", "")
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "merged", served.Body.String())
}

func TestGenerateImage_DefaultModel(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/generate-image", `{"prompt":"a cat"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"imageUrl":"https://img/1.png"}`, rec.Body.String())

	require.Len(t, h.predictor.models, 1)
	assert.Equal(t, "black-forest-labs/flux-schnell", h.predictor.models[0])
	assert.Equal(t, map[string]any{
		"prompt":              "a cat",
		"seed":                imagegen.DefaultSeed,
		"num_inference_steps": 4,
		"guidance_scale":      7.5,
	}, h.predictor.inputs[0])
}

func TestGenerateImage_HonoursZeroSeed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/generate-image", `{"prompt":"a cat","seed":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, h.predictor.inputs, 1)
	assert.Equal(t, 0, h.predictor.inputs[0]["seed"])
}

func TestGenerateImage_EchoesSectionAndValidates(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/generate-image", `{"prompt":"a dog","sectionId":"s-7","model":"flux-dev","seed":9}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"imageUrl":"https://img/1.png","sectionId":"s-7"}`, rec.Body.String())
	assert.Equal(t, "black-forest-labs/flux-dev", h.predictor.models[0])
	assert.Equal(t, 9, h.predictor.inputs[0]["seed"])

	missing := h.do(t, http.MethodPost, "/generate-image", `{"prompt":""}`)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.JSONEq(t, `{"success":false,"error":"Prompt is required"}`, missing.Body.String())
}

func TestGenerateAllImages_Streams(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/generate-all-images", `{"sections":[{"id":"a","text":"dawn"},{"id":"b","text":"dusk"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := decodeLines(t, rec.Body.String())
	last := events[len(events)-1]
	assert.Equal(t, "complete", last["type"])
	assert.InDelta(t, 2, last["succeeded"], 0)

	var completed int

	for _, event := range events {
		if event["type"] == "section_complete" {
			completed++
		}
	}

	assert.Equal(t, 2, completed)
}

func TestGenerateScript_Streams(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/generate-script", `{"story":"Once."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := decodeLines(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, map[string]any{
		"type":    "complete",
		"success": true,
		"script":  map[string]any{"scenes": []any{map[string]any{"type": "narration", "text": "Once."}}},
	}, events[2])

	empty := h.do(t, http.MethodPost, "/generate-script", `{"story":" "}`)
	assert.Equal(t, http.StatusBadRequest, empty.Code)
}

func TestJSONEndpoints(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{
			name: "generate",
			path: "/generate",
			body: `{"text":"hello"}`,
			want: `{"success":true,"audioUrl":"https://cdn.test/Wise_Woman.mp3"}`,
		},
		{
			name: "generate story defaults language",
			path: "/generate-story",
			body: `{"theme":"dragons"}`,
			want: `{"success":true,"story":"A story about dragons in english","language":"english"}`,
		},
		{
			name: "generate podcast",
			path: "/generate-podcast",
			body: `{"topic":"tea","language":"chinese"}`,
			want: `{"success":true,"content":"[Host A]\nWelcome to tea","language":"chinese"}`,
		},
		{
			name: "podcast script",
			path: "/generate-podcast-script",
			body: `{"content":"[Host A]\nHello"}`,
			want: `{"success":true,"script":[{"host":"A","text":"Hello"},{"host":"B","text":"Hi"}]}`,
		},
		{
			name: "image prompt",
			path: "/generate-image-prompt",
			body: `{"text":"a fox","context":"forest"}`,
			want: `{"success":true,"prompt":"prompt(a fox|forest)"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := h.do(t, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, tc.want, rec.Body.String())
		})
	}
}

func TestErrorsMapToStatus(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.writer.err = &core.UpstreamError{Service: "deepseek", StatusCode: http.StatusPaymentRequired, Message: "Insufficient Balance"}

	rec := h.do(t, http.MethodPost, "/generate-story", `{"theme":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"deepseek returned status 402: Insufficient Balance"}`, rec.Body.String())

	bad := h.do(t, http.MethodPost, "/generate", `{not json`)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	blank := h.do(t, http.MethodPost, "/generate", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, blank.Code)

	synthFailed := h.do(t, http.MethodPost, "/generate", `{"text":"fail"}`)
	assert.Equal(t, http.StatusInternalServerError, synthFailed.Code)
}

func TestTranslate_AcceptsStringOrStructuredScript(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/translate-podcast", `{"script":"[Host A]\nHi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"translation":"译文"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/translate-story-script", `{"script":{"scenes":[]}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/translate-story-script", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, []string{"[Host A]\nHi", `{"scenes":[]}`}, h.writer.scripts)
}

func TestDownloadImages(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/download-images",
		`{"theme":"Sea","images":[{"url":"https://img/1.webp","prompt":"waves"},{"url":"https://img/broken.webp","prompt":"gulls"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"directory":"output/`+h.stamp+`","totalImages":2}`, rec.Body.String())

	dir := filepath.Join(h.workspace.OutputRoot(), h.stamp)
	assert.FileExists(t, filepath.Join(dir, "image-001.webp"))
	assert.NoFileExists(t, filepath.Join(dir, "image-002.webp"))
	assert.FileExists(t, filepath.Join(dir, "gallery.html"))
	assert.FileExists(t, filepath.Join(dir, "errors.txt"))

	empty := h.do(t, http.MethodPost, "/download-images", `{"images":[]}`)
	assert.Equal(t, http.StatusBadRequest, empty.Code)
}

func TestTestAPIs(t *testing.T) {
	t.Parallel()

	rec := newHarness(t).do(t, http.MethodGet, "/test-apis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"deepseek":{"status":"success","error":null},"replicate":{"status":"error","error":{"message":"Unauthenticated","status":401}}}`,
		rec.Body.String())
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/voices", nil)
	req.Header.Set("Origin", allowedOrigin)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/voices", nil)
	req.Header.Set("Origin", "http://evil.test")

	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/generate", nil)
	req.Header.Set("Origin", "http://127.0.0.1:3000")

	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
