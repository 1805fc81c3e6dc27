package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/media"
	"github.com/book-expert/story-studio/internal/pipeline"
	"github.com/book-expert/story-studio/internal/speech"
	"github.com/book-expert/story-studio/internal/studio"
)

const errMsgBadBody = "Invalid request body"

type generateRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

type sectionsRequest struct {
	Sections []pipeline.Section `json:"sections"`
	Language string             `json:"language"`
	Model    string             `json:"model"`
}

type storyRequest struct {
	Theme    string `json:"theme"`
	Story    string `json:"story"`
	Topic    string `json:"topic"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

type imagePromptRequest struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

type imageRequest struct {
	Prompt    string          `json:"prompt"`
	SectionID json.RawMessage `json:"sectionId"`
	Seed      *int            `json:"seed"`
	Model     string          `json:"model"`
}

type imageResponse struct {
	Success   bool            `json:"success"`
	ImageURL  string          `json:"imageUrl"`
	SectionID json.RawMessage `json:"sectionId,omitempty"`
}

type downloadRequest struct {
	Images []media.ImageRecord `json:"images"`
	Theme  string              `json:"theme"`
}

type translateRequest struct {
	Script json.RawMessage `json:"script"`
}

// bind decodes the JSON body and answers 400 itself on failure.
func (s *Server) bind(c *gin.Context, target any) bool {
	err := c.ShouldBindJSON(target)
	if err != nil {
		s.log.Warn("Rejecting %s: %v", c.Request.URL.Path, err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": errMsgBadBody})

		return false
	}

	return true
}

// fail answers with the error message: 400 for validation errors, 500 otherwise.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		status = http.StatusBadRequest
	}

	s.log.Error("%s failed: %v", c.Request.URL.Path, err)
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func (s *Server) handleVoices(c *gin.Context) {
	c.JSON(http.StatusOK, speech.Voices())
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if !s.bind(c, &req) {
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		s.fail(c, core.NewValidationError("text", "Text is required"))

		return
	}

	audioURL, err := s.deps.Synthesizer.Synthesize(c.Request.Context(), req.Text, speech.ResolveVoice(req.Voice), req.Language)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "audioUrl": audioURL})
}

func (s *Server) handleGenerateAndMerge(c *gin.Context) {
	var req sectionsRequest
	if !s.bind(c, &req) {
		return
	}

	s.stream(c, func(emitter pipeline.Emitter) error {
		_, err := s.deps.AudioBatch.Run(c.Request.Context(), pipeline.AudioRequest{
			Sections: req.Sections,
			Language: req.Language,
		}, emitter)

		return err
	})
}

func (s *Server) handleGenerateAllImages(c *gin.Context) {
	var req sectionsRequest
	if !s.bind(c, &req) {
		return
	}

	s.stream(c, func(emitter pipeline.Emitter) error {
		_, err := s.deps.ImageBatch.Run(c.Request.Context(), pipeline.ImageRequest{
			Sections: req.Sections,
			Model:    req.Model,
		}, emitter)

		return err
	})
}

func (s *Server) handleGenerateScript(c *gin.Context) {
	var req storyRequest
	if !s.bind(c, &req) {
		return
	}

	s.stream(c, func(emitter pipeline.Emitter) error {
		return pipeline.StreamStoryScript(c.Request.Context(), s.deps.Scripter, req.Story, req.Language, emitter, s.log)
	})
}

func (s *Server) handleGenerateStory(c *gin.Context) {
	var req storyRequest
	if !s.bind(c, &req) {
		return
	}

	language := languageOrDefault(req.Language)

	story, err := s.deps.Writer.GenerateStory(c.Request.Context(), req.Theme, language)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "story": story, "language": language})
}

func (s *Server) handleGeneratePodcast(c *gin.Context) {
	var req storyRequest
	if !s.bind(c, &req) {
		return
	}

	language := languageOrDefault(req.Language)

	content, err := s.deps.Writer.GeneratePodcast(c.Request.Context(), req.Topic, language)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "content": content, "language": language})
}

func (s *Server) handleGeneratePodcastScript(c *gin.Context) {
	var req storyRequest
	if !s.bind(c, &req) {
		return
	}

	turns, err := s.deps.Scripter.ContentToPodcastScript(c.Request.Context(), req.Content, req.Language)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "script": turns})
}

func (s *Server) handleGenerateImagePrompt(c *gin.Context) {
	var req imagePromptRequest
	if !s.bind(c, &req) {
		return
	}

	prompt, err := s.deps.Writer.GenerateImagePrompt(c.Request.Context(), req.Text, req.Context)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "prompt": prompt})
}

func (s *Server) handleGenerateImage(c *gin.Context) {
	var req imageRequest
	if !s.bind(c, &req) {
		return
	}

	imageURL, err := s.deps.Images.GenerateImage(c.Request.Context(), core.ImageRequest{
		Prompt: req.Prompt,
		Model:  req.Model,
		Seed:   req.Seed,
	})
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, imageResponse{Success: true, ImageURL: imageURL, SectionID: req.SectionID})
}

func (s *Server) handleDownloadImages(c *gin.Context) {
	var req downloadRequest
	if !s.bind(c, &req) {
		return
	}

	if len(req.Images) == 0 {
		s.fail(c, core.NewValidationError("images", "No images to download"))

		return
	}

	dir, err := s.deps.Workspace.NewOutputDir(s.deps.Workspace.Timestamp())
	if err != nil {
		s.fail(c, err)

		return
	}

	result, err := media.PersistImageBatch(c.Request.Context(), s.deps.Fetcher, req.Images, req.Theme, dir, s.log)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"directory":   s.deps.Workspace.PublicPath(result.Directory),
		"totalImages": result.TotalImages,
	})
}

func (s *Server) handleTestAPIs(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Prober.ProbeAPIs(c.Request.Context()))
}

func (s *Server) handleTranslatePodcast(c *gin.Context) {
	var req translateRequest
	if !s.bind(c, &req) {
		return
	}

	s.respondTranslation(c, s.deps.Writer.TranslatePodcast, req.Script)
}

func (s *Server) handleTranslateStoryScript(c *gin.Context) {
	var req translateRequest
	if !s.bind(c, &req) {
		return
	}

	s.respondTranslation(c, s.deps.Writer.TranslateStoryScript, req.Script)
}

func (s *Server) respondTranslation(
	c *gin.Context,
	translate func(ctx context.Context, script string) (string, error),
	raw json.RawMessage,
) {
	translation, err := translate(c.Request.Context(), scriptText(raw))
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "translation": translation})
}

// scriptText accepts the script either as a JSON string or as any other JSON
// value, which is passed on as its JSON text.
func scriptText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	var text string
	if json.Unmarshal(raw, &text) == nil {
		return text
	}

	return trimmed
}

func languageOrDefault(language string) string {
	if language == "" {
		return studio.DefaultLanguage
	}

	return language
}
