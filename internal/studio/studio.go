// Package studio implements the single-call generation operations: stories,
// podcast outlines, image prompts, story context, and translations.
package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
)

// LanguageChinese selects the Chinese prompts; any other value means English.
const LanguageChinese = "chinese"

// DefaultLanguage is reported when a request names no language.
const DefaultLanguage = "english"

const (
	translateTemperature = 0.7
	translateMaxTokens   = 2000
)

const (
	logFmtStory        = "Generating story: theme=%q language=%s"
	logFmtPodcast      = "Generating podcast content: topic=%q language=%s"
	logFmtImagePrompt  = "Generated image prompt (%d chars) for text of %d chars"
	logFmtStoryContext = "Extracted story context from %d sections (%d chars)"
	logFmtTranslate    = "Translating %s script (%d chars)"
)

// Studio runs single completion calls.
type Studio struct {
	completer core.Completer
	log       *logger.Logger
}

// New creates a Studio.
func New(completer core.Completer, log *logger.Logger) *Studio {
	return &Studio{completer: completer, log: log}
}

// GenerateStory writes a short story (about 200 words) on a theme.
func (s *Studio) GenerateStory(ctx context.Context, theme, language string) (string, error) {
	if strings.TrimSpace(theme) == "" {
		return "", core.NewValidationError("theme", "Theme is required")
	}

	s.log.Info(logFmtStory, theme, language)

	req := core.CompletionRequest{
		SystemPrompt: storySystemPromptEnglish,
		UserPrompt:   fmt.Sprintf(storyUserPromptEnglish, theme),
	}

	if isChinese(language) {
		req.SystemPrompt = storySystemPromptChinese
		req.UserPrompt = fmt.Sprintf(storyUserPromptChinese, theme)
	}

	return s.complete(ctx, "story", req)
}

// GeneratePodcast writes a two-host discussion outline on a topic.
func (s *Studio) GeneratePodcast(ctx context.Context, topic, language string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", core.NewValidationError("topic", "Topic is required")
	}

	s.log.Info(logFmtPodcast, topic, language)

	req := core.CompletionRequest{
		SystemPrompt: podcastSystemPromptEnglish,
		UserPrompt:   fmt.Sprintf(podcastUserPromptEnglish, topic),
	}

	if isChinese(language) {
		req.SystemPrompt = podcastSystemPromptChinese
		req.UserPrompt = fmt.Sprintf(podcastUserPromptChinese, topic)
	}

	return s.complete(ctx, "podcast", req)
}

// GenerateImagePrompt writes an English image prompt for one scene. The
// optional storyContext keeps characters and settings consistent.
func (s *Studio) GenerateImagePrompt(ctx context.Context, text, storyContext string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", core.NewValidationError("text", "Text is required")
	}

	if strings.TrimSpace(storyContext) == "" {
		storyContext = noContext
	}

	prompt, err := s.complete(ctx, "image prompt", core.CompletionRequest{
		SystemPrompt: fmt.Sprintf(imagePromptSystemFormat, storyContext),
		UserPrompt:   fmt.Sprintf(imagePromptUserFormat, text),
	})
	if err != nil {
		return "", err
	}

	s.log.Info(logFmtImagePrompt, len(prompt), len(text))

	return prompt, nil
}

// StoryContext summarises the characters, settings, and themes across all sections.
func (s *Studio) StoryContext(ctx context.Context, sectionTexts []string) (string, error) {
	summary, err := s.complete(ctx, "story context", core.CompletionRequest{
		SystemPrompt: storyContextSystemPrompt,
		UserPrompt:   fmt.Sprintf(storyContextUserFormat, strings.Join(sectionTexts, "\n\n")),
	})
	if err != nil {
		return "", err
	}

	s.log.Info(logFmtStoryContext, len(sectionTexts), len(summary))

	return summary, nil
}

// SectionImagePrompt writes the image prompt for one section of a batch.
func (s *Studio) SectionImagePrompt(ctx context.Context, storyContext, text string) (string, error) {
	return s.complete(ctx, "section image prompt", core.CompletionRequest{
		SystemPrompt: fmt.Sprintf(batchPromptSystemFormat, storyContext),
		UserPrompt:   fmt.Sprintf(batchPromptUserFormat, text),
	})
}

// TranslatePodcast translates a podcast script to Chinese, keeping host labels.
func (s *Studio) TranslatePodcast(ctx context.Context, script string) (string, error) {
	return s.translate(ctx, "podcast", translatePodcastSystemPrompt, translatePodcastUserFormat, script)
}

// TranslateStoryScript translates a story script to Chinese, keeping scene labels.
func (s *Studio) TranslateStoryScript(ctx context.Context, script string) (string, error) {
	return s.translate(ctx, "story", translateStorySystemPrompt, translateStoryUserFormat, script)
}

func (s *Studio) translate(ctx context.Context, kind, systemPrompt, userFormat, script string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", core.NewValidationError("script", "Script is required")
	}

	s.log.Info(logFmtTranslate, kind, len(script))

	return s.complete(ctx, kind+" translation", core.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   fmt.Sprintf(userFormat, script),
		Temperature:  translateTemperature,
		MaxTokens:    translateMaxTokens,
	})
}

func (s *Studio) complete(ctx context.Context, purpose string, req core.CompletionRequest) (string, error) {
	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", purpose, err)
	}

	return text, nil
}

func isChinese(language string) bool {
	return strings.EqualFold(strings.TrimSpace(language), LanguageChinese)
}
