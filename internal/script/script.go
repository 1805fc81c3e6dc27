// Package script turns free-form model output into structured story and
// podcast scripts.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
)

// Scene types.
const (
	SceneNarration = "narration"
	SceneDialogue  = "dialogue"
)

// Podcast hosts.
const (
	HostA = "A"
	HostB = "B"
)

// LanguageChinese keeps the source language; anything else means English.
const LanguageChinese = "chinese"

const (
	completionTemperature = 0.7
	completionMaxTokens   = 2000
)

const (
	logFmtStoryRequest   = "Converting story to script: %d chars, language=%s"
	logFmtPodcastRequest = "Converting content to podcast script: %d chars, language=%s"
	logFmtParseFailure   = "Script parsing failed (%v); raw content: %s"
	logFmtParsed         = "Parsed %s script with %d entries"
)

// Scene is one narration or dialogue entry of a story script. Character is
// set only for dialogue.
type Scene struct {
	Type      string `json:"type"`
	Character string `json:"character,omitempty"`
	Text      string `json:"text"`
}

// StoryScript is the structured form of a story.
type StoryScript struct {
	Scenes []Scene `json:"scenes"`
}

// Turn is one host's line in a podcast script.
type Turn struct {
	Host string `json:"host"`
	Text string `json:"text"`
}

// Structurer converts text into scripts with one completion call each.
type Structurer struct {
	completer core.Completer
	log       *logger.Logger
}

// NewStructurer creates a Structurer.
func NewStructurer(completer core.Completer, log *logger.Logger) *Structurer {
	return &Structurer{completer: completer, log: log}
}

// StoryToScript converts a story into an ordered list of scenes.
func (s *Structurer) StoryToScript(ctx context.Context, story, language string) (*StoryScript, error) {
	if strings.TrimSpace(story) == "" {
		return nil, core.NewValidationError("story", "Story is required")
	}

	s.log.Info(logFmtStoryRequest, len(story), language)

	systemPrompt := storySystemPromptEnglish
	if isChinese(language) {
		systemPrompt = storySystemPromptChinese
	}

	raw, err := s.completer.Complete(ctx, core.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   fmt.Sprintf(storyUserPromptFormat, story),
		Temperature:  completionTemperature,
		MaxTokens:    completionMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("story script completion: %w", err)
	}

	parsed, err := ParseStoryScript(raw)
	if err != nil {
		s.log.Error(logFmtParseFailure, err, raw)

		return nil, err
	}

	s.log.Info(logFmtParsed, "story", len(parsed.Scenes))

	return parsed, nil
}

// ContentToPodcastScript converts podcast content into alternating host turns.
func (s *Structurer) ContentToPodcastScript(ctx context.Context, content, language string) ([]Turn, error) {
	if strings.TrimSpace(content) == "" {
		return nil, core.NewValidationError("content", "Content is required")
	}

	s.log.Info(logFmtPodcastRequest, len(content), language)

	systemPrompt := podcastSystemPromptEnglish
	if isChinese(language) {
		systemPrompt = podcastSystemPromptChinese
	}

	raw, err := s.completer.Complete(ctx, core.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   fmt.Sprintf(podcastUserPromptFormat, content),
	})
	if err != nil {
		return nil, fmt.Errorf("podcast script completion: %w", err)
	}

	turns, err := ParsePodcastScript(raw)
	if err != nil {
		s.log.Error(logFmtParseFailure, err, raw)

		return nil, err
	}

	s.log.Info(logFmtParsed, "podcast", len(turns))

	return turns, nil
}

// ParseStoryScript extracts the first balanced JSON object from raw and
// validates it as a story script. The result never contains '*'.
func ParseStoryScript(raw string) (*StoryScript, error) {
	span, ok := FindBalancedSpan(raw, '{', '}')
	if !ok {
		return nil, &core.FormatError{Reason: core.ReasonInvalidScriptFormat}
	}

	var envelope map[string]json.RawMessage

	err := json.Unmarshal([]byte(span), &envelope)
	if err != nil {
		return nil, &core.FormatError{Reason: core.ReasonInvalidScriptFormat, Err: err}
	}

	rawScenes, ok := envelope["scenes"]
	if !ok {
		return nil, structureError("missing scenes")
	}

	var scenes []Scene

	err = json.Unmarshal(rawScenes, &scenes)
	if err != nil || scenes == nil {
		return nil, &core.FormatError{Reason: core.ReasonInvalidScriptStructure, Err: err}
	}

	out := make([]Scene, 0, len(scenes))

	for _, scene := range scenes {
		cleaned, keep := cleanScene(scene)
		if keep {
			out = append(out, cleaned)
		}
	}

	if len(out) == 0 {
		return nil, structureError("no scenes with text")
	}

	return &StoryScript{Scenes: out}, nil
}

// ParsePodcastScript parses raw as a JSON array of turns, falling back to the
// first balanced array span inside it.
func ParsePodcastScript(raw string) ([]Turn, error) {
	var turns []Turn

	err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &turns)
	if err != nil {
		span, ok := FindBalancedSpan(raw, '[', ']')
		if !ok {
			return nil, &core.FormatError{Reason: core.ReasonInvalidScriptFormat, Err: err}
		}

		spanErr := json.Unmarshal([]byte(span), &turns)
		if spanErr != nil {
			return nil, &core.FormatError{Reason: core.ReasonInvalidScriptFormat, Err: spanErr}
		}
	}

	out := make([]Turn, 0, len(turns))

	for index, turn := range turns {
		host, ok := normaliseHost(turn.Host)
		if !ok {
			return nil, structureError(fmt.Sprintf("turn %d: unknown host %q", index+1, turn.Host))
		}

		text := stripFormatting(turn.Text)
		if text == "" {
			continue
		}

		out = append(out, Turn{Host: host, Text: text})
	}

	if len(out) == 0 {
		return nil, structureError("no turns with text")
	}

	return out, nil
}

// cleanScene strips formatting and settles the scene type. A missing or
// unrecognised type becomes dialogue when a character is named, else narration.
func cleanScene(scene Scene) (Scene, bool) {
	text := stripFormatting(scene.Text)
	if text == "" {
		return Scene{}, false
	}

	character := stripFormatting(scene.Character)

	sceneType := strings.ToLower(strings.TrimSpace(scene.Type))
	if sceneType != SceneNarration && sceneType != SceneDialogue {
		sceneType = SceneNarration
		if character != "" {
			sceneType = SceneDialogue
		}
	}

	if sceneType == SceneNarration {
		character = ""
	}

	return Scene{Type: sceneType, Character: character, Text: text}, true
}

func normaliseHost(host string) (string, bool) {
	host = strings.ToUpper(strings.TrimSpace(host))
	host = strings.TrimSpace(strings.TrimPrefix(host, "HOST"))

	switch host {
	case HostA, HostB:
		return host, true
	default:
		return "", false
	}
}

func stripFormatting(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "*", ""))
}

func structureError(detail string) error {
	return &core.FormatError{
		Reason: core.ReasonInvalidScriptStructure,
		Err:    errors.New(detail),
	}
}

func isChinese(language string) bool {
	return strings.EqualFold(strings.TrimSpace(language), LanguageChinese)
}
