package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
)

const (
	msgAnalyzing       = "Analyzing story context..."
	msgGeneratePrompts = "Generating prompts..."
	msgGenerateImages  = "Generating images..."
	msgPromptProgress  = "Generating prompt %d/%d"
	msgImageProgress   = "Generating image %d/%d"
	msgImagesDone      = "All images generated successfully"
)

// PromptWriter produces the story context and per-section image prompts.
type PromptWriter interface {
	StoryContext(ctx context.Context, sectionTexts []string) (string, error)
	SectionImagePrompt(ctx context.Context, storyContext, text string) (string, error)
}

// AssetWarmer keeps a generated asset available for later downloads.
type AssetWarmer interface {
	Warm(ctx context.Context, url string) error
}

// ImageRequest is one generate-all-images request. Model applies to sections
// that do not choose their own; an empty model means the generator default.
type ImageRequest struct {
	Sections []Section
	Model    string
	Seed     *int
}

// ImageBatch writes one prompt per section and then renders one image per prompt.
type ImageBatch struct {
	prompts PromptWriter
	images  core.ImageGenerator
	warmer  AssetWarmer
	log     *logger.Logger
}

// NewImageBatch wires an ImageBatch. warmer may be nil.
func NewImageBatch(
	prompts PromptWriter,
	images core.ImageGenerator,
	warmer AssetWarmer,
	log *logger.Logger,
) *ImageBatch {
	return &ImageBatch{prompts: prompts, images: images, warmer: warmer, log: log}
}

type sectionPrompt struct {
	sectionID json.RawMessage
	model     string
	prompt    string
}

// Run executes the batch. A failing context or prompt call aborts the whole
// batch with a terminal error. A failing image only produces a section_error
// and the batch moves on. The terminal complete event is sent whenever the
// image phase is reached, however many images failed.
func (b *ImageBatch) Run(ctx context.Context, req ImageRequest, emitter Emitter) (*Report, error) {
	err := ValidateSections(req.Sections)
	if err != nil {
		return nil, err
	}

	state := newRun(emitter, b.log)
	total := len(req.Sections)
	result := NewBatchResult(total)

	state.send(StatusEvent(msgAnalyzing))

	texts := make([]string, total)
	for i, section := range req.Sections {
		texts[i] = section.Text
	}

	storyContext, err := b.prompts.StoryContext(ctx, texts)
	if err != nil {
		return state.abort(result, err)
	}

	b.log.Info("Story context: %s", storyContext)

	state.enter(StatePerSectionLoop)
	state.send(StatusEvent(msgGeneratePrompts))

	prompts := make([]sectionPrompt, 0, total)

	for index, section := range req.Sections {
		if ctx.Err() != nil {
			return state.abort(result, fmt.Errorf("batch aborted: %w", ctx.Err()))
		}

		state.send(ProgressEvent(EventPromptProgress, index+1, total, fmt.Sprintf(msgPromptProgress, index+1, total)))

		prompt, promptErr := b.prompts.SectionImagePrompt(ctx, storyContext, section.Text)
		if promptErr != nil {
			return state.abort(result, fmt.Errorf("prompt for section %d: %w", index+1, promptErr))
		}

		model := section.Model
		if model == "" {
			model = req.Model
		}

		prompts = append(prompts, sectionPrompt{sectionID: section.ID, model: model, prompt: prompt})
	}

	state.send(StatusEvent(msgGenerateImages))

	for index, item := range prompts {
		if ctx.Err() != nil {
			return state.abort(result, fmt.Errorf("batch aborted: %w", ctx.Err()))
		}

		state.send(ProgressEvent(EventImageProgress, index+1, total, fmt.Sprintf(msgImageProgress, index+1, total)))

		url, imageErr := b.images.GenerateImage(ctx, core.ImageRequest{
			Prompt: item.prompt,
			Model:  item.model,
			Seed:   req.Seed,
		})
		if imageErr != nil {
			b.log.Error("Error generating image for section %d: %v", index+1, imageErr)
			_ = result.Fail(index, imageErr)
			state.send(Event{Type: EventSectionError, SectionID: item.sectionID, Error: imageErr.Error()})

			continue
		}

		_ = result.Succeed(index, url)
		b.warm(ctx, index, url)
		state.send(Event{
			Type:      EventSectionComplete,
			SectionID: item.sectionID,
			Prompt:    item.prompt,
			ImageURL:  url,
			Current:   index + 1,
			Total:     total,
		})
	}

	state.enter(StateAggregating)
	state.enter(StateDone)

	succeeded, failed := result.Succeeded(), result.Failed()
	state.send(Event{Type: EventComplete, Message: msgImagesDone, Succeeded: &succeeded, Failed: &failed})

	b.log.Info("Image batch finished: %d succeeded, %d failed", succeeded, failed)

	return state.report(result, ""), nil
}

// warm caches a generated image. A failure only costs the later download a
// second request, so it never fails the section.
func (b *ImageBatch) warm(ctx context.Context, index int, url string) {
	if b.warmer == nil {
		return
	}

	err := b.warmer.Warm(ctx, url)
	if err != nil {
		b.log.Warn("Failed to cache image for section %d: %v", index+1, err)
	}
}
