package pipeline

import (
	"context"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/script"
)

const (
	msgConverting = "Converting story to script..."
	msgProcessing = "Processing script format..."
)

// ScriptConverter turns a story into a structured script.
type ScriptConverter interface {
	StoryToScript(ctx context.Context, story, language string) (*script.StoryScript, error)
}

// StreamStoryScript converts a story while reporting its two phases, then ends
// the stream with complete carrying the script or a terminal error.
func StreamStoryScript(
	ctx context.Context,
	converter ScriptConverter,
	story, language string,
	emitter Emitter,
	log *logger.Logger,
) error {
	if strings.TrimSpace(story) == "" {
		return core.NewValidationError("story", "Story is required")
	}

	state := newRun(emitter, log)
	state.send(StatusEvent(msgConverting))
	state.enter(StatePerSectionLoop)

	converted, err := converter.StoryToScript(ctx, story, language)
	if err != nil {
		return state.fail(err)
	}

	state.enter(StateAggregating)
	state.send(StatusEvent(msgProcessing))
	state.enter(StateDone)

	complete := CompleteEvent()
	complete.Script = converted
	state.send(complete)

	return nil
}
