package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/media"
)

const (
	mergedAudioName    = "audio.mp3"
	tempAudioFormat    = "temp-%d.mp3"
	msgAudioProgress   = "Generating audio for section %d/%d"
	msgAudioSectionErr = "Failed to generate audio for section %d: %v"
	msgMerging         = "Merging audio files..."
)

// ErrNoAudio is the terminal error of an audio batch in which every section failed.
var ErrNoAudio = errors.New("no audio generated")

// AudioMerger concatenates ordered audio files into output.
type AudioMerger interface {
	Merge(ctx context.Context, inputs []string, workDir, output string) (string, error)
}

// AudioRequest is one generate-and-merge request.
type AudioRequest struct {
	Sections []Section
	Language string
}

// AudioBatch synthesizes every section and merges the results into one file.
type AudioBatch struct {
	synthesizer core.Synthesizer
	fetcher     core.Fetcher
	merger      AudioMerger
	workspace   *media.Workspace
	sink        core.ArtifactSink
	log         *logger.Logger
}

// NewAudioBatch wires an AudioBatch. sink may be nil.
func NewAudioBatch(
	synthesizer core.Synthesizer,
	fetcher core.Fetcher,
	merger AudioMerger,
	workspace *media.Workspace,
	sink core.ArtifactSink,
	log *logger.Logger,
) *AudioBatch {
	return &AudioBatch{
		synthesizer: synthesizer,
		fetcher:     fetcher,
		merger:      merger,
		workspace:   workspace,
		sink:        sink,
		log:         log,
	}
}

// Run processes the sections strictly in order. Validation failures are
// returned before any event is emitted. Every other outcome ends the stream
// with exactly one terminal event: complete when at least one section was
// merged, error otherwise.
func (b *AudioBatch) Run(ctx context.Context, req AudioRequest, emitter Emitter) (*Report, error) {
	err := ValidateSections(req.Sections)
	if err != nil {
		return nil, err
	}

	state := newRun(emitter, b.log)
	total := len(req.Sections)
	result := NewBatchResult(total)

	stamp := b.workspace.Timestamp()

	tempDir, err := b.workspace.NewTempDir(stamp)
	if err != nil {
		return state.abort(result, err)
	}

	outputDir, err := b.workspace.NewOutputDir(stamp)
	if err != nil {
		b.cleanup(tempDir)

		return state.abort(result, err)
	}

	state.enter(StatePerSectionLoop)

	for index, section := range req.Sections {
		if ctx.Err() != nil {
			b.cleanup(tempDir)

			return state.abort(result, fmt.Errorf("batch aborted: %w", ctx.Err()))
		}

		state.send(ProgressEvent(EventProgress, index+1, total, fmt.Sprintf(msgAudioProgress, index+1, total)))

		path, sectionErr := b.renderSection(ctx, index, section, req.Language, tempDir)
		if sectionErr != nil {
			b.log.Error("Error generating audio for section %d: %v", index+1, sectionErr)
			_ = result.Fail(index, sectionErr)
			state.send(SectionErrorEvent(fmt.Sprintf(msgAudioSectionErr, index+1, sectionErr), section.ID))

			continue
		}

		_ = result.Succeed(index, path)
	}

	if result.Succeeded() == 0 {
		b.cleanup(tempDir)

		return state.abort(result, ErrNoAudio)
	}

	state.enter(StateAggregating)
	state.send(StatusEvent(msgMerging))

	output, err := b.merger.Merge(ctx, result.Artifacts(), tempDir, filepath.Join(outputDir, mergedAudioName))
	if err != nil {
		b.cleanup(tempDir)

		return state.abort(result, err)
	}

	b.cleanup(tempDir)
	b.archive(ctx, stamp, output, result)

	state.enter(StateDone)

	complete := CompleteEvent()
	complete.Filename = b.workspace.PublicPath(output)
	state.send(complete)

	b.log.Info("Audio batch finished: %d/%d sections merged into %s", result.Succeeded(), total, output)

	return state.report(result, output), nil
}

func (b *AudioBatch) renderSection(
	ctx context.Context,
	index int,
	section Section,
	language, tempDir string,
) (string, error) {
	url, err := b.synthesizer.Synthesize(ctx, section.Text, section.Voice, language)
	if err != nil {
		return "", err
	}

	path := filepath.Join(tempDir, fmt.Sprintf(tempAudioFormat, index))

	err = media.DownloadToFile(ctx, b.fetcher, url, path)
	if err != nil {
		return "", err
	}

	return path, nil
}

func (b *AudioBatch) archive(ctx context.Context, stamp, output string, result *BatchResult) {
	if b.sink == nil {
		return
	}

	err := b.sink.Archive(ctx, core.Artifact{
		Key:       stamp + "/" + mergedAudioName,
		Path:      output,
		Succeeded: result.Succeeded(),
		Total:     result.Len(),
	})
	if err != nil {
		b.log.Warn("Archiving %s failed: %v", output, err)
	}
}

func (b *AudioBatch) cleanup(tempDir string) {
	err := os.RemoveAll(tempDir)
	if err != nil {
		b.log.Warn("Failed to remove temp directory %s: %v", tempDir, err)
	}
}
