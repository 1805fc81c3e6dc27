// Package pipeline runs multi-section batches: per-section speech synthesis
// followed by a merge, and per-section image prompts followed by image
// generation. Progress is streamed as events while the batch runs, and one
// failing section never stops the others.
package pipeline

import (
	"encoding/json"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
)

const errMsgNoSections = "No valid text sections"

// Section is one unit of submitted content. ID is opaque and echoed back as given.
type Section struct {
	ID    json.RawMessage `json:"id,omitempty"`
	Text  string          `json:"text"`
	Voice string          `json:"voice,omitempty"`
	Model string          `json:"model,omitempty"`
}

// ValidateSections rejects an empty section list.
func ValidateSections(sections []Section) error {
	if len(sections) == 0 {
		return core.NewValidationError("sections", errMsgNoSections)
	}

	return nil
}

// Report describes a finished batch.
type Report struct {
	States   []State
	Result   *BatchResult
	Artifact string
}

// run carries the per-request state shared by both batch kinds.
type run struct {
	machine *stateMachine
	emitter Emitter
	log     *logger.Logger
}

func newRun(emitter Emitter, log *logger.Logger) *run {
	return &run{machine: newStateMachine(), emitter: emitter, log: log}
}

// send emits an event. A client that went away is only logged; the batch
// notices through its context.
func (r *run) send(event Event) {
	err := r.emitter.Emit(event)
	if err != nil {
		r.log.Warn("Dropping %s event: %v", event.Type, err)
	}
}

func (r *run) enter(state State) {
	err := r.machine.transition(state)
	if err != nil {
		r.log.Error("Batch state machine: %v", err)
	}
}

// fail ends the stream with a terminal error event.
func (r *run) fail(err error) error {
	r.log.Error("Batch failed: %v", err)
	r.enter(StateFailed)
	r.send(FatalEvent(err))
	r.enter(StateDone)

	return err
}

func (r *run) report(result *BatchResult, artifact string) *Report {
	return &Report{States: r.machine.States(), Result: result, Artifact: artifact}
}

// abort fails the run and returns a report that includes the failed stage.
func (r *run) abort(result *BatchResult, err error) (*Report, error) {
	failErr := r.fail(err)

	return r.report(result, ""), failErr
}
