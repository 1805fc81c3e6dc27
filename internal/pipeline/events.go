package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// EventType classifies stream events.
type EventType string

// Stream event types.
const (
	EventProgress        EventType = "progress"
	EventStatus          EventType = "status"
	EventError           EventType = "error"
	EventComplete        EventType = "complete"
	EventPromptProgress  EventType = "prompt_progress"
	EventImageProgress   EventType = "image_progress"
	EventSectionComplete EventType = "section_complete"
	EventSectionError    EventType = "section_error"
)

// Event is one line of a progress stream. Fields not used by a type are omitted.
type Event struct {
	Type      EventType       `json:"type"`
	Current   int             `json:"current,omitempty"`
	Total     int             `json:"total,omitempty"`
	Message   string          `json:"message,omitempty"`
	SectionID json.RawMessage `json:"sectionId,omitempty"`
	Prompt    string          `json:"prompt,omitempty"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Error     string          `json:"error,omitempty"`
	Success   *bool           `json:"success,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	Script    any             `json:"script,omitempty"`
	Succeeded *int            `json:"succeeded,omitempty"`
	Failed    *int            `json:"failed,omitempty"`
}

// Terminal reports whether the event ends a stream.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || (e.Type == EventError && e.Error != "")
}

// ProgressEvent reports that section current of total is being processed.
func ProgressEvent(kind EventType, current, total int, message string) Event {
	return Event{Type: kind, Current: current, Total: total, Message: message}
}

// StatusEvent reports a phase change.
func StatusEvent(message string) Event {
	return Event{Type: EventStatus, Message: message}
}

// SectionErrorEvent reports a recoverable per-section failure in an audio batch.
func SectionErrorEvent(message string, sectionID json.RawMessage) Event {
	return Event{Type: EventError, Message: message, SectionID: sectionID}
}

// FatalEvent is the terminal event of a stream that failed as a whole.
func FatalEvent(err error) Event {
	return Event{Type: EventError, Error: err.Error()}
}

// CompleteEvent is the terminal event of a successful stream.
func CompleteEvent() Event {
	success := true

	return Event{Type: EventComplete, Success: &success}
}

// Emitter receives stream events in order.
type Emitter interface {
	Emit(event Event) error
}

type flusher interface {
	Flush()
}

// NDJSONWriter writes one JSON object per line and flushes after each.
type NDJSONWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher flusher
}

// NewNDJSONWriter wraps w. When w can flush, every event is flushed immediately.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	writer := &NDJSONWriter{w: w}
	if f, ok := w.(flusher); ok {
		writer.flusher = f
	}

	return writer
}

// Emit implements Emitter.
func (n *NDJSONWriter) Emit(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	_, err = n.w.Write(append(line, '\n'))
	if err != nil {
		return fmt.Errorf("failed to write %s event: %w", event.Type, err)
	}

	if n.flusher != nil {
		n.flusher.Flush()
	}

	return nil
}
