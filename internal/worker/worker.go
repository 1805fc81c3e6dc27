// Package worker provides a NATS request/reply worker that turns stored text into speech.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/speech"
)

const (
	handleMessageTimeout = 10 * time.Minute
	audioKeySuffix       = ".mp3"
	chineseVoiceLanguage = "zh-cn"
	defaultLanguage      = "english"
)

var (
	// ErrUnsupportedVoice indicates that the requested voice is not in the catalog.
	ErrUnsupportedVoice = errors.New("unsupported voice")
	// ErrTextKeyEmpty indicates an event without a text object.
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
)

// NatsWorker answers speech requests published on a subject.
type NatsWorker struct {
	conn        *nats.Conn
	subject     string
	store       core.ObjectStore
	synthesizer core.Synthesizer
	fetcher     core.Fetcher
	log         *logger.Logger
	sub         *nats.Subscription
}

// NewNatsWorker creates a worker for subject.
func NewNatsWorker(
	conn *nats.Conn,
	subject string,
	store core.ObjectStore,
	synthesizer core.Synthesizer,
	fetcher core.Fetcher,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		conn:        conn,
		subject:     subject,
		store:       store,
		synthesizer: synthesizer,
		fetcher:     fetcher,
		log:         log,
	}
}

// Start subscribes and waits until the server has registered the subscription.
func (w *NatsWorker) Start() error {
	if w.sub != nil {
		return nil
	}

	sub, err := w.conn.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	err = w.conn.Flush()
	if err != nil {
		_ = sub.Unsubscribe()

		return fmt.Errorf("failed to flush subscription to %s: %w", w.subject, err)
	}

	w.sub = sub
	w.log.System("Speech worker listening on %s", w.subject)

	return nil
}

// Run starts the worker if needed and blocks until ctx is done, then drains the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	err := w.Start()
	if err != nil {
		return err
	}

	<-ctx.Done()

	drainErr := w.sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

// handleMessage replies only on success; the requester times out otherwise.
func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal speech request: %v", err)

		return
	}

	audioKey, err := w.process(ctx, &event)
	if err != nil {
		w.log.Error("Speech request for workflow %s failed: %v", event.Header.WorkflowID, err)

		return
	}

	reply, err := json.Marshal(&events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	})
	if err != nil {
		w.log.Error("Failed to marshal reply for workflow %s: %v", event.Header.WorkflowID, err)

		return
	}

	err = msg.Respond(reply)
	if err != nil {
		w.log.Error("Failed to reply for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

func (w *NatsWorker) process(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	if event.TextKey == "" {
		return "", ErrTextKeyEmpty
	}

	voice, err := resolveVoice(event.Voice)
	if err != nil {
		return "", err
	}

	text, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text '%s': %w", event.TextKey, err)
	}

	url, err := w.synthesizer.Synthesize(ctx, string(text), voice.ID, languageOf(voice))
	if err != nil {
		return "", err
	}

	audio, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	audioKey := uuid.NewString() + audioKeySuffix

	err = w.store.Upload(ctx, audioKey, audio)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio '%s': %w", audioKey, err)
	}

	w.log.Info("Workflow %s page %d/%d synthesized as %s",
		event.Header.WorkflowID, event.PageNumber, event.TotalPages, audioKey)

	return audioKey, nil
}

func resolveVoice(id string) (speech.Voice, error) {
	voice, ok := speech.LookupVoice(speech.ResolveVoice(strings.TrimSpace(id)))
	if !ok {
		return speech.Voice{}, fmt.Errorf("%w: '%s'", ErrUnsupportedVoice, id)
	}

	return voice, nil
}

func languageOf(voice speech.Voice) string {
	if voice.Language == chineseVoiceLanguage {
		return speech.LanguageChinese
	}

	return defaultLanguage
}
