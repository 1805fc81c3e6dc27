// Package broker archives finished artifacts in the object store and announces
// them on NATS.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/story-studio/internal/core"
)

// ErrSubjectEmpty is returned when the publisher has nowhere to announce.
var ErrSubjectEmpty = errors.New("announcement subject cannot be empty")

// FileUploader stores a local file under a key.
type FileUploader interface {
	UploadFile(ctx context.Context, key, path string) error
}

// Publisher implements core.ArtifactSink.
type Publisher struct {
	conn    *nats.Conn
	store   FileUploader
	subject string
	log     *logger.Logger
	now     func() time.Time
}

// NewPublisher creates a Publisher announcing on subject.
func NewPublisher(conn *nats.Conn, store FileUploader, subject string, log *logger.Logger) (*Publisher, error) {
	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	return &Publisher{conn: conn, store: store, subject: subject, log: log, now: time.Now}, nil
}

// Archive uploads the artifact and publishes an AudioChunkCreatedEvent whose
// PageNumber is the number of merged sections and TotalPages the number submitted.
func (p *Publisher) Archive(ctx context.Context, artifact core.Artifact) error {
	err := p.store.UploadFile(ctx, artifact.Key, artifact.Path)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", artifact.Key, err)
	}

	event := events.AudioChunkCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  p.now().UTC(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
		},
		AudioKey:   artifact.Key,
		PageNumber: artifact.Succeeded,
		TotalPages: artifact.Total,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact event: %w", err)
	}

	err = p.conn.Publish(p.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish on %s: %w", p.subject, err)
	}

	p.log.Info("Archived %s (%d/%d sections) and announced on %s",
		artifact.Key, artifact.Succeeded, artifact.Total, p.subject)

	return nil
}
