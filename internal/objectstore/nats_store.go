// Package objectstore keeps generated story artifacts in a NATS JetStream object store bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	bucketDescription = "Story studio artifacts (%s)."
	errFmtBind        = "failed to bind to object store bucket '%s': %w"
	errFmtCreate      = "failed to create object store bucket '%s': %w"
)

// ErrEmptyKey is returned for operations on an unnamed object.
var ErrEmptyKey = errors.New("object key cannot be empty")

// NatsObjectStore implements core.ObjectStore on a JetStream object store bucket.
type NatsObjectStore struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the bucket, or binds to it when it already exists.
func New(js nats.JetStreamContext, bucket string) (*NatsObjectStore, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: fmt.Sprintf(bucketDescription, bucket),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf(errFmtCreate, bucket, err)
		}

		store, err = js.ObjectStore(bucket)
		if err != nil {
			return nil, fmt.Errorf(errFmtBind, bucket, err)
		}
	}

	return &NatsObjectStore{bucket: bucket, store: store}, nil
}

// Bucket returns the bucket name.
func (n *NatsObjectStore) Bucket() string {
	return n.bucket
}

// Download reads the whole object stored under key.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores data under key, replacing any previous object.
func (n *NatsObjectStore) Upload(ctx context.Context, key string, data []byte) error {
	return n.put(ctx, key, bytes.NewReader(data))
}

// UploadFile streams the file at path into the bucket under key.
func (n *NatsObjectStore) UploadFile(ctx context.Context, key, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer file.Close()

	return n.put(ctx, key, file)
}

func (n *NatsObjectStore) put(ctx context.Context, key string, reader io.Reader) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := n.store.Put(&nats.ObjectMeta{Name: key}, reader, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to put '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}
