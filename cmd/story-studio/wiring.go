package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/story-studio/internal/broker"
	"github.com/book-expert/story-studio/internal/config"
	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/imagegen"
	"github.com/book-expert/story-studio/internal/llm"
	"github.com/book-expert/story-studio/internal/media"
	"github.com/book-expert/story-studio/internal/objectstore"
	"github.com/book-expert/story-studio/internal/pipeline"
	"github.com/book-expert/story-studio/internal/replicate"
	"github.com/book-expert/story-studio/internal/script"
	"github.com/book-expert/story-studio/internal/server"
	"github.com/book-expert/story-studio/internal/speech"
	"github.com/book-expert/story-studio/internal/studio"
	"github.com/book-expert/story-studio/internal/worker"
)

const (
	primaryService  = "deepseek"
	fallbackService = "openai"
)

// ErrNATSURLMissing is returned by the worker when no NATS server is configured.
var ErrNATSURLMissing = errors.New("nats.url is not set")

// newCompleter returns the completer used for generation and the primary
// client on its own, which the API probe must call without fallback.
func newCompleter(cfg *config.Config, log *logger.Logger) (core.Completer, *llm.Client) {
	timeout := time.Duration(cfg.Completion.TimeoutSeconds) * time.Second
	primary := llm.NewClient(llm.Options{
		Service: primaryService,
		BaseURL: cfg.Completion.BaseURL,
		APIKey:  cfg.Completion.APIKey,
		Model:   cfg.Completion.Model,
		Timeout: timeout,
	}, log)

	if !cfg.HasFallback() {
		return primary, primary
	}

	secondary := llm.NewClient(llm.Options{
		Service: fallbackService,
		BaseURL: cfg.Completion.Fallback.BaseURL,
		APIKey:  cfg.Completion.Fallback.APIKey,
		Model:   cfg.Completion.Fallback.Model,
		Timeout: timeout,
	}, log)

	return llm.NewFallbackCompleter(primary, secondary, log), primary
}

func newReplicate(cfg *config.Config, log *logger.Logger) *replicate.Client {
	return replicate.NewClient(replicate.Options{
		BaseURL:      cfg.Replicate.BaseURL,
		Token:        cfg.Replicate.APIToken,
		PollInterval: cfg.PollInterval(),
		MaxWait:      cfg.MaxWait(),
		Timeout:      time.Duration(cfg.Replicate.TimeoutSeconds) * time.Second,
	}, log)
}

func newFetcher(cfg *config.Config, log *logger.Logger) *media.Fetcher {
	return media.NewFetcher(time.Duration(cfg.Replicate.TimeoutSeconds)*time.Second, log)
}

// natsArchive connects the optional artifact archive. It returns a nil sink
// when no NATS URL is configured.
func natsArchive(cfg *config.Config, log *logger.Logger) (core.ArtifactSink, func(), error) {
	if cfg.NATS.URL == "" {
		log.Info("NATS URL not configured; merged audio will not be archived.")

		return nil, func() {}, nil
	}

	conn, store, err := connectStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := broker.NewPublisher(conn, store, cfg.NATS.AudioChunkCreatedSubject, log)
	if err != nil {
		conn.Close()

		return nil, nil, err
	}

	log.Info("Archiving merged audio to bucket %s", store.Bucket())

	return publisher, drainer(conn, log), nil
}

func connectStore(cfg *config.Config) (*nats.Conn, *objectstore.NatsObjectStore, error) {
	conn, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	store, err := objectstore.New(js, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		conn.Close()

		return nil, nil, err
	}

	return conn, store, nil
}

func drainer(conn *nats.Conn, log *logger.Logger) func() {
	return func() {
		err := conn.Drain()
		if err != nil {
			log.Warn("Failed to drain NATS connection: %v", err)
		}
	}
}

func runServer(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	err := cfg.Validate()
	if err != nil {
		return err
	}

	encoding := media.Encoding{Codec: cfg.Media.Codec, Bitrate: cfg.Media.Bitrate}

	err = encoding.Validate()
	if err != nil {
		return err
	}

	workspace := media.NewWorkspace(cfg.Paths.OutputDir, cfg.Paths.TempDir)

	err = workspace.EnsureRoots()
	if err != nil {
		return err
	}

	sink, closeSink, err := natsArchive(cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	completer, primary := newCompleter(cfg, log)
	predictions := newReplicate(cfg, log)
	fetcher := newFetcher(cfg, log)
	synthesizer := speech.NewSynthesizer(predictions, cfg.Replicate.SpeechModel, log)
	images := imagegen.NewGenerator(predictions, cfg.Replicate.DefaultImageModel, log)
	writer := studio.New(completer, log)
	merger := media.NewMerger(cfg.Media.FFmpegPath, encoding, nil, log)

	log.Info("Speech model %s, default image model %s", cfg.Replicate.SpeechModel, images.DefaultModel())

	srv := server.New(server.Deps{
		Synthesizer: synthesizer,
		Images:      images,
		Fetcher:     fetcher,
		Writer:      writer,
		Scripter:    script.NewStructurer(completer, log),
		AudioBatch:  pipeline.NewAudioBatch(synthesizer, fetcher, merger, workspace, sink, log),
		ImageBatch:  pipeline.NewImageBatch(writer, images, fetcher, log),
		Prober:      studio.NewProber(primary, predictions, log),
		Workspace:   workspace,
	}, server.Options{
		ListenAddr:     cfg.Server.ListenAddr,
		StaticDir:      cfg.Server.StaticDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log)

	return srv.Run(ctx)
}

func runWorker(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.NATS.URL == "" {
		return ErrNATSURLMissing
	}

	if cfg.Replicate.APIToken == "" {
		return config.ErrReplicateTokenMissing
	}

	conn, store, err := connectStore(cfg)
	if err != nil {
		return err
	}
	defer drainer(conn, log)()

	predictions := newReplicate(cfg, log)
	speechWorker := worker.NewNatsWorker(
		conn,
		cfg.NATS.TTSRequestSubject,
		store,
		speech.NewSynthesizer(predictions, cfg.Replicate.SpeechModel, log),
		newFetcher(cfg, log),
		log,
	)

	return speechWorker.Run(ctx)
}
