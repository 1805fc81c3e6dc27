// Package server exposes the story studio over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/gin-gonic/gin"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/book-expert/story-studio/internal/media"
	"github.com/book-expert/story-studio/internal/pipeline"
	"github.com/book-expert/story-studio/internal/script"
	"github.com/book-expert/story-studio/internal/studio"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	outputRoute       = "/output"
)

// Writer produces free-form text with the chat backend.
type Writer interface {
	GenerateStory(ctx context.Context, theme, language string) (string, error)
	GeneratePodcast(ctx context.Context, topic, language string) (string, error)
	GenerateImagePrompt(ctx context.Context, text, storyContext string) (string, error)
	TranslatePodcast(ctx context.Context, script string) (string, error)
	TranslateStoryScript(ctx context.Context, script string) (string, error)
}

// Scripter structures text into scripts.
type Scripter interface {
	StoryToScript(ctx context.Context, story, language string) (*script.StoryScript, error)
	ContentToPodcastScript(ctx context.Context, content, language string) ([]script.Turn, error)
}

// AudioRunner runs a generate-and-merge batch.
type AudioRunner interface {
	Run(ctx context.Context, req pipeline.AudioRequest, emitter pipeline.Emitter) (*pipeline.Report, error)
}

// ImageRunner runs a generate-all-images batch.
type ImageRunner interface {
	Run(ctx context.Context, req pipeline.ImageRequest, emitter pipeline.Emitter) (*pipeline.Report, error)
}

// Prober reports backend reachability.
type Prober interface {
	ProbeAPIs(ctx context.Context) studio.ProbeReport
}

// Deps are the components behind the routes.
type Deps struct {
	Synthesizer core.Synthesizer
	Images      core.ImageGenerator
	Fetcher     core.Fetcher
	Writer      Writer
	Scripter    Scripter
	AudioBatch  AudioRunner
	ImageBatch  ImageRunner
	Prober      Prober
	Workspace   *media.Workspace
}

// Options configure the listener.
type Options struct {
	ListenAddr     string
	StaticDir      string
	AllowedOrigins []string
}

// Server is the HTTP front end.
type Server struct {
	deps   Deps
	opts   Options
	log    *logger.Logger
	engine *gin.Engine
}

// New builds the router.
func New(deps Deps, opts Options, log *logger.Logger) *Server {
	srv := &Server{deps: deps, opts: opts, log: log}
	srv.engine = srv.routes()

	return srv
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.log), corsMiddleware(s.opts.AllowedOrigins))

	engine.GET("/voices", s.handleVoices)
	engine.POST("/generate", s.handleGenerate)
	engine.POST("/generate-and-merge", s.handleGenerateAndMerge)
	engine.POST("/generate-story", s.handleGenerateStory)
	engine.POST("/generate-script", s.handleGenerateScript)
	engine.POST("/generate-podcast", s.handleGeneratePodcast)
	engine.POST("/generate-podcast-script", s.handleGeneratePodcastScript)
	engine.POST("/generate-image-prompt", s.handleGenerateImagePrompt)
	engine.POST("/generate-image", s.handleGenerateImage)
	engine.POST("/generate-all-images", s.handleGenerateAllImages)
	engine.POST("/download-images", s.handleDownloadImages)
	engine.GET("/test-apis", s.handleTestAPIs)
	engine.POST("/translate-podcast", s.handleTranslatePodcast)
	engine.POST("/translate-story-script", s.handleTranslateStoryScript)

	if s.deps.Workspace != nil {
		engine.Static(outputRoute, s.deps.Workspace.OutputRoot())
	}

	if s.opts.StaticDir != "" {
		engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.opts.StaticDir))))
	}

	return engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.opts.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errChan := make(chan error, 1)

	go func() {
		s.log.System("Server running at %s", s.opts.ListenAddr)

		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	return nil
}
