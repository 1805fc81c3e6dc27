package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/book-expert/story-studio/internal/pipeline"
)

const contentTypeNDJSON = "application/x-ndjson"

// lazyStream opens the NDJSON response on the first event, so a batch that is
// rejected before emitting anything can still answer with a plain JSON error.
type lazyStream struct {
	c      *gin.Context
	writer *pipeline.NDJSONWriter
}

func (l *lazyStream) Emit(event pipeline.Event) error {
	if l.writer == nil {
		header := l.c.Writer.Header()
		header.Set("Content-Type", contentTypeNDJSON)
		header.Set("Cache-Control", "no-cache")
		header.Set("X-Content-Type-Options", "nosniff")
		l.c.Status(http.StatusOK)
		l.writer = pipeline.NewNDJSONWriter(l.c.Writer)
	}

	return l.writer.Emit(event)
}

func (l *lazyStream) started() bool {
	return l.writer != nil
}

// stream runs a batch against an NDJSON response. Errors raised after the
// stream opened were already reported as terminal events.
func (s *Server) stream(c *gin.Context, run func(emitter pipeline.Emitter) error) {
	emitter := &lazyStream{c: c}

	err := run(emitter)
	if err != nil && !emitter.started() {
		s.fail(c, err)
	}
}
