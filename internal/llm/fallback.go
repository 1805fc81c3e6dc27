package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/book-expert/logger"

	"github.com/book-expert/story-studio/internal/core"
)

// FallbackCompleter sends every call to the primary backend and retries once on
// the secondary backend when the primary rejects the call for lack of balance.
type FallbackCompleter struct {
	primary   core.Completer
	secondary core.Completer
	log       *logger.Logger
}

// NewFallbackCompleter wires a primary and secondary backend. A nil secondary
// makes it a pass-through.
func NewFallbackCompleter(primary, secondary core.Completer, log *logger.Logger) *FallbackCompleter {
	return &FallbackCompleter{primary: primary, secondary: secondary, log: log}
}

// Complete implements core.Completer.
func (f *FallbackCompleter) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	text, err := f.primary.Complete(ctx, req)
	if err == nil || f.secondary == nil || !isInsufficientBalance(err) {
		return text, err
	}

	f.log.Warn("Primary completion backend out of balance, using fallback: %v", err)

	return f.secondary.Complete(ctx, req)
}

func isInsufficientBalance(err error) bool {
	var upstream *core.UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}

	return upstream.StatusCode == http.StatusPaymentRequired
}
