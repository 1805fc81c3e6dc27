package studio

import (
	"context"
	"errors"

	"github.com/book-expert/logger"
	"golang.org/x/sync/errgroup"

	"github.com/book-expert/story-studio/internal/core"
)

// Probe outcomes.
const (
	ProbeSuccess = "success"
	ProbeError   = "error"
)

const probeMaxTokens = 10

// ProbeFailure describes why a backend probe failed.
type ProbeFailure struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ProbeResult is the outcome for one backend.
type ProbeResult struct {
	Status string        `json:"status"`
	Error  *ProbeFailure `json:"error"`
}

// ProbeReport is the reachability report for both backends.
type ProbeReport struct {
	DeepSeek  ProbeResult `json:"deepseek"`
	Replicate ProbeResult `json:"replicate"`
}

// ModelLister is the cheapest authenticated inference-platform call.
type ModelLister interface {
	ListModels(ctx context.Context) error
}

// Prober checks that both remote backends accept our credentials.
type Prober struct {
	completer core.Completer
	lister    ModelLister
	log       *logger.Logger
}

// NewProber creates a Prober. completer must be the primary backend itself,
// not a fallback chain, or an exhausted balance would be masked.
func NewProber(completer core.Completer, lister ModelLister, log *logger.Logger) *Prober {
	return &Prober{completer: completer, lister: lister, log: log}
}

// ProbeAPIs runs both probes concurrently. A failing probe never affects the other.
func (p *Prober) ProbeAPIs(ctx context.Context) ProbeReport {
	var (
		report ProbeReport
		group  errgroup.Group
	)

	group.Go(func() error {
		_, err := p.completer.Complete(ctx, core.CompletionRequest{
			UserPrompt: probePrompt,
			MaxTokens:  probeMaxTokens,
		})
		report.DeepSeek = p.result("DeepSeek", err)

		return nil
	})

	group.Go(func() error {
		report.Replicate = p.result("Replicate", p.lister.ListModels(ctx))

		return nil
	})

	_ = group.Wait()

	return report
}

func (p *Prober) result(backend string, err error) ProbeResult {
	if err == nil {
		p.log.Info("%s API test successful", backend)

		return ProbeResult{Status: ProbeSuccess}
	}

	p.log.Error("%s API test failed: %v", backend, err)

	failure := &ProbeFailure{Message: err.Error()}

	var upstream *core.UpstreamError
	if errors.As(err, &upstream) {
		failure.Status = upstream.StatusCode
		failure.Code = upstream.Code
	}

	return ProbeResult{Status: ProbeError, Error: failure}
}
