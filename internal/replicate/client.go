// Package replicate is a minimal client for the Replicate predictions API.
// It creates a prediction, polls it to a terminal state at a fixed pace, and
// normalises the heterogeneous output shapes models return.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"golang.org/x/time/rate"

	"github.com/book-expert/story-studio/internal/core"
)

// Prediction statuses.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

const (
	serviceName         = "replicate"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

const (
	logFmtCreated  = "Created prediction %s for %s (status=%s)"
	logFmtTerminal = "Prediction %s finished with status %s"
	logFmtTimeout  = "Prediction %s did not finish within %s"
)

// ErrWaitTimeout is returned by Wait when the prediction is still running after the max wait.
var ErrWaitTimeout = errors.New("prediction did not finish in time")

// Prediction is the subset of the prediction resource the service reads.
type Prediction struct {
	ID     string          `json:"id"`
	Model  string          `json:"model"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
}

// Terminal reports whether the prediction can no longer change state.
func (p *Prediction) Terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// ErrorMessage returns the provider's error text, if any.
func (p *Prediction) ErrorMessage() string {
	if len(p.Error) == 0 || string(p.Error) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(p.Error, &text); err == nil {
		return text
	}

	return string(p.Error)
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	Token        string
	PollInterval time.Duration
	MaxWait      time.Duration
	Timeout      time.Duration
}

// Client talks to the predictions API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	pollInterval time.Duration
	maxWait      time.Duration
	log          *logger.Logger
}

// NewClient creates a Client. A zero PollInterval defaults to one second.
func NewClient(opts Options, log *logger.Logger) *Client {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        opts.Token,
		pollInterval: pollInterval,
		maxWait:      opts.MaxWait,
		log:          log,
	}
}

// Predict creates a prediction for an "owner/name" model and waits for it to
// reach a terminal state. The terminal prediction is returned even when it
// failed; only transport problems and timeouts are reported as errors.
func (c *Client) Predict(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	prediction, err := c.CreatePrediction(ctx, model, input)
	if err != nil {
		return nil, err
	}

	return c.Wait(ctx, prediction)
}

// CreatePrediction submits a new prediction.
func (c *Client) CreatePrediction(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)

	var prediction Prediction

	err = c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), &prediction)
	if err != nil {
		return nil, err
	}

	c.log.Info(logFmtCreated, prediction.ID, model, prediction.Status)

	return &prediction, nil
}

// GetPrediction fetches the current state of a prediction.
func (c *Client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	var prediction Prediction

	err := c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil, &prediction)
	if err != nil {
		return nil, err
	}

	return &prediction, nil
}

// Wait polls the prediction once per poll interval until it is terminal. When a
// max wait is configured and exceeded, the last seen prediction is returned
// together with ErrWaitTimeout.
func (c *Client) Wait(ctx context.Context, prediction *Prediction) (*Prediction, error) {
	waitCtx := ctx

	if c.maxWait > 0 {
		var cancel context.CancelFunc

		waitCtx, cancel = context.WithTimeout(ctx, c.maxWait)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)
	limiter.Allow()

	current := prediction
	for !current.Terminal() {
		err := limiter.Wait(waitCtx)
		if err != nil {
			return current, c.waitError(ctx, current, err)
		}

		next, err := c.GetPrediction(waitCtx, current.ID)
		if err != nil {
			if ctx.Err() == nil && waitCtx.Err() != nil {
				return current, c.waitError(ctx, current, err)
			}

			return current, err
		}

		current = next
	}

	c.log.Info(logFmtTerminal, current.ID, current.Status)

	return current, nil
}

func (c *Client) waitError(parent context.Context, prediction *Prediction, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("waiting for prediction %s: %w", prediction.ID, parent.Err())
	}

	c.log.Warn(logFmtTimeout, prediction.ID, c.maxWait)

	return fmt.Errorf("prediction %s: %w", prediction.ID, ErrWaitTimeout)
}

// ListModels performs the cheapest authenticated call the API offers and is
// used as a reachability probe.
func (c *Client) ListModels(ctx context.Context) error {
	var discard json.RawMessage

	return c.do(ctx, http.MethodGet, c.baseURL+"/models", nil, &discard)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+c.token)

	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &core.UpstreamError{Service: serviceName, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return parseError(resp, raw)
	}

	err = json.Unmarshal(raw, out)
	if err != nil {
		return &core.UpstreamError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Message:    "failed to decode response: " + err.Error(),
		}
	}

	return nil
}

// parseError understands the problem-details body the API returns.
func parseError(resp *http.Response, raw []byte) error {
	upstream := &core.UpstreamError{
		Service:    serviceName,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(raw)),
	}

	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}

	if err := json.Unmarshal(raw, &problem); err == nil {
		switch {
		case problem.Detail != "":
			upstream.Message = problem.Detail
		case problem.Title != "":
			upstream.Message = problem.Title
		}
	}

	if upstream.Message == "" {
		upstream.Message = resp.Status
	}

	return upstream
}
