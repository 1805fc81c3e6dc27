// Package llm provides the chat-completion adapter used for story, script,
// prompt, and translation generation. It speaks the OpenAI-compatible REST
// contract exposed by DeepSeek and OpenAI.
package llm

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

	"github.com/book-expert/story-studio/internal/core"
)

// API endpoints and paths.
const (
	apiChatCompletions = "/chat/completions"
)

// HTTP headers.
const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

// Chat roles.
const (
	roleSystem = "system"
	roleUser   = "user"
)

// Error and log messages.
const (
	errMsgNoChoices      = "response contained no choices"
	errMsgEmptyContent   = "response contained empty content"
	logFmtRequest        = "Chat completion request to %s: model=%s system=%d chars user=%d chars"
	logFmtResponse       = "Chat completion from %s returned %d chars"
	logFmtRequestFailure = "Chat completion to %s failed: %v"
)

// ErrPromptEmpty is returned when both prompts are blank.
var ErrPromptEmpty = errors.New("completion prompt cannot be empty")

// Client is a chat-completion client for one OpenAI-compatible backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	service    string
	log        *logger.Logger
}

// Options configures a Client.
type Options struct {
	// Service names the backend in errors and logs, e.g. "deepseek".
	Service string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// NewClient creates a chat-completion client.
func NewClient(opts Options, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		service:    opts.Service,
		log:        log,
	}
}

// Complete issues one chat-completion call and returns the first choice's text.
// Any non-success response is reported as *core.UpstreamError. No retries.
func (c *Client) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if strings.TrimSpace(req.SystemPrompt) == "" && strings.TrimSpace(req.UserPrompt) == "" {
		return "", ErrPromptEmpty
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiChatCompletions,
		bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAuthorization, bearerPrefix+c.apiKey)

	c.log.Info(logFmtRequest, c.service, c.model, len(req.SystemPrompt), len(req.UserPrompt))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Error(logFmtRequestFailure, c.service, err)

		return "", &core.UpstreamError{Service: c.service, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseErrorResponse(resp)
	}

	var decoded chatResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)
	if decodeErr != nil {
		return "", &core.UpstreamError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Message:    "failed to decode completion response: " + decodeErr.Error(),
		}
	}

	if len(decoded.Choices) == 0 {
		return "", &core.UpstreamError{Service: c.service, StatusCode: resp.StatusCode, Message: errMsgNoChoices}
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", &core.UpstreamError{Service: c.service, StatusCode: resp.StatusCode, Message: errMsgEmptyContent}
	}

	c.log.Info(logFmtResponse, c.service, len(content))

	return content, nil
}

// Service returns the backend name used in errors.
func (c *Client) Service() string {
	return c.service
}

func (c *Client) buildRequest(req core.CompletionRequest) chatRequest {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: roleSystem, Content: req.SystemPrompt})
	}

	if req.UserPrompt != "" {
		messages = append(messages, chatMessage{Role: roleUser, Content: req.UserPrompt})
	}

	out := chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}

	if req.Temperature > 0 {
		temperature := req.Temperature
		out.Temperature = &temperature
	}

	return out
}

// parseErrorResponse decodes the provider's structured error when present and
// falls back to the raw body otherwise.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	upstream := &core.UpstreamError{
		Service:    c.service,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(raw)),
	}

	var envelope errorEnvelope

	err := json.Unmarshal(raw, &envelope)
	if err == nil && envelope.Error.Message != "" {
		upstream.Message = envelope.Error.Message

		if envelope.Error.Code != nil {
			upstream.Code = fmt.Sprint(envelope.Error.Code)
		} else {
			upstream.Code = envelope.Error.Type
		}
	}

	if upstream.Message == "" {
		upstream.Message = resp.Status
	}

	c.log.Error(logFmtRequestFailure, c.service, upstream)

	return upstream
}
