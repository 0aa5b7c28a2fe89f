// Package anthropic implements the review model on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/shipitai/filereviewer/retry"
)

const (
	// APITimeout is the maximum time to wait for one Messages API response.
	APITimeout = 3 * time.Minute

	// DefaultMaxTokens caps the length of one file review.
	DefaultMaxTokens = 4096
)

// Client completes prompts with a Claude model. Retries are left to the
// caller's retry policy, so the SDK's own retries are disabled.
type Client struct {
	client      *anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      *slog.Logger
}

// NewClient creates a Client. Extra request options are passed to the SDK,
// which tests use to point it at a local server.
func NewClient(apiKey, model string, temperature float64, logger *slog.Logger, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &Client{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   DefaultMaxTokens,
		logger:      logger,
	}
}

// Complete sends one system and one user message and returns the text reply.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(c.model)),
		MaxTokens:   anthropic.F(c.maxTokens),
		Temperature: anthropic.F(c.temperature),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		}),
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(system),
		})
	}

	message, err := c.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", classify(fmt.Errorf("Claude API error: %w", err))
	}

	c.logger.Debug("Claude API usage",
		"model", c.model,
		"input_tokens", message.Usage.InputTokens,
		"output_tokens", message.Usage.OutputTokens,
	)

	for _, block := range message.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in Claude response")
}

// classify marks request errors that a retry cannot fix as permanent.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return retry.Permanent(err)
		}
	}
	return err
}
