// Package openai implements the review model on the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shipitai/filereviewer/retry"
)

const (
	// DefaultURL is the chat completions endpoint.
	DefaultURL = "https://api.openai.com/v1/chat/completions"

	// DefaultMaxTokens caps the length of one file review.
	DefaultMaxTokens = 4096

	requestTimeout = 3 * time.Minute
)

// APIError is a non-200 response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenAI API error (status %d): %s", e.StatusCode, e.Body)
}

// Client completes prompts with an OpenAI chat model.
type Client struct {
	apiKey      string
	model       string
	temperature float64
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a Client for the public API.
func NewClient(apiKey, model string, temperature float64, logger *slog.Logger) *Client {
	return &Client{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		baseURL:     DefaultURL,
		httpClient:  &http.Client{Timeout: requestTimeout},
		logger:      logger,
	}
}

// SetBaseURL points the client at a compatible endpoint.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetHTTPClient replaces the HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Complete sends one system and one user message and returns the reply.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	body := chatRequest{
		Model:       c.model,
		MaxTokens:   DefaultMaxTokens,
		Temperature: c.temperature,
	}
	if system != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: system})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: prompt})

	payload, err := json.Marshal(body)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return "", retry.Permanent(apiErr)
		}
		return "", apiErr
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Debug("OpenAI API usage",
		"model", c.model,
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens,
	)

	return result.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}
