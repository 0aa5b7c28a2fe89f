package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipitai/filereviewer/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("test-key", "gpt-4o", 0.2, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.SetBaseURL(server.URL)
	c.SetHTTPClient(server.Client())
	return c
}

func TestComplete(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "Use a constant here."}}},
			Usage:   chatUsage{PromptTokens: 10, CompletionTokens: 4},
		})
	})

	text, err := c.Complete(context.Background(), "persona", "review this")
	require.NoError(t, err)
	assert.Equal(t, "Use a constant here.", text)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, []chatMessage{
		{Role: "system", Content: "persona"},
		{Role: "user", Content: "review this"},
	}, got.Messages)
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantPermanent bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, true},
		{"not found", http.StatusNotFound, `{"error":"no model"}`, true},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, false},
		{"server error", http.StatusBadGateway, `bad gateway`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Complete(context.Background(), "", "x")
			require.Error(t, err)
			assert.Equal(t, tt.wantPermanent, retry.IsPermanent(err))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestComplete_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices": []}`)
	})

	_, err := c.Complete(context.Background(), "", "x")
	assert.Error(t, err)
}

func TestComplete_OmitsEmptySystem(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`)
	})

	_, err := c.Complete(context.Background(), "", "x")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}
