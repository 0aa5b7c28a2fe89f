package github

import (
	"errors"
	"fmt"
	"strings"

	gogithub "github.com/google/go-github/v66/github"
)

const (
	// EventPullRequest is the event name for pull request activity.
	EventPullRequest = "pull_request"
	// EventPing is sent when a webhook is first configured.
	EventPing = "ping"
)

var (
	// ErrInvalidSignature indicates the webhook signature verification failed.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMissingSignature indicates the webhook signature header is missing.
	ErrMissingSignature = errors.New("missing webhook signature")
	// ErrNotPullRequest indicates the payload carries no pull_request object.
	ErrNotPullRequest = errors.New("payload is not a pull request event")
)

// ReviewableActions are the pull_request actions that open or update the diff.
var ReviewableActions = []string{"opened", "synchronize", "reopened", "edited"}

// IsReviewableAction reports whether a pull_request action should trigger a review.
// An empty action is accepted for manually triggered runs.
func IsReviewableAction(action string) bool {
	if action == "" {
		return true
	}
	for _, a := range ReviewableActions {
		if a == action {
			return true
		}
	}
	return false
}

// WebhookHandler handles GitHub webhook events.
type WebhookHandler struct {
	secret []byte
}

// NewWebhookHandler creates a new webhook handler with the given secret.
func NewWebhookHandler(secret string) *WebhookHandler {
	return &WebhookHandler{
		secret: []byte(secret),
	}
}

// VerifySignature verifies the webhook payload signature.
// The signature header should be in the format "sha256=<hex-encoded-signature>";
// the legacy sha1 header is not accepted.
func (h *WebhookHandler) VerifySignature(payload []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(signatureHeader, "sha256=") {
		return ErrInvalidSignature
	}

	if err := gogithub.ValidateSignature(signatureHeader, payload, h.secret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// ParsePullRequestEvent parses a pull_request webhook payload.
// Number is filled from the pull request when the payload omits it.
func ParsePullRequestEvent(payload []byte) (*PullRequestEvent, error) {
	parsed, err := gogithub.ParseWebHook(EventPullRequest, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	event, ok := parsed.(*gogithub.PullRequestEvent)
	if !ok || event.PullRequest == nil {
		return nil, ErrNotPullRequest
	}
	if event.GetNumber() == 0 {
		event.Number = gogithub.Int(event.PullRequest.GetNumber())
	}

	return event, nil
}

// ShouldProcess determines if the event should trigger a review.
func (h *WebhookHandler) ShouldProcess(eventType string, event *PullRequestEvent) bool {
	if eventType != EventPullRequest || event == nil {
		return false
	}
	return event.GetAction() != "" && IsReviewableAction(event.GetAction())
}
