package github

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ActionsContext is the subset of the GitHub Actions runtime context the reviewer reads.
type ActionsContext struct {
	EventName string
	Owner     string
	Repo      string
	APIURL    string
	// Event is nil when the run was not triggered by a pull_request event.
	Event *PullRequestEvent
}

// PullNumber returns the pull request number from the event payload.
func (c *ActionsContext) PullNumber() int {
	return c.Event.GetNumber()
}

// HeadSHA returns the head commit of the triggering pull request.
func (c *ActionsContext) HeadSHA() string {
	return c.Event.GetPullRequest().GetHead().GetSHA()
}

// Action returns the pull_request action (opened, synchronize, ...).
func (c *ActionsContext) Action() string {
	return c.Event.GetAction()
}

// LoadActionsContext reads the runner environment (GITHUB_EVENT_NAME,
// GITHUB_EVENT_PATH, GITHUB_REPOSITORY, GITHUB_API_URL) through getenv.
// The event file is only parsed for pull_request events.
func LoadActionsContext(getenv func(string) string) (*ActionsContext, error) {
	ctx := &ActionsContext{
		EventName: getenv("GITHUB_EVENT_NAME"),
		APIURL:    getenv("GITHUB_API_URL"),
	}
	if ctx.EventName == "" {
		return nil, errors.New("GITHUB_EVENT_NAME is not set; not running inside GitHub Actions?")
	}

	if repoSlug := getenv("GITHUB_REPOSITORY"); repoSlug != "" {
		owner, repo, ok := strings.Cut(repoSlug, "/")
		if !ok {
			return nil, fmt.Errorf("invalid GITHUB_REPOSITORY %q", repoSlug)
		}
		ctx.Owner, ctx.Repo = owner, repo
	}

	if ctx.EventName != EventPullRequest {
		return ctx, nil
	}

	eventPath := getenv("GITHUB_EVENT_PATH")
	if eventPath == "" {
		return nil, errors.New("GITHUB_EVENT_PATH is not set")
	}
	payload, err := os.ReadFile(eventPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file %s: %w", eventPath, err)
	}

	event, err := ParsePullRequestEvent(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event file: %w", err)
	}
	ctx.Event = event

	if login := event.GetRepo().GetOwner().GetLogin(); login != "" {
		ctx.Owner = login
		ctx.Repo = event.GetRepo().GetName()
	}

	return ctx, nil
}
