// Package github provides the GitHub API client, webhook handling and
// GitHub Actions event loading for the reviewer.
package github

import (
	"time"

	gogithub "github.com/google/go-github/v66/github"
)

// PullRequestEvent is a pull_request event, delivered either as a webhook
// payload or as the GitHub Actions event file.
type PullRequestEvent = gogithub.PullRequestEvent

// PullRequest represents a GitHub pull request.
type PullRequest struct {
	ID      int64  `json:"id"`
	Number  int    `json:"number"`
	State   string `json:"state"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Head    *Ref   `json:"head"`
	Base    *Ref   `json:"base"`
	HTMLURL string `json:"html_url"`
}

// HeadSHA returns the head commit SHA, or an empty string if unknown.
func (pr *PullRequest) HeadSHA() string {
	if pr == nil || pr.Head == nil {
		return ""
	}
	return pr.Head.SHA
}

// Ref represents a git reference (branch/commit).
type Ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// PullRequestFile represents a file changed in a pull request.
type PullRequestFile struct {
	SHA              string
	Filename         string
	Status           string // added, removed, modified, renamed, copied, changed, unchanged
	Additions        int
	Deletions        int
	Changes          int
	Patch            string
	HasPatch         bool // false for binary files and diffs too large to return
	PreviousFilename string
}

// PullRequestComment is a created review comment.
type PullRequestComment struct {
	ID          int64
	Path        string
	CommitID    string
	SubjectType string
	Body        string
	HTMLURL     string
}

// ReviewRequest represents a request to create a pull request review.
type ReviewRequest struct {
	CommitID string
	Body     string
	Event    string // APPROVE, REQUEST_CHANGES, COMMENT
}

// Review represents a pull request review response.
type Review struct {
	ID          int64
	Body        string
	State       string
	HTMLURL     string
	SubmittedAt time.Time
}
