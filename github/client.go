package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v66/github"

	"github.com/shipitai/filereviewer/retry"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com"

	// FilesPerPage is the page size used when listing pull request files.
	FilesPerPage = 100

	// SubjectTypeFile anchors a review comment to a whole file rather than a line.
	SubjectTypeFile = "file"

	requestTimeout = 30 * time.Second
)

// ErrContentMissing indicates a contents response without a decodable file body.
var ErrContentMissing = errors.New("file content missing from response")

// Client provides methods to interact with the GitHub REST API.
type Client struct {
	gh *gogithub.Client
}

// NewClient creates a client that sends requests through httpClient.
// apiURL may be empty for github.com, or a GitHub Enterprise API root.
func NewClient(httpClient *http.Client, apiURL string) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	gh := gogithub.NewClient(httpClient)

	if apiURL != "" && strings.TrimRight(apiURL, "/") != DefaultAPIURL {
		base, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
		gh.BaseURL = base
	}

	return &Client{gh: gh}, nil
}

// NewTokenClient creates a client authenticated with a personal access token
// or the GITHUB_TOKEN of an Actions run.
func NewTokenClient(token, apiURL string) (*Client, error) {
	if token == "" {
		return nil, errors.New("GitHub token is empty")
	}
	c, err := NewClient(nil, apiURL)
	if err != nil {
		return nil, err
	}
	c.gh = c.gh.WithAuthToken(token)
	return c, nil
}

// NewInstallationClient creates a client authenticated as a GitHub App installation.
// The privateKey should be the PEM-encoded private key of the GitHub App.
func NewInstallationClient(appID, installationID int64, privateKey []byte, apiURL string) (*Client, error) {
	transport, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation transport: %w", err)
	}
	if apiURL != "" {
		transport.BaseURL = strings.TrimRight(apiURL, "/")
	}
	return NewClient(&http.Client{Transport: transport, Timeout: requestTimeout}, apiURL)
}

// ListPullRequestFiles fetches every file changed in a pull request, following pagination.
// Files are returned in the order GitHub lists them.
func (c *Client) ListPullRequestFiles(ctx context.Context, owner, repo string, prNumber int) ([]PullRequestFile, error) {
	opts := &gogithub.ListOptions{PerPage: FilesPerPage}

	var files []PullRequestFile
	for {
		page, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to fetch files: %w", err))
		}

		for _, f := range page {
			files = append(files, PullRequestFile{
				SHA:              f.GetSHA(),
				Filename:         f.GetFilename(),
				Status:           f.GetStatus(),
				Additions:        f.GetAdditions(),
				Deletions:        f.GetDeletions(),
				Changes:          f.GetChanges(),
				Patch:            f.GetPatch(),
				HasPatch:         f.Patch != nil,
				PreviousFilename: f.GetPreviousFilename(),
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// GetPullRequest fetches a pull request by number.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, prNumber int) (*PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to fetch pull request: %w", err))
	}

	return &PullRequest{
		ID:      pr.GetID(),
		Number:  pr.GetNumber(),
		State:   pr.GetState(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		Head:    &Ref{Ref: pr.GetHead().GetRef(), SHA: pr.GetHead().GetSHA()},
		Base:    &Ref{Ref: pr.GetBase().GetRef(), SHA: pr.GetBase().GetSHA()},
		HTMLURL: pr.GetHTMLURL(),
	}, nil
}

// FetchFileContent fetches a file from a repository and decodes it to text.
// An empty ref reads from the default branch.
func (c *Client) FetchFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	var opts *gogithub.RepositoryContentGetOptions
	if ref != "" {
		opts = &gogithub.RepositoryContentGetOptions{Ref: ref}
	}

	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return "", classify(fmt.Errorf("failed to fetch file %s: %w", path, err))
	}
	if file == nil || file.Content == nil {
		return "", retry.Permanent(fmt.Errorf("%s: %w", path, ErrContentMissing))
	}

	content, err := file.GetContent()
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to decode %s: %w", path, err))
	}

	return content, nil
}

// CreateFileComment posts a review comment anchored to a whole file at commitID.
func (c *Client) CreateFileComment(ctx context.Context, owner, repo string, prNumber int, commitID, path, body string) (*PullRequestComment, error) {
	comment, _, err := c.gh.PullRequests.CreateComment(ctx, owner, repo, prNumber, &gogithub.PullRequestComment{
		Body:        gogithub.String(body),
		Path:        gogithub.String(path),
		CommitID:    gogithub.String(commitID),
		SubjectType: gogithub.String(SubjectTypeFile),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("failed to create review comment on %s: %w", path, err))
	}

	return &PullRequestComment{
		ID:          comment.GetID(),
		Path:        comment.GetPath(),
		CommitID:    comment.GetCommitID(),
		SubjectType: SubjectTypeFile,
		Body:        comment.GetBody(),
		HTMLURL:     comment.GetHTMLURL(),
	}, nil
}

// CreateReview posts a review on a pull request.
func (c *Client) CreateReview(ctx context.Context, owner, repo string, prNumber int, review *ReviewRequest) (*Review, error) {
	req := &gogithub.PullRequestReviewRequest{
		Body:  gogithub.String(review.Body),
		Event: gogithub.String(review.Event),
	}
	if review.CommitID != "" {
		req.CommitID = gogithub.String(review.CommitID)
	}

	created, _, err := c.gh.PullRequests.CreateReview(ctx, owner, repo, prNumber, req)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to create review: %w", err))
	}

	return &Review{
		ID:          created.GetID(),
		Body:        created.GetBody(),
		State:       created.GetState(),
		HTMLURL:     created.GetHTMLURL(),
		SubmittedAt: created.GetSubmittedAt().Time,
	}, nil
}

// classify marks errors that retrying cannot fix as permanent.
// Rate limits, 5xx responses and network failures stay retryable.
func classify(err error) error {
	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return err
	}

	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity:
			return retry.Permanent(err)
		}
	}

	return err
}

// StatusCode returns the HTTP status of a GitHub API error, or 0 if err did not
// come from an API response.
func StatusCode(err error) int {
	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode
	}
	return 0
}
