package review

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/aquilax/truncate"

	"github.com/shipitai/filereviewer/github"
	"github.com/shipitai/filereviewer/retry"
)

// MaxCommentLength is the largest comment body GitHub accepts, in characters.
const MaxCommentLength = 65536

const truncationNotice = "\n\n_(review truncated)_"

// reviewEventComment posts a review without approving or requesting changes.
const reviewEventComment = "COMMENT"

// PullRequestWriter is the subset of the GitHub API used to publish reviews.
type PullRequestWriter interface {
	GetPullRequest(ctx context.Context, owner, repo string, prNumber int) (*github.PullRequest, error)
	FetchFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
	CreateFileComment(ctx context.Context, owner, repo string, prNumber int, commitID, path, body string) (*github.PullRequestComment, error)
	CreateReview(ctx context.Context, owner, repo string, prNumber int, review *github.ReviewRequest) (*github.Review, error)
}

// CommentPublisher writes review output back to the pull request.
type CommentPublisher struct {
	client PullRequestWriter
	policy retry.Policy
	logger *slog.Logger
}

// NewCommentPublisher creates a CommentPublisher.
func NewCommentPublisher(client PullRequestWriter, policy retry.Policy, logger *slog.Logger) *CommentPublisher {
	return &CommentPublisher{
		client: client,
		policy: policy.WithLogger(logger),
		logger: logger,
	}
}

// PublishFileComment posts body as a comment on the whole file at commit sha.
func (p *CommentPublisher) PublishFileComment(ctx context.Context, owner, repo string, pull int, sha, filename, body string) (int64, error) {
	body = capBody(body)
	comment, err := retry.Do(ctx, p.policy, "create file comment on "+filename, func(ctx context.Context) (*github.PullRequestComment, error) {
		return p.client.CreateFileComment(ctx, owner, repo, pull, sha, filename, body)
	})
	if err != nil {
		return 0, publishError("create file comment", filename, err)
	}

	p.logger.Info("posted file comment",
		"file", filename,
		"comment_id", comment.ID,
		"url", comment.HTMLURL,
	)
	return comment.ID, nil
}

// PublishReview posts a review-level comment that is not tied to a file.
func (p *CommentPublisher) PublishReview(ctx context.Context, owner, repo string, pull int, sha, body string) (int64, error) {
	req := &github.ReviewRequest{
		CommitID: sha,
		Body:     capBody(body),
		Event:    reviewEventComment,
	}
	review, err := retry.Do(ctx, p.policy, "create review", func(ctx context.Context) (*github.Review, error) {
		return p.client.CreateReview(ctx, owner, repo, pull, req)
	})
	if err != nil {
		return 0, publishError("create review", "", err)
	}

	p.logger.Info("posted review", "review_id", review.ID, "url", review.HTMLURL)
	return review.ID, nil
}

// HeadCommitSHA looks up the commit comments are anchored to.
func (p *CommentPublisher) HeadCommitSHA(ctx context.Context, owner, repo string, pull int) (string, error) {
	pr, err := retry.Do(ctx, p.policy, "get pull request", func(ctx context.Context) (*github.PullRequest, error) {
		return p.client.GetPullRequest(ctx, owner, repo, pull)
	})
	if err != nil {
		return "", publishError("get head commit", "", err)
	}
	sha := pr.HeadSHA()
	if sha == "" {
		return "", &PublishError{Op: "get head commit", Err: errors.New("pull request has no head SHA")}
	}
	return sha, nil
}

// FetchInstructions reads the repository instructions file at ref.
// An empty ref reads from the default branch.
func (p *CommentPublisher) FetchInstructions(ctx context.Context, owner, repo, path, ref string) (string, error) {
	content, err := retry.Do(ctx, p.policy, "fetch instructions "+path, func(ctx context.Context) (string, error) {
		return p.client.FetchFileContent(ctx, owner, repo, path, ref)
	})
	if err != nil {
		return "", &ContentFetchError{Path: path, Err: err}
	}

	p.logger.Info("loaded review instructions", "path", path, "size", len(content))
	return content, nil
}

func publishError(op, path string, err error) error {
	var exhausted *retry.ExhaustedError
	return &PublishError{
		Op:        op,
		Path:      path,
		Transient: errors.As(err, &exhausted),
		Err:       err,
	}
}

func capBody(body string) string {
	if utf8.RuneCountInString(body) <= MaxCommentLength {
		return body
	}
	return truncate.Truncate(body, MaxCommentLength, truncationNotice, truncate.PositionEnd)
}
