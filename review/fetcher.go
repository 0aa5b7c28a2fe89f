package review

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"

	"github.com/shipitai/filereviewer/config"
	"github.com/shipitai/filereviewer/github"
	"github.com/shipitai/filereviewer/language"
	"github.com/shipitai/filereviewer/retry"
)

// FileLister lists the files changed by a pull request.
type FileLister interface {
	ListPullRequestFiles(ctx context.Context, owner, repo string, prNumber int) ([]github.PullRequestFile, error)
}

// SourceFetcher lists the changed files of a pull request that should be reviewed.
type SourceFetcher struct {
	client       FileLister
	policy       retry.Policy
	skipVendored bool
	logger       *slog.Logger
}

// NewSourceFetcher creates a SourceFetcher.
func NewSourceFetcher(client FileLister, policy retry.Policy, logger *slog.Logger) *SourceFetcher {
	return &SourceFetcher{
		client: client,
		policy: policy.WithLogger(logger),
		logger: logger,
	}
}

// SetSkipVendored drops vendored and generated third-party files before review.
func (f *SourceFetcher) SetSkipVendored(skip bool) {
	f.skipVendored = skip
}

// ListReviewableFiles fetches every changed file, then drops files matching any
// exclusion pattern and files whose status is not added, modified or changed.
// Upstream order is preserved.
func (f *SourceFetcher) ListReviewableFiles(ctx context.Context, owner, repo string, pull int, patterns []string) ([]ChangedFile, error) {
	if err := config.ValidatePatterns(patterns); err != nil {
		return nil, err
	}

	raw, err := retry.Do(ctx, f.policy, "list pull request files", func(ctx context.Context) ([]github.PullRequestFile, error) {
		return f.client.ListPullRequestFiles(ctx, owner, repo, pull)
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		return nil, &FetchError{
			Owner:     owner,
			Repo:      repo,
			Pull:      pull,
			Transient: errors.As(err, &exhausted),
			Err:       err,
		}
	}

	files := lo.Map(raw, func(pf github.PullRequestFile, _ int) ChangedFile {
		return changedFileFromGitHub(pf)
	})
	f.logger.Info("fetched pull request files",
		"count", len(files),
		"files", filenames(files),
	)

	files = Exclude(files, patterns)
	if f.skipVendored {
		files = lo.Reject(files, func(cf ChangedFile, _ int) bool {
			return language.IsVendored(cf.Filename)
		})
	}
	files = FilterByStatus(files)

	f.logger.Info("files selected for review",
		"count", len(files),
		"files", filenames(files),
		"exclude_patterns", patterns,
	)

	return files, nil
}

// Exclude drops every file whose name matches at least one pattern.
func Exclude(files []ChangedFile, patterns []string) []ChangedFile {
	if len(patterns) == 0 {
		return files
	}
	return lo.Reject(files, func(cf ChangedFile, _ int) bool {
		return MatchesAny(cf.Filename, patterns)
	})
}

// FilterByStatus keeps only added, modified and changed files.
func FilterByStatus(files []ChangedFile) []ChangedFile {
	return lo.Filter(files, func(cf ChangedFile, _ int) bool {
		return cf.Status.Reviewable()
	})
}

// MatchesAny reports whether name matches one of the glob patterns. A pattern
// without a slash is also matched against the final path segment, so "*.md"
// excludes "docs/x.md".
func MatchesAny(name string, patterns []string) bool {
	base := path.Base(name)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
	}
	return false
}

func filenames(files []ChangedFile) []string {
	return lo.Map(files, func(cf ChangedFile, _ int) string {
		return cf.Filename
	})
}
