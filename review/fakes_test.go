package review

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shipitai/filereviewer/github"
	"github.com/shipitai/filereviewer/language"
	"github.com/shipitai/filereviewer/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// instantPolicy retries like the default policy but never sleeps.
func instantPolicy() retry.Policy {
	p := retry.Default()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

type postedComment struct {
	Pull     int
	CommitID string
	Path     string
	Body     string
}

// fakeGitHub implements FileLister and PullRequestWriter in memory.
type fakeGitHub struct {
	mu sync.Mutex

	files        []github.PullRequestFile
	listErrs     []error
	headSHA      string
	contents     map[string]string
	contentErr   error
	commentErrs  map[string]error
	reviewErr    error
	nextID       int64
	listCalls    int
	prCalls      int
	contentCalls int
	comments     []postedComment
	reviews      []*github.ReviewRequest
}

func (f *fakeGitHub) ListPullRequestFiles(ctx context.Context, owner, repo string, prNumber int) ([]github.PullRequestFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		return nil, err
	}
	return f.files, nil
}

func (f *fakeGitHub) GetPullRequest(ctx context.Context, owner, repo string, prNumber int) (*github.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prCalls++
	return &github.PullRequest{Number: prNumber, Head: &github.Ref{SHA: f.headSHA}}, nil
}

func (f *fakeGitHub) FetchFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contentCalls++
	if f.contentErr != nil {
		return "", f.contentErr
	}
	return f.contents[path], nil
}

func (f *fakeGitHub) CreateFileComment(ctx context.Context, owner, repo string, prNumber int, commitID, path, body string) (*github.PullRequestComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.commentErrs[path]; err != nil {
		return nil, err
	}
	f.nextID++
	f.comments = append(f.comments, postedComment{Pull: prNumber, CommitID: commitID, Path: path, Body: body})
	return &github.PullRequestComment{ID: f.nextID, Path: path, CommitID: commitID, SubjectType: github.SubjectTypeFile, Body: body}, nil
}

func (f *fakeGitHub) CreateReview(ctx context.Context, owner, repo string, prNumber int, review *github.ReviewRequest) (*github.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	f.nextID++
	f.reviews = append(f.reviews, review)
	return &github.Review{ID: f.nextID, Body: review.Body}, nil
}

// countingDetector wraps the real classifier and counts lookups.
type countingDetector struct {
	mu    sync.Mutex
	calls int
}

func (d *countingDetector) Detect(filename string) (string, bool) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return language.Detect(filename)
}

type modelCall struct {
	System string
	Prompt string
}

// fakeModel returns scripted results, then "review of <n>" for every call.
type fakeModel struct {
	mu    sync.Mutex
	errs  []error
	texts []string
	calls []modelCall
	block chan struct{}
}

func (m *fakeModel) Complete(ctx context.Context, system, prompt string) (string, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, modelCall{System: system, Prompt: prompt})
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return "", err
		}
	}
	if len(m.texts) > 0 {
		text := m.texts[0]
		m.texts = m.texts[1:]
		return text, nil
	}
	return "looks good", nil
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func prFile(name, status, patch string) github.PullRequestFile {
	return github.PullRequestFile{
		Filename:  name,
		Status:    status,
		Patch:     patch,
		HasPatch:  patch != "",
		Additions: 1,
		Deletions: 1,
	}
}
