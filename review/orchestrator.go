package review

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/shipitai/filereviewer/github"
	"github.com/shipitai/filereviewer/retry"
)

// DefaultConcurrency is the number of files reviewed in parallel.
const DefaultConcurrency = 4

// Options tunes a run.
type Options struct {
	// Concurrency bounds how many files are reviewed at once.
	Concurrency int
	// FailFast aborts the remaining files on the first file failure.
	FailFast bool
	// PostSummary posts one review-level comment after the file comments.
	PostSummary bool
}

// RunInput identifies the pull request and event that triggered a run.
type RunInput struct {
	EventName        string
	Action           string
	Owner            string
	Repo             string
	PullNumber       int
	HeadSHA          string
	ExcludePatterns  []string
	InstructionsPath string
	// InstructionsRef is the ref the instructions file is read from.
	// Empty reads from the default branch.
	InstructionsRef string
}

// Orchestrator drives a run: fetch files, filter, then review and comment on
// each file.
type Orchestrator struct {
	fetcher      *SourceFetcher
	publisher    *CommentPublisher
	detector     LanguageDetector
	model        Model
	systemPrompt string
	policy       retry.Policy
	opts         Options
	logger       *slog.Logger
}

// NewOrchestrator creates an Orchestrator using the default retry policy.
func NewOrchestrator(fetcher *SourceFetcher, publisher *CommentPublisher, detector LanguageDetector, model Model, systemPrompt string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:      fetcher,
		publisher:    publisher,
		detector:     detector,
		model:        model,
		systemPrompt: systemPrompt,
		policy:       retry.Default(),
		opts:         Options{Concurrency: DefaultConcurrency},
		logger:       logger,
	}
}

// SetOptions replaces the run options.
func (o *Orchestrator) SetOptions(opts Options) {
	o.opts = opts
}

// SetRetryPolicy overrides the retry policy used for model calls.
func (o *Orchestrator) SetRetryPolicy(p retry.Policy) {
	o.policy = p
}

// IsSupportedEvent reports whether an event can start a review.
func IsSupportedEvent(eventName, action string) bool {
	return eventName == github.EventPullRequest && github.IsReviewableAction(action)
}

// Run executes the review once per guard. A second call with the same guard
// returns (nil, nil) without doing anything.
//
// The returned error is set when the run could not proceed at all (unsupported
// event, file listing or head lookup failure, or the first file failure in
// fail-fast mode). Per-file failures are reported in the outcome; use
// RunOutcome.Err to get every failure.
func (o *Orchestrator) Run(ctx context.Context, guard *RunGuard, in *RunInput) (*RunOutcome, error) {
	if guard != nil && !guard.TryStart() {
		o.logger.Info("review already ran in this process, skipping")
		return nil, nil
	}

	outcome := &RunOutcome{State: StateIdle}
	if !IsSupportedEvent(in.EventName, in.Action) {
		o.transition(outcome, StateUnsupported)
		return outcome, &UnsupportedEventError{EventName: in.EventName, Action: in.Action}
	}

	logger := o.logger.With("owner", in.Owner, "repo", in.Repo, "pr", in.PullNumber)
	logger.Info("starting review", "event", in.EventName, "action", in.Action)

	sha := in.HeadSHA
	if sha == "" {
		var err error
		if sha, err = o.publisher.HeadCommitSHA(ctx, in.Owner, in.Repo, in.PullNumber); err != nil {
			return o.fail(outcome, err)
		}
		logger.Info("resolved head commit", "sha", sha)
	}
	outcome.HeadSHA = sha

	var instructions string
	if in.InstructionsPath != "" {
		var err error
		instructions, err = o.publisher.FetchInstructions(ctx, in.Owner, in.Repo, in.InstructionsPath, in.InstructionsRef)
		if err != nil {
			logger.Error("failed to load instructions, continuing without them", "path", in.InstructionsPath, "error", err)
			outcome.InstructionsErr = err
			instructions = ""
		}
	}

	o.transition(outcome, StateFetchingFiles)
	files, err := o.fetcher.ListReviewableFiles(ctx, in.Owner, in.Repo, in.PullNumber, in.ExcludePatterns)
	if err != nil {
		return o.fail(outcome, err)
	}

	o.transition(outcome, StateFiltering)
	withPatch := lo.Filter(files, func(f ChangedFile, _ int) bool { return f.HasDiff() })
	if dropped := len(files) - len(withPatch); dropped > 0 {
		logger.Info("skipping files without a patch", "count", dropped)
	}
	files = withPatch

	outcome.Files = lo.Map(files, func(f ChangedFile, _ int) FileOutcome {
		return FileOutcome{Filename: f.Filename, Stage: StagePending}
	})

	o.transition(outcome, StateReviewing)
	gen := NewGenerator(o.detector, o.model, NewPrompt(o.systemPrompt, instructions), o.policy, o.logger)
	runErr := o.reviewFiles(ctx, gen, in, sha, files, outcome.Files)

	for _, f := range outcome.Failed() {
		logger.Error("file review failed", "file", f.Filename, "stage", f.Stage, "error", f.Err)
	}

	if o.opts.PostSummary && len(files) > 0 && ctx.Err() == nil {
		outcome.ReviewID, outcome.SummaryErr = o.publisher.PublishReview(ctx, in.Owner, in.Repo, in.PullNumber, sha, Summary(outcome, files))
	}

	if runErr != nil || outcome.Err() != nil {
		o.transition(outcome, StateFailed)
	} else {
		o.transition(outcome, StateDone)
	}

	logger.Info("review finished",
		"state", outcome.State,
		"files", len(outcome.Files),
		"commented", len(outcome.Succeeded()),
		"failed", len(outcome.Failed()),
	)

	return outcome, runErr
}

// reviewFiles fans the files out over a bounded worker pool. Files are
// dispatched in order and each worker writes only its own slot of results.
func (o *Orchestrator) reviewFiles(ctx context.Context, gen *Generator, in *RunInput, sha string, files []ChangedFile, results []FileOutcome) error {
	runCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	sem := semaphore.NewWeighted(int64(o.concurrency()))
	var g errgroup.Group

	for i, file := range files {
		if err := sem.Acquire(runCtx, 1); err != nil || runCtx.Err() != nil {
			if err == nil {
				sem.Release(1)
			}
			for j := i; j < len(files); j++ {
				results[j] = skipped(ctx, files[j])
			}
			break
		}

		i, file := i, file
		g.Go(func() error {
			defer sem.Release(1)

			res := o.reviewFile(runCtx, gen, in, sha, file)
			if res.Err != nil && ctx.Err() == nil && runCtx.Err() != nil && errors.Is(res.Err, context.Canceled) {
				// Aborted because another file failed first.
				res = skipped(ctx, file)
			}
			results[i] = res

			if res.Err != nil && o.opts.FailFast {
				abort(res.Err)
				return res.Err
			}
			return nil
		})
	}

	return g.Wait()
}

// reviewFile generates the review for one file and publishes it. Publishing
// starts only after generation succeeded.
func (o *Orchestrator) reviewFile(ctx context.Context, gen *Generator, in *RunInput, sha string, file ChangedFile) FileOutcome {
	out := FileOutcome{Filename: file.Filename, Stage: StageReviewing}

	result, err := gen.Generate(ctx, file)
	if err != nil {
		out.Err = err
		return out
	}
	out.Language = result.Language

	out.Stage = StagePublishing
	id, err := o.publisher.PublishFileComment(ctx, in.Owner, in.Repo, in.PullNumber, sha, file.Filename, result.Text)
	if err != nil {
		out.Err = err
		return out
	}

	out.CommentID = id
	out.Stage = StageDone
	return out
}

func skipped(ctx context.Context, file ChangedFile) FileOutcome {
	return FileOutcome{Filename: file.Filename, Stage: StageSkipped, Err: ctx.Err()}
}

func (o *Orchestrator) concurrency() int {
	if o.opts.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return o.opts.Concurrency
}

func (o *Orchestrator) transition(outcome *RunOutcome, to State) {
	o.logger.Debug("state transition", "from", outcome.State, "to", to)
	outcome.State = to
}

func (o *Orchestrator) fail(outcome *RunOutcome, err error) (*RunOutcome, error) {
	o.transition(outcome, StateFailed)
	o.logger.Error("review failed", "error", err)
	return outcome, err
}
