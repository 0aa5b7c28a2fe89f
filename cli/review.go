package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shipitai/filereviewer/app"
	"github.com/shipitai/filereviewer/config"
	"github.com/shipitai/filereviewer/github"
	"github.com/shipitai/filereviewer/review"
)

// target identifies the pull request a run reviews.
type target struct {
	eventName string
	action    string
	owner     string
	repo      string
	pull      int
	headSHA   string
}

func newReviewCmd(e *env) *cobra.Command {
	var (
		repoSlug string
		pull     int
		headSHA  string
		exclude  string
	)
	in := &config.Inputs{}

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a pull request by hand",
		Long: `Review a pull request outside GitHub Actions.

Examples:
  filereviewer review --repo acme/widgets --pr 42
  filereviewer review --repo acme/widgets --pr 42 --exclude "*.md,docs/**" --summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, ok := strings.Cut(repoSlug, "/")
			if !ok || owner == "" || repo == "" {
				return &config.ConfigurationError{Field: "repo", Err: fmt.Errorf("expected owner/name, got %q", repoSlug)}
			}
			if pull <= 0 {
				return &config.ConfigurationError{Field: "pr", Err: fmt.Errorf("a pull request number is required")}
			}

			if in.GitHubToken == "" {
				in.GitHubToken = e.getenv("GITHUB_TOKEN")
			}
			if in.GitHubAPIURL == "" {
				in.GitHubAPIURL = e.getenv("GITHUB_API_URL")
			}
			if in.ModelAPIKey == "" {
				in.ModelAPIKey = modelKeyFromEnv(e.getenv, in.ModelProvider)
			}
			in.ExcludePatterns = config.ParseExcludePatterns(exclude)
			in.ApplyDefaults()
			if err := in.Validate(); err != nil {
				return err
			}

			return runReview(cmd.Context(), e, in, target{
				eventName: github.EventPullRequest,
				owner:     owner,
				repo:      repo,
				pull:      pull,
				headSHA:   headSHA,
			}, false)
		},
	}

	f := cmd.Flags()
	f.StringVar(&repoSlug, "repo", "", "repository as owner/name")
	f.IntVar(&pull, "pr", 0, "pull request number")
	f.StringVar(&headSHA, "head-sha", "", "commit to anchor comments to (default: the pull request head)")
	f.StringVar(&exclude, "exclude", "", "comma-separated globs of files to skip")
	f.StringVar(&in.GitHubToken, "token", "", "GitHub token (default: $GITHUB_TOKEN)")
	f.StringVar(&in.ModelProvider, "provider", config.ProviderAnthropic, "model provider (anthropic, openai)")
	f.StringVar(&in.ModelName, "model", "", "model name (default depends on provider)")
	f.Float64Var(&in.ModelTemperature, "temperature", 0, "sampling temperature")
	f.StringVar(&in.InstructionsPath, "instructions", "", "repository path of a file with review guidelines")
	f.StringVar(&in.SystemProfile, "profile", config.DefaultSystemProfile, "reviewer persona")
	f.IntVar(&in.MaxConcurrency, "concurrency", config.DefaultMaxConcurrency, "files reviewed in parallel")
	f.BoolVar(&in.FailFast, "fail-fast", false, "stop at the first file that fails")
	f.BoolVar(&in.PostSummary, "summary", false, "post a summary review after the file comments")
	f.BoolVar(&in.SkipVendored, "skip-vendored", false, "skip vendored and third-party files")

	return cmd
}

func modelKeyFromEnv(getenv func(string) string, provider string) string {
	if provider == config.ProviderOpenAI {
		return getenv("OPENAI_API_KEY")
	}
	return getenv("ANTHROPIC_API_KEY")
}

// runReview builds the pipeline and runs it once. In workflow mode every
// failure is also reported as an annotation.
func runReview(ctx context.Context, e *env, in *config.Inputs, t target, workflow bool) error {
	outcome, err := execute(ctx, e, in, t)
	if outcome != nil {
		printOutcome(e.stdout, outcome)
	}
	if !workflow {
		if err != nil {
			return err
		}
		return outcome.Err()
	}

	if outcome == nil {
		if err != nil {
			workflowError(e.stdout, "", err.Error())
		}
		return err
	}
	if outcome.InstructionsErr != nil {
		workflowError(e.stdout, in.InstructionsPath, outcome.InstructionsErr.Error())
	}
	failed := outcome.Failed()
	for _, f := range failed {
		workflowError(e.stdout, f.Filename, f.Err.Error())
	}
	if outcome.SummaryErr != nil {
		workflowError(e.stdout, "", outcome.SummaryErr.Error())
	}
	if err != nil {
		// Fail-fast errors are already annotated against their file.
		if len(failed) == 0 {
			workflowError(e.stdout, "", err.Error())
		}
		return err
	}
	return outcome.Err()
}

// execute returns a nil outcome and nil error when the guard reports the
// review has already run in this process.
func execute(ctx context.Context, e *env, in *config.Inputs, t target) (*review.RunOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.guard.Started() {
		e.logger.Info("review already ran in this process, skipping")
		return nil, nil
	}

	gh, err := github.NewTokenClient(in.GitHubToken, in.GitHubAPIURL)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "github_token", Err: err}
	}
	model, err := app.NewModel(in, e.logger)
	if err != nil {
		return nil, err
	}
	orchestrator, err := app.NewOrchestrator(gh, model, in, e.logger)
	if err != nil {
		return nil, err
	}

	return orchestrator.Run(ctx, e.guard, app.RunInput(t.eventName, t.action, t.owner, t.repo, t.pull, t.headSHA, in))
}
