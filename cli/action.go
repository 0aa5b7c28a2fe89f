package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shipitai/filereviewer/config"
	"github.com/shipitai/filereviewer/github"
)

func newActionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "action",
		Short: "Run as a GitHub Action",
		Long: `Run inside a GitHub Actions workflow. Inputs are read from INPUT_* variables
and the pull request from GITHUB_EVENT_PATH. Failures are reported as
workflow error annotations and a non-zero exit status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), e)
		},
	}
}

func runAction(ctx context.Context, e *env) error {
	in, actx, err := loadAction(e.getenv)
	if err != nil {
		workflowError(e.stdout, "", err.Error())
		return err
	}

	e.logger.Info("workflow context",
		"event", actx.EventName,
		"action", actx.Action(),
		"owner", actx.Owner,
		"repo", actx.Repo,
		"pr", actx.PullNumber(),
		"sha", actx.HeadSHA(),
	)

	return runReview(ctx, e, in, target{
		eventName: actx.EventName,
		action:    actx.Action(),
		owner:     actx.Owner,
		repo:      actx.Repo,
		pull:      actx.PullNumber(),
		headSHA:   actx.HeadSHA(),
	}, true)
}

func loadAction(getenv func(string) string) (*config.Inputs, *github.ActionsContext, error) {
	in, err := config.InputsFromEnv(getenv)
	if err != nil {
		return nil, nil, err
	}
	in.ApplyDefaults()
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	actx, err := github.LoadActionsContext(getenv)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workflow context: %w", err)
	}
	return in, actx, nil
}
