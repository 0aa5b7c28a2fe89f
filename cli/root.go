// Package cli implements the filereviewer command line: the GitHub Actions
// entry point, manual reviews and helper commands.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipitai/filereviewer/review"
)

// env abstracts process state so commands can be tested.
type env struct {
	getenv func(string) string
	stdout io.Writer
	guard  *review.RunGuard
	logger *slog.Logger
}

// Execute runs the command line against the real process environment.
// One RunGuard is shared by every command in the process, so the review body
// runs at most once even if the entry point is invoked twice.
func Execute() error {
	e := &env{
		getenv: os.Getenv,
		stdout: os.Stdout,
		guard:  review.NewRunGuard(),
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(os.Getenv)})),
	}
	return newRootCmd(e).Execute()
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "filereviewer",
		Short: "Review pull request files with a language model",
		Long: `filereviewer posts one AI-generated review comment per changed file of a
pull request. Run "filereviewer action" inside GitHub Actions, or
"filereviewer review" to review a pull request by hand.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newActionCmd(e),
		newReviewCmd(e),
		newValidateCmd(e),
		newProfilesCmd(e),
		newVersionCmd(e),
	)
	return root
}

// logLevel honours RUNNER_DEBUG, which Actions sets when debug logging is enabled.
func logLevel(getenv func(string) string) slog.Level {
	if getenv("RUNNER_DEBUG") == "1" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
