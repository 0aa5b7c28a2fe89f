package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shipitai/filereviewer/config"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(e.stdout, "filereviewer %s (commit %s)\n", version, commit)
		},
	}
}

func newProfilesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List reviewer personas accepted by system_profile",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(e.stdout, strings.Join(config.ProfileNames(), "\n"))
		},
	}
}
