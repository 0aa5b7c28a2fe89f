package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shipitai/filereviewer/anthropic"
	"github.com/shipitai/filereviewer/config"
)

func newValidateCmd(e *env) *cobra.Command {
	var online bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check action inputs without reviewing anything",
		Long: `Read the INPUT_* variables the way "action" does and report configuration
errors. With --online the Anthropic API key is also checked with a minimal call.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := config.InputsFromEnv(e.getenv)
			if err != nil {
				return err
			}
			in.ApplyDefaults()
			if err := in.Validate(); err != nil {
				return err
			}

			if online && in.ModelProvider == config.ProviderAnthropic {
				if err := anthropic.ValidateAPIKey(cmd.Context(), in.ModelAPIKey); err != nil {
					return err
				}
			}

			fmt.Fprintf(e.stdout, "configuration ok: provider=%s model=%s profile=%s exclude=%d\n",
				in.ModelProvider, in.ModelName, in.SystemProfile, len(in.ExcludePatterns))
			return nil
		},
	}

	cmd.Flags().BoolVar(&online, "online", false, "also verify the Anthropic API key")
	return cmd
}
