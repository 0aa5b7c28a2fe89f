// Command filereviewer reviews pull request files with a language model.
// Inside GitHub Actions run "filereviewer action".
package main

import (
	"os"

	"github.com/shipitai/filereviewer/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
