package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/gertd/go-pluralize"

	"github.com/shipitai/filereviewer/review"
)

// printOutcome writes one line per file and a totals line.
func printOutcome(w io.Writer, outcome *review.RunOutcome) {
	pc := pluralize.NewClient()

	for _, f := range outcome.Files {
		status := "ok"
		switch {
		case f.Err != nil:
			status = "FAILED"
		case f.Stage != review.StageDone:
			status = string(f.Stage)
		}
		fmt.Fprintf(w, "%-8s %s\n", status, f.Filename)
	}
	fmt.Fprintf(w, "%s: %s reviewed, %d failed\n",
		outcome.State,
		pc.Pluralize("file", len(outcome.Succeeded()), true),
		len(outcome.Failed()),
	)
}

// workflowError emits an Actions ::error:: command. file may be empty.
func workflowError(w io.Writer, file, msg string) {
	if file != "" {
		fmt.Fprintf(w, "::error file=%s::%s\n", escapeProperty(file), escapeData(msg))
		return
	}
	fmt.Fprintf(w, "::error::%s\n", escapeData(msg))
}

func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

func escapeProperty(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C").Replace(s)
}
