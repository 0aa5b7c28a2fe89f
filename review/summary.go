package review

import (
	"fmt"
	"strings"

	"github.com/aquilax/truncate"
	"github.com/dustin/go-humanize"
	"github.com/gertd/go-pluralize"
	"github.com/samber/lo"
)

const (
	summaryTitle       = "### File review summary"
	summaryErrorLength = 100
	shortSHALength     = 7
)

// Summary renders the review-level comment posted after the file comments.
func Summary(outcome *RunOutcome, files []ChangedFile) string {
	pc := pluralize.NewClient()

	additions := lo.SumBy(files, func(f ChangedFile) int { return f.Additions })
	deletions := lo.SumBy(files, func(f ChangedFile) int { return f.Deletions })

	var sb strings.Builder
	sb.WriteString(summaryTitle)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Reviewed %s", pc.Pluralize("file", len(outcome.Files), true))
	if sha := shortSHA(outcome.HeadSHA); sha != "" {
		fmt.Fprintf(&sb, " at `%s`", sha)
	}
	fmt.Fprintf(&sb, " (+%s / -%s %s).\n\n",
		humanize.Comma(int64(additions)),
		humanize.Comma(int64(deletions)),
		pc.Pluralize("line", additions+deletions, false),
	)

	commented := len(outcome.Succeeded())
	failed := len(outcome.Failed())
	skipped := len(outcome.Files) - commented - failed
	fmt.Fprintf(&sb, "- %s commented\n", pc.Pluralize("file", commented, true))
	if failed > 0 {
		fmt.Fprintf(&sb, "- %s failed\n", pc.Pluralize("file", failed, true))
	}
	if skipped > 0 {
		fmt.Fprintf(&sb, "- %s skipped\n", pc.Pluralize("file", skipped, true))
	}
	if outcome.InstructionsErr != nil {
		sb.WriteString("- repository instructions could not be loaded; the default prompt was used\n")
	}

	if len(outcome.Files) == 0 {
		return sb.String()
	}

	sb.WriteString("\n| File | Language | Result |\n|---|---|---|\n")
	for _, f := range outcome.Files {
		lang := f.Language
		if lang == "" {
			lang = "-"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", f.Filename, lang, fileResult(f))
	}

	return sb.String()
}

func fileResult(f FileOutcome) string {
	switch {
	case f.Err != nil:
		msg := strings.ReplaceAll(f.Err.Error(), "|", "\\|")
		msg = strings.ReplaceAll(msg, "\n", " ")
		return "failed: " + truncate.Truncate(msg, summaryErrorLength, "...", truncate.PositionEnd)
	case f.Stage == StageDone:
		return "commented"
	default:
		return string(f.Stage)
	}
}

func shortSHA(sha string) string {
	if len(sha) > shortSHALength {
		return sha[:shortSHALength]
	}
	return sha
}
