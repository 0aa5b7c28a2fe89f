// Package review runs file-by-file pull request reviews: it selects the
// changed files, asks a language model for one review per file and posts
// each review as a file-level comment.
package review

import "strings"

const instructionsPrefix = `Your task is to review a Pull Request. You will receive a git diff.
Review it and suggest any improvements in code quality, maintainability, readability, performance, security, etc. Identify any potential bugs or security vulnerabilities. Check it adheres to the following coding standards and guidelines:`

const instructionsSuffix = `Write your reply and examples in GitHub Markdown format.
The programming language in the git diff is {lang}.
    git diff to review
    {diff}`

// Prompt is the system message plus the instruction template for one run.
// It is read-only once built and safe to share between workers.
type Prompt struct {
	System   string
	Template string
}

// NewPrompt builds the prompt from a persona and the repository instructions.
// Empty instructions leave just the fixed prefix and suffix.
func NewPrompt(system, instructions string) *Prompt {
	parts := []string{instructionsPrefix}
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		parts = append(parts, instructions)
	}
	parts = append(parts, instructionsSuffix)

	return &Prompt{
		System:   system,
		Template: strings.Join(parts, "\n"),
	}
}

// Render substitutes {lang} and {diff} for one file. Substitution is a single
// pass, so placeholders inside the diff itself are left alone.
func (p *Prompt) Render(req ReviewRequest) string {
	return strings.NewReplacer("{lang}", req.Language, "{diff}", req.Diff).Replace(p.Template)
}
