package review

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aquilax/truncate"

	"github.com/shipitai/filereviewer/language"
	"github.com/shipitai/filereviewer/retry"
)

// LanguageDetector maps a filename to a language label. ok is false when
// the extension is unknown; a known extension may still map to "".
type LanguageDetector interface {
	Detect(filename string) (label string, ok bool)
}

// Model produces a completion for a system message and a user message.
type Model interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const logPreviewLength = 120

// Generator produces the review text for a single file.
type Generator struct {
	detector LanguageDetector
	model    Model
	prompt   *Prompt
	policy   retry.Policy
	logger   *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(detector LanguageDetector, model Model, prompt *Prompt, policy retry.Policy, logger *slog.Logger) *Generator {
	return &Generator{
		detector: detector,
		model:    model,
		prompt:   prompt,
		policy:   policy.WithLogger(logger),
		logger:   logger,
	}
}

// Request classifies file and builds the request sent to the model.
func (g *Generator) Request(file ChangedFile) (ReviewRequest, error) {
	label, ok := g.detector.Detect(file.Filename)
	if !ok {
		return ReviewRequest{}, &LanguageNotFoundError{
			Filename:  file.Filename,
			Extension: language.Extension(file.Filename),
		}
	}
	return ReviewRequest{
		Filename: file.Filename,
		Language: label,
		Diff:     file.Patch,
	}, nil
}

// Generate reviews one file. The model is not called when the file's
// extension is unknown.
func (g *Generator) Generate(ctx context.Context, file ChangedFile) (*ReviewResult, error) {
	req, err := g.Request(file)
	if err != nil {
		return nil, err
	}

	prompt := g.prompt.Render(req)
	text, err := retry.Do(ctx, g.policy, "generate review for "+file.Filename, func(ctx context.Context) (string, error) {
		out, err := g.model.Complete(ctx, g.prompt.System, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", ErrEmptyCompletion
		}
		return out, nil
	})
	if err != nil {
		return nil, &ModelInvocationError{Filename: file.Filename, Err: err}
	}

	g.logger.Info("generated review",
		"file", file.Filename,
		"language", req.Language,
		"length", len(text),
		"preview", truncate.Truncate(strings.ReplaceAll(text, "\n", " "), logPreviewLength, "...", truncate.PositionEnd),
	)

	return &ReviewResult{
		Filename: file.Filename,
		Language: req.Language,
		Text:     text,
	}, nil
}
