// Package app wires configuration, GitHub access and a model client into a
// ready-to-run review orchestrator. It is shared by the CLI and the webhook
// server.
package app

import (
	"fmt"
	"log/slog"

	"github.com/shipitai/filereviewer/anthropic"
	"github.com/shipitai/filereviewer/config"
	"github.com/shipitai/filereviewer/language"
	"github.com/shipitai/filereviewer/openai"
	"github.com/shipitai/filereviewer/retry"
	"github.com/shipitai/filereviewer/review"
)

// GitHubAPI is the GitHub surface a run needs. *github.Client implements it.
type GitHubAPI interface {
	review.FileLister
	review.PullRequestWriter
}

// NewModel builds the model client for the configured provider.
func NewModel(in *config.Inputs, logger *slog.Logger) (review.Model, error) {
	switch in.ModelProvider {
	case config.ProviderAnthropic:
		logger.Info("using Anthropic model", "model", in.ModelName, "key_hint", anthropic.KeyHint(in.ModelAPIKey))
		return anthropic.NewClient(in.ModelAPIKey, in.ModelName, in.ModelTemperature, logger), nil
	case config.ProviderOpenAI:
		logger.Info("using OpenAI model", "model", in.ModelName)
		return openai.NewClient(in.ModelAPIKey, in.ModelName, in.ModelTemperature, logger), nil
	default:
		return nil, &config.ConfigurationError{
			Field: "model_provider",
			Err:   fmt.Errorf("unknown provider %q", in.ModelProvider),
		}
	}
}

// NewOrchestrator builds an orchestrator for one set of inputs.
func NewOrchestrator(gh GitHubAPI, model review.Model, in *config.Inputs, logger *slog.Logger) (*review.Orchestrator, error) {
	system, err := config.SystemPrompt(in.SystemProfile)
	if err != nil {
		return nil, err
	}

	policy := retry.Default()

	fetcher := review.NewSourceFetcher(gh, policy, logger)
	fetcher.SetSkipVendored(in.SkipVendored)

	o := review.NewOrchestrator(
		fetcher,
		review.NewCommentPublisher(gh, policy, logger),
		language.NewClassifier(),
		model,
		system,
		logger,
	)
	o.SetOptions(review.Options{
		Concurrency: in.MaxConcurrency,
		FailFast:    in.FailFast,
		PostSummary: in.PostSummary,
	})

	return o, nil
}

// RunInput builds the orchestrator input for a pull request event.
func RunInput(eventName, action, owner, repo string, pull int, headSHA string, in *config.Inputs) *review.RunInput {
	return &review.RunInput{
		EventName:        eventName,
		Action:           action,
		Owner:            owner,
		Repo:             repo,
		PullNumber:       pull,
		HeadSHA:          headSHA,
		ExcludePatterns:  in.ExcludePatterns,
		InstructionsPath: in.InstructionsPath,
	}
}
