package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// ProviderAnthropic selects the Anthropic Messages API.
	ProviderAnthropic = "anthropic"
	// ProviderOpenAI selects the OpenAI chat completions API.
	ProviderOpenAI = "openai"

	// DefaultAnthropicModel is the Claude model used when model_name is empty.
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	// DefaultOpenAIModel is the OpenAI model used when model_name is empty.
	DefaultOpenAIModel = "gpt-4o"

	// DefaultMaxConcurrency bounds how many files are reviewed at once.
	DefaultMaxConcurrency = 4
)

// Inputs holds the run-scoped settings supplied by the workflow or CLI.
type Inputs struct {
	GitHubToken      string
	GitHubAPIURL     string
	ModelProvider    string
	ModelAPIKey      string
	ModelName        string
	ModelTemperature float64
	ExcludePatterns  []string
	InstructionsPath string
	SystemProfile    string
	MaxConcurrency   int
	FailFast         bool
	PostSummary      bool
	SkipVendored     bool
}

// InputsFromEnv reads action inputs the way the Actions runner exposes them:
// an input named exclude_files is available as INPUT_EXCLUDE_FILES.
func InputsFromEnv(getenv func(string) string) (*Inputs, error) {
	input := func(name string) string {
		return strings.TrimSpace(getenv("INPUT_" + strings.ToUpper(name)))
	}
	first := func(names ...string) string {
		for _, n := range names {
			if v := input(n); v != "" {
				return v
			}
		}
		return ""
	}

	in := &Inputs{
		GitHubToken:      first("github_token", "api_token"),
		GitHubAPIURL:     getenv("GITHUB_API_URL"),
		ModelProvider:    strings.ToLower(input("model_provider")),
		ModelName:        input("model_name"),
		ExcludePatterns:  ParseExcludePatterns(input("exclude_files")),
		InstructionsPath: input("instructions_file_path"),
		SystemProfile:    input("system_profile"),
	}

	if in.ModelProvider == "" {
		in.ModelProvider = ProviderAnthropic
		if input("openai_api_key") != "" && input("anthropic_api_key") == "" {
			in.ModelProvider = ProviderOpenAI
		}
	}
	switch in.ModelProvider {
	case ProviderOpenAI:
		in.ModelAPIKey = first("openai_api_key", "model_api_key")
	default:
		in.ModelAPIKey = first("anthropic_api_key", "model_api_key")
	}

	var err error
	if in.ModelTemperature, err = parseFloat("model_temperature", input("model_temperature")); err != nil {
		return nil, err
	}
	if in.MaxConcurrency, err = parseInt("max_concurrency", input("max_concurrency")); err != nil {
		return nil, err
	}
	if in.FailFast, err = parseBool("fail_fast", input("fail_fast")); err != nil {
		return nil, err
	}
	if in.PostSummary, err = parseBool("post_summary", input("post_summary")); err != nil {
		return nil, err
	}
	if in.SkipVendored, err = parseBool("skip_vendored", input("skip_vendored")); err != nil {
		return nil, err
	}

	return in, nil
}

// ParseExcludePatterns splits a comma-separated glob list, trimming each entry
// and dropping empty ones.
func ParseExcludePatterns(s string) []string {
	var patterns []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// ApplyDefaults fills in optional settings that were left empty.
func (in *Inputs) ApplyDefaults() {
	if in.ModelProvider == "" {
		in.ModelProvider = ProviderAnthropic
	}
	if in.ModelName == "" {
		if in.ModelProvider == ProviderOpenAI {
			in.ModelName = DefaultOpenAIModel
		} else {
			in.ModelName = DefaultAnthropicModel
		}
	}
	if in.SystemProfile == "" {
		in.SystemProfile = DefaultSystemProfile
	}
	if in.MaxConcurrency <= 0 {
		in.MaxConcurrency = DefaultMaxConcurrency
	}
}

// Validate checks the inputs. It must pass before any network call is made.
func (in *Inputs) Validate() error {
	if in.GitHubToken == "" {
		return &ConfigurationError{Field: "github_token", Err: errors.New("a GitHub token is required")}
	}
	switch in.ModelProvider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return &ConfigurationError{
			Field: "model_provider",
			Err:   fmt.Errorf("unknown provider %q (must be %q or %q)", in.ModelProvider, ProviderAnthropic, ProviderOpenAI),
		}
	}
	if in.ModelAPIKey == "" {
		return &ConfigurationError{Field: in.ModelProvider + "_api_key", Err: errors.New("a model API key is required")}
	}
	maxTemperature := 2.0
	if in.ModelProvider == ProviderAnthropic {
		maxTemperature = 1.0
	}
	if in.ModelTemperature < 0 || in.ModelTemperature > maxTemperature {
		return &ConfigurationError{
			Field: "model_temperature",
			Err:   fmt.Errorf("%v is outside [0, %v] for %s", in.ModelTemperature, maxTemperature, in.ModelProvider),
		}
	}
	if _, err := SystemPrompt(in.SystemProfile); err != nil {
		return err
	}
	return ValidatePatterns(in.ExcludePatterns)
}

// ValidatePatterns rejects malformed exclusion globs.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return &ConfigurationError{Field: "exclude_files", Err: fmt.Errorf("invalid glob %q", p)}
		}
	}
	return nil
}

func parseFloat(field, v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ConfigurationError{Field: field, Err: err}
	}
	return f, nil
}

func parseInt(field, v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigurationError{Field: field, Err: err}
	}
	return n, nil
}

func parseBool(field, v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ConfigurationError{Field: field, Err: err}
	}
	return b, nil
}
