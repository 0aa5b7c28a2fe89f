package config

import (
	"context"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/shipitai/filereviewer/github"
)

// DefaultRepoConfigPath is the repository file read by the webhook server.
const DefaultRepoConfigPath = ".github/filereviewer.yml"

// ConfigParseError indicates a configuration file exists but contains invalid content.
// This is distinct from "file not found" errors, which should use default config.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("invalid config at %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// RepoConfig is the per-repository configuration checked into the reviewed repository.
type RepoConfig struct {
	// Enabled determines if the reviewer is enabled for this repository.
	// If nil, defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`
	// Exclude is a list of glob patterns for files to skip during review.
	// Example: ["vendor/**", "*.gen.go", "docs/**"]
	Exclude []string `yaml:"exclude"`
	// SystemProfile selects the reviewer persona.
	SystemProfile string `yaml:"system_profile"`
	// InstructionsFile is a repository path whose content is inserted into the prompt.
	InstructionsFile string `yaml:"instructions_file"`
	// SkipVendored drops vendored and third-party files before review.
	SkipVendored bool `yaml:"skip_vendored"`
	// PostSummary posts one review-level summary after the file comments.
	PostSummary bool `yaml:"post_summary"`
}

// IsEnabled returns true unless the repository explicitly disabled reviews.
func (c *RepoConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// DefaultRepoConfig returns the configuration used when the repository has no file.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{}
}

// FileFetcher reads a file from a repository.
type FileFetcher interface {
	FetchFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
}

// Loader loads configuration from repositories.
type Loader struct {
	client FileFetcher
}

// NewLoader creates a new config loader.
func NewLoader(client FileFetcher) *Loader {
	return &Loader{client: client}
}

// Load fetches and parses the config from a repository.
// If the config file doesn't exist, returns the default config.
// If the config file exists but is invalid, returns a ConfigParseError.
func (l *Loader) Load(ctx context.Context, owner, repo, ref string) (*RepoConfig, error) {
	content, err := l.client.FetchFileContent(ctx, owner, repo, DefaultRepoConfigPath, ref)
	if err != nil {
		if github.StatusCode(err) == http.StatusNotFound {
			return DefaultRepoConfig(), nil
		}
		return nil, fmt.Errorf("failed to fetch config: %w", err)
	}
	if content == "" {
		return DefaultRepoConfig(), nil
	}

	cfg, err := ParseRepoConfig([]byte(content))
	if err != nil {
		return nil, &ConfigParseError{Path: DefaultRepoConfigPath, Err: err}
	}
	return cfg, nil
}

// ParseRepoConfig parses a config from YAML content.
func ParseRepoConfig(content []byte) (*RepoConfig, error) {
	cfg := DefaultRepoConfig()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *RepoConfig) Validate() error {
	if c.SystemProfile != "" {
		if _, err := SystemPrompt(c.SystemProfile); err != nil {
			return err
		}
	}
	return ValidatePatterns(c.Exclude)
}

// Apply overlays the repository settings onto in. Exclusion patterns are
// appended; other fields replace the input only when set.
func (c *RepoConfig) Apply(in *Inputs) {
	in.ExcludePatterns = append(in.ExcludePatterns, c.Exclude...)
	if c.SystemProfile != "" {
		in.SystemProfile = c.SystemProfile
	}
	if c.InstructionsFile != "" {
		in.InstructionsPath = c.InstructionsFile
	}
	if c.SkipVendored {
		in.SkipVendored = true
	}
	if c.PostSummary {
		in.PostSummary = true
	}
}
