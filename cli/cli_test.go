package cli

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipitai/filereviewer/config"
	"github.com/shipitai/filereviewer/review"
)

func testEnv(vars map[string]string) (*env, *bytes.Buffer) {
	var out bytes.Buffer
	return &env{
		getenv: func(k string) string { return vars[k] },
		stdout: &out,
		guard:  review.NewRunGuard(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, &out
}

func run(e *env, args ...string) error {
	cmd := newRootCmd(e)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestRootCommand_Subcommands(t *testing.T) {
	e, _ := testEnv(nil)
	root := newRootCmd(e)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"action", "review", "validate", "profiles", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "100%25 done%0Anext%0Dline", escapeData("100% done\nnext\rline"))
	assert.Equal(t, "a%3Ab%2Cc", escapeProperty("a:b,c"))
}

func TestWorkflowError(t *testing.T) {
	var out bytes.Buffer
	workflowError(&out, "", "boom")
	workflowError(&out, "src/a.go", "line1\nline2")
	assert.Equal(t, "::error::boom\n::error file=src/a.go::line1%0Aline2\n", out.String())
}

func TestPrintOutcome(t *testing.T) {
	var out bytes.Buffer
	printOutcome(&out, &review.RunOutcome{
		State: review.StateFailed,
		Files: []review.FileOutcome{
			{Filename: "a.go", Stage: review.StageDone},
			{Filename: "b.go", Stage: review.StageReviewing, Err: errors.New("model down")},
			{Filename: "c.go", Stage: review.StageSkipped},
		},
	})

	got := out.String()
	assert.Contains(t, got, "ok       a.go")
	assert.Contains(t, got, "FAILED   b.go")
	assert.Contains(t, got, "skipped  c.go")
	assert.Contains(t, got, "failed: 1 file reviewed, 1 failed")
}

func TestProfilesCommand(t *testing.T) {
	e, out := testEnv(nil)
	require.NoError(t, run(e, "profiles"))
	assert.Contains(t, out.String(), config.DefaultSystemProfile)
}

func TestVersionCommand(t *testing.T) {
	e, out := testEnv(nil)
	require.NoError(t, run(e, "version"))
	assert.True(t, strings.HasPrefix(out.String(), "filereviewer dev"))
}

func TestValidateCommand(t *testing.T) {
	e, out := testEnv(map[string]string{
		"INPUT_GITHUB_TOKEN":      "ghs_x",
		"INPUT_ANTHROPIC_API_KEY": "sk-ant-x",
		"INPUT_EXCLUDE_FILES":     "*.md, docs/**",
	})
	require.NoError(t, run(e, "validate"))
	assert.Contains(t, out.String(), "provider=anthropic")
	assert.Contains(t, out.String(), "exclude=2")

	e, _ = testEnv(map[string]string{"INPUT_ANTHROPIC_API_KEY": "sk-ant-x"})
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, run(e, "validate"), &cfgErr)
	assert.Equal(t, "github_token", cfgErr.Field)
}

func TestActionCommand_ConfigurationError(t *testing.T) {
	e, out := testEnv(map[string]string{"GITHUB_EVENT_NAME": "pull_request"})

	err := run(e, "action")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "::error::invalid configuration github_token"))
}

func TestActionCommand_UnsupportedEvent(t *testing.T) {
	e, out := testEnv(map[string]string{
		"INPUT_GITHUB_TOKEN":      "ghs_x",
		"INPUT_ANTHROPIC_API_KEY": "sk-ant-x",
		"GITHUB_EVENT_NAME":       "push",
		"GITHUB_REPOSITORY":       "acme/widgets",
	})

	err := run(e, "action")
	var unsupported *review.UnsupportedEventError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "push", unsupported.EventName)
	assert.Contains(t, out.String(), "::error::this action only works on pull_request events. Got: push")

	// The guard is spent; a second invocation in the same process is a no-op.
	out.Reset()
	require.NoError(t, run(e, "action"))
	assert.Empty(t, out.String())
}

func TestActionCommand_ListingFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/7/files", r.URL.Path)
		assert.Equal(t, "Bearer ghs_x", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Bad credentials"}`))
	}))
	defer server.Close()

	eventPath := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(eventPath, []byte(`{
		"action": "opened",
		"number": 7,
		"pull_request": {"number": 7, "head": {"sha": "abc1234def"}},
		"repository": {"name": "widgets", "owner": {"login": "acme"}}
	}`), 0o600))

	e, out := testEnv(map[string]string{
		"INPUT_GITHUB_TOKEN":      "ghs_x",
		"INPUT_ANTHROPIC_API_KEY": "sk-ant-x",
		"GITHUB_EVENT_NAME":       "pull_request",
		"GITHUB_EVENT_PATH":       eventPath,
		"GITHUB_API_URL":          server.URL,
	})

	err := run(e, "action")
	var fetchErr *review.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.False(t, fetchErr.Transient)
	assert.Contains(t, out.String(), "::error::")
}

func TestReviewCommand_FlagValidation(t *testing.T) {
	e, _ := testEnv(map[string]string{"GITHUB_TOKEN": "ghs_x", "ANTHROPIC_API_KEY": "sk-ant-x"})

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, run(e, "review", "--repo", "widgets", "--pr", "1"), &cfgErr)
	assert.Equal(t, "repo", cfgErr.Field)

	require.ErrorAs(t, run(e, "review", "--repo", "acme/widgets"), &cfgErr)
	assert.Equal(t, "pr", cfgErr.Field)

	require.ErrorAs(t, run(e, "review", "--repo", "acme/widgets", "--pr", "1", "--exclude", "[bad"), &cfgErr)
	assert.Equal(t, "exclude_files", cfgErr.Field)
}

func TestModelKeyFromEnv(t *testing.T) {
	getenv := func(k string) string {
		return map[string]string{"ANTHROPIC_API_KEY": "a", "OPENAI_API_KEY": "o"}[k]
	}
	assert.Equal(t, "a", modelKeyFromEnv(getenv, config.ProviderAnthropic))
	assert.Equal(t, "o", modelKeyFromEnv(getenv, config.ProviderOpenAI))
}

func TestReviewCommand_GuardAlreadySpent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()

	e, out := testEnv(map[string]string{
		"GITHUB_TOKEN":      "ghs_x",
		"GITHUB_API_URL":    server.URL,
		"ANTHROPIC_API_KEY": "sk-ant-x",
	})
	require.True(t, e.guard.TryStart())

	require.NoError(t, run(e, "review", "--repo", "acme/widgets", "--pr", "3"))
	assert.Empty(t, out.String())
}
