package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipitai/filereviewer/retry"
)

func newTestGenerator(model Model, detector LanguageDetector) *Generator {
	return NewGenerator(detector, model, NewPrompt("persona", "house rules"), instantPolicy(), testLogger())
}

func TestGenerate(t *testing.T) {
	model := &fakeModel{texts: []string{"## Review\nLooks fine."}}
	detector := &countingDetector{}
	gen := newTestGenerator(model, detector)

	res, err := gen.Generate(context.Background(), ChangedFile{Filename: "src/app.ts", Status: StatusModified, Patch: "+let x = 1", HasPatch: true})
	require.NoError(t, err)

	assert.Equal(t, "src/app.ts", res.Filename)
	assert.Equal(t, "typescript", res.Language)
	assert.Equal(t, "## Review\nLooks fine.", res.Text)
	assert.Equal(t, 1, detector.calls)

	require.Len(t, model.calls, 1)
	assert.Equal(t, "persona", model.calls[0].System)
	assert.Contains(t, model.calls[0].Prompt, "house rules")
	assert.Contains(t, model.calls[0].Prompt, "The programming language in the git diff is typescript.")
	assert.True(t, strings.HasSuffix(model.calls[0].Prompt, "+let x = 1"))
}

func TestGenerate_LanguageNotFound(t *testing.T) {
	tests := []string{"Makefile", "a.TS", "image.png"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			model := &fakeModel{}
			gen := newTestGenerator(model, &countingDetector{})

			_, err := gen.Generate(context.Background(), ChangedFile{Filename: name, Patch: "+x", HasPatch: true})
			assert.ErrorIs(t, err, ErrLanguageNotFound)

			var langErr *LanguageNotFoundError
			require.ErrorAs(t, err, &langErr)
			assert.Equal(t, name, langErr.Filename)
			assert.Equal(t, 0, model.callCount(), "model must not be called")
		})
	}
}

func TestGenerate_EmptyLabelPassesThrough(t *testing.T) {
	model := &fakeModel{}
	gen := newTestGenerator(model, &countingDetector{})

	res, err := gen.Generate(context.Background(), ChangedFile{Filename: "notes.txt", Patch: "+x", HasPatch: true})
	require.NoError(t, err)
	assert.Equal(t, "", res.Language)
	assert.Equal(t, 1, model.callCount())
}

func TestGenerate_Retries(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		model := &fakeModel{errs: []error{errors.New("529 overloaded"), nil}, texts: []string{"", "ok"}}
		gen := newTestGenerator(model, &countingDetector{})

		res, err := gen.Generate(context.Background(), ChangedFile{Filename: "a.go", Patch: "+x", HasPatch: true})
		require.NoError(t, err)
		assert.Equal(t, "ok", res.Text)
		assert.Equal(t, 3, model.callCount())
	})

	t.Run("exhausted", func(t *testing.T) {
		boom := errors.New("500 internal error")
		model := &fakeModel{errs: []error{boom, boom, boom, boom}}
		gen := newTestGenerator(model, &countingDetector{})

		_, err := gen.Generate(context.Background(), ChangedFile{Filename: "a.go", Patch: "+x", HasPatch: true})

		var modelErr *ModelInvocationError
		require.ErrorAs(t, err, &modelErr)
		assert.Equal(t, "a.go", modelErr.Filename)

		var exhausted *retry.ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 3, exhausted.Attempts)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, model.callCount())
	})
}
