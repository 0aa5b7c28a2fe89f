package review

import (
	"errors"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/shipitai/filereviewer/github"
)

// FileStatus is the change status GitHub reports for a pull request file.
type FileStatus string

const (
	StatusAdded     FileStatus = "added"
	StatusModified  FileStatus = "modified"
	StatusChanged   FileStatus = "changed"
	StatusRemoved   FileStatus = "removed"
	StatusRenamed   FileStatus = "renamed"
	StatusCopied    FileStatus = "copied"
	StatusUnchanged FileStatus = "unchanged"
)

// Reviewable reports whether files with this status are sent for review.
func (s FileStatus) Reviewable() bool {
	switch s {
	case StatusAdded, StatusModified, StatusChanged:
		return true
	}
	return false
}

// ChangedFile is a file changed in the pull request under review.
type ChangedFile struct {
	Filename  string
	Status    FileStatus
	Patch     string
	HasPatch  bool
	Additions int
	Deletions int
}

// HasDiff reports whether the file carries a non-empty patch.
func (f ChangedFile) HasDiff() bool {
	return f.HasPatch && f.Patch != ""
}

func changedFileFromGitHub(f github.PullRequestFile) ChangedFile {
	return ChangedFile{
		Filename:  f.Filename,
		Status:    FileStatus(f.Status),
		Patch:     f.Patch,
		HasPatch:  f.HasPatch,
		Additions: f.Additions,
		Deletions: f.Deletions,
	}
}

// ReviewRequest is the unit of work sent to the model for one file.
type ReviewRequest struct {
	Filename string
	Language string
	Diff     string
}

// ReviewResult holds the model output for one file.
type ReviewResult struct {
	Filename string
	Language string
	Text     string
}

// State is a step of the orchestrator state machine.
type State string

const (
	StateIdle          State = "idle"
	StateFetchingFiles State = "fetching_files"
	StateFiltering     State = "filtering"
	StateReviewing     State = "reviewing"
	StateDone          State = "done"
	StateFailed        State = "failed"
	StateUnsupported   State = "unsupported"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateUnsupported
}

// FileStage records how far a file got through review and publishing.
type FileStage string

const (
	StagePending    FileStage = "pending"
	StageReviewing  FileStage = "reviewing"
	StagePublishing FileStage = "publishing"
	StageDone       FileStage = "done"
	StageSkipped    FileStage = "skipped"
)

// FileOutcome is the result of processing one file.
type FileOutcome struct {
	Filename  string
	Language  string
	Stage     FileStage
	CommentID int64
	Err       error
}

// RunOutcome aggregates the per-file outcomes of one run.
type RunOutcome struct {
	State           State
	HeadSHA         string
	Files           []FileOutcome
	InstructionsErr error
	ReviewID        int64
	SummaryErr      error
}

// Succeeded returns the files that were reviewed and commented on.
func (o *RunOutcome) Succeeded() []FileOutcome {
	return lo.Filter(o.Files, func(f FileOutcome, _ int) bool {
		return f.Stage == StageDone && f.Err == nil
	})
}

// Failed returns the files whose review or comment failed.
func (o *RunOutcome) Failed() []FileOutcome {
	return lo.Filter(o.Files, func(f FileOutcome, _ int) bool {
		return f.Err != nil
	})
}

// Err joins every failure recorded during the run, or returns nil.
func (o *RunOutcome) Err() error {
	if o == nil {
		return nil
	}
	errs := []error{o.InstructionsErr}
	for _, f := range o.Files {
		errs = append(errs, f.Err)
	}
	errs = append(errs, o.SummaryErr)
	return errors.Join(errs...)
}

// RunGuard lets a run execute at most once. Create one per process
// invocation (or per webhook delivery) and pass it to every Run call.
type RunGuard struct {
	started atomic.Bool
}

// NewRunGuard returns a guard that has not started.
func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// TryStart latches the guard and reports whether this caller won.
func (g *RunGuard) TryStart() bool {
	return g.started.CompareAndSwap(false, true)
}

// Started reports whether a run already claimed the guard.
func (g *RunGuard) Started() bool {
	return g.started.Load()
}
