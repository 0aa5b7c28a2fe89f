package app

import (
	"github.com/samber/lo"

	"github.com/shipitai/filereviewer/review"
	"github.com/shipitai/filereviewer/storage"
)

// RunRecord converts a run outcome into its stored form. outcome may be nil
// when the run failed before producing one.
func RunRecord(deliveryID string, installationID int64, in *review.RunInput, outcome *review.RunOutcome, runErr error) *storage.RunRecord {
	rec := &storage.RunRecord{
		DeliveryID:     deliveryID,
		InstallationID: installationID,
		Owner:          in.Owner,
		Repo:           in.Repo,
		PRNumber:       in.PullNumber,
		HeadSHA:        in.HeadSHA,
		State:          string(review.StateFailed),
	}

	if outcome != nil {
		// A run that stopped mid-pipeline is recorded as failed.
		if outcome.State.Terminal() {
			rec.State = string(outcome.State)
		}
		if outcome.HeadSHA != "" {
			rec.HeadSHA = outcome.HeadSHA
		}
		rec.ReviewID = outcome.ReviewID
		rec.Files = lo.Map(outcome.Files, func(f review.FileOutcome, _ int) storage.FileRecord {
			return storage.FileRecord{
				Filename:  f.Filename,
				Language:  f.Language,
				Stage:     string(f.Stage),
				CommentID: f.CommentID,
				Error:     errString(f.Err),
			}
		})
	}

	if runErr != nil {
		rec.Error = runErr.Error()
	} else if err := outcome.Err(); err != nil {
		rec.Error = err.Error()
	}

	return rec
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
