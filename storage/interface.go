// Package storage defines the persistence interface used by the webhook server.
package storage

import (
	"context"
)

// Storage defines the interface for storage backends.
// Implementations must be safe for concurrent use by multiple goroutines.
type Storage interface {
	// ClaimDelivery records a webhook delivery ID. It returns false if the
	// delivery was already claimed, so redelivered events run only once.
	ClaimDelivery(ctx context.Context, deliveryID string) (bool, error)

	// Run operations
	SaveRun(ctx context.Context, run *RunRecord) error
	ListRunsForPR(ctx context.Context, owner, repo string, prNumber int) ([]*RunRecord, error)

	// Installation operations
	SaveInstallation(ctx context.Context, install *Installation) error
	GetInstallation(ctx context.Context, installationID int64) (*Installation, error)
}
