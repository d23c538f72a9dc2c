package storage

import (
	"fmt"

	"github.com/hotelops/stockpilot/internal/core/domain"
)

// VersionConflictError is returned by a versioned write whose
// expected-version precondition failed. It carries the authoritative
// state so the caller can resolve the conflict without another read.
type VersionConflictError struct {
	ItemID            string
	ExpectedVersion   int64
	ActualVersion     int64
	ActualStock       int
	ConcurrentUpdates []*domain.StockUpdate
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf(
		"version conflict on item %s: expected version %d, actual %d",
		e.ItemID, e.ExpectedVersion, e.ActualVersion,
	)
}

// StatusCode marks the failure as a data-consistency conflict for the
// classifier, mirroring the remote store's 409 response.
func (e *VersionConflictError) StatusCode() int { return 409 }
