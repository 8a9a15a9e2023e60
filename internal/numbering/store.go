package numbering

import (
	"context"
	"time"
)

// Store reserves numbers atomically. Implementations guarantee that N
// concurrent calls for one document type return N distinct, contiguous values
// within a reset period, and that a period reset observed by one allocation is
// never undone by a racing allocation holding a stale period.
type Store interface {
	// Allocate reserves and returns the next number for the document type.
	// The reservation is durable before the call returns.
	Allocate(ctx context.Context, documentType string, now time.Time) (Allocation, error)
}
