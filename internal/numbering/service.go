package numbering

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AllocationObserver records allocation outcomes for monitoring.
type AllocationObserver interface {
	ObserveAllocation(documentType string, err error)
}

// Service wraps a Store with timeout handling, logging, and metrics. A number
// handed to a caller that later abandons its workflow is not reclaimed: gaps
// from aborted workflows are acceptable, duplicates are not.
type Service struct {
	store    Store
	logger   *slog.Logger
	observer AllocationObserver
	timeout  time.Duration
	now      func() time.Time
}

// NewService constructs the allocator service.
func NewService(store Store, logger *slog.Logger, observer AllocationObserver, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		store:    store,
		logger:   logger,
		observer: observer,
		timeout:  timeout,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Allocate reserves the next formatted number for a document type. A store
// that exceeds the configured timeout surfaces ErrAllocationTimeout; the
// underlying increment is idempotent at the storage layer, so the caller may
// retry at the cost of a gap.
func (s *Service) Allocate(ctx context.Context, documentType string) (Allocation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	alloc, err := s.store.Allocate(ctx, documentType, s.now().UTC())
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		err = ErrAllocationTimeout
	}
	if s.observer != nil {
		s.observer.ObserveAllocation(documentType, err)
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("allocate document number",
				slog.String("document_type", documentType),
				slog.Any("error", err),
			)
		}
		return Allocation{}, err
	}
	if s.logger != nil {
		s.logger.Debug("allocated document number",
			slog.String("document_type", documentType),
			slog.Int64("value", alloc.Value),
			slog.String("formatted", alloc.Formatted),
		)
	}
	return alloc, nil
}
