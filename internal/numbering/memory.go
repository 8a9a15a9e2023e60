package numbering

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sequence state in-process behind a mutex. It backs tests
// and embedded single-process deployments; the mutex covers the reset-period
// check and the increment as one critical section.
type MemoryStore struct {
	mu      sync.Mutex
	configs map[string]*SequenceConfig
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]*SequenceConfig)}
}

// Register adds a sequence config. Registering an existing key replaces it.
func (s *MemoryStore) Register(cfg SequenceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cfg
	s.configs[cfg.DocumentType] = &c
	return nil
}

// Deactivate disables a document type.
func (s *MemoryStore) Deactivate(documentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[documentType]
	if !ok {
		return ErrUnknownDocumentType
	}
	cfg.IsActive = false
	return nil
}

// Snapshot returns a copy of the current config state.
func (s *MemoryStore) Snapshot(documentType string) (SequenceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[documentType]
	if !ok {
		return SequenceConfig{}, ErrUnknownDocumentType
	}
	return *cfg, nil
}

// Allocate reserves the next number for the document type.
func (s *MemoryStore) Allocate(ctx context.Context, documentType string, now time.Time) (Allocation, error) {
	if err := ctx.Err(); err != nil {
		return Allocation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[documentType]
	if !ok {
		return Allocation{}, ErrUnknownDocumentType
	}
	if !cfg.IsActive {
		return Allocation{}, ErrDocumentTypeDisabled
	}

	period := cfg.ResetFrequency.PeriodFor(now)
	if cfg.ResetFrequency != ResetNever && period != cfg.LastResetPeriod {
		cfg.NextNumber = 1
		cfg.LastResetPeriod = period
	}

	issued := cfg.NextNumber
	cfg.NextNumber++
	cfg.UpdatedAt = now

	return Allocation{
		DocumentType: documentType,
		Value:        issued,
		Formatted:    cfg.Format(issued),
		Period:       cfg.LastResetPeriod,
	}, nil
}
