package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/numbering"
)

type stubAuditor struct {
	types  []string
	gaps   map[string][]numbering.Gap
	behind map[string]int64
	err    error
	probed []string
}

func (s *stubAuditor) ListDocumentTypes(ctx context.Context) ([]string, error) {
	return s.types, s.err
}

func (s *stubAuditor) FindGaps(ctx context.Context, documentType string) ([]numbering.Gap, error) {
	s.probed = append(s.probed, documentType)
	return s.gaps[documentType], s.err
}

func (s *stubAuditor) CounterBehind(ctx context.Context, documentType string) (int64, error) {
	return s.behind[documentType], s.err
}

func TestSequenceAuditScansAllTypes(t *testing.T) {
	auditor := &stubAuditor{
		types: []string{"SALES_INVOICE", "JOURNAL_ENTRY"},
		gaps: map[string][]numbering.Gap{
			"SALES_INVOICE": {{After: 4, Before: 7}},
		},
	}
	job := NewSequenceAuditJob(auditor, nil, nil)

	task, err := NewSequenceAuditTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"SALES_INVOICE", "JOURNAL_ENTRY"}, auditor.probed)
}

func TestSequenceAuditSingleType(t *testing.T) {
	auditor := &stubAuditor{types: []string{"QUOTE", "SALES_INVOICE"}}
	job := NewSequenceAuditJob(auditor, nil, nil)

	task, err := NewSequenceAuditTask("QUOTE")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"QUOTE"}, auditor.probed)
}

func TestSequenceAuditSkipsNonAuditableType(t *testing.T) {
	auditor := &stubAuditor{types: []string{"SALES_INVOICE"}}
	job := NewSequenceAuditJob(auditor, nil, nil)

	task, err := NewSequenceAuditTask("QUOTE")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Empty(t, auditor.probed, "a resetting or unknown sequence must not be scanned")
}

func TestSequenceAuditLaggingCounterIsNotFatal(t *testing.T) {
	auditor := &stubAuditor{types: []string{"QUOTE"}, behind: map[string]int64{"QUOTE": 3}}
	job := NewSequenceAuditJob(auditor, nil, nil)

	task, err := NewSequenceAuditTask("QUOTE")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"QUOTE"}, auditor.probed)
}

func TestSequenceAuditPropagatesErrors(t *testing.T) {
	auditor := &stubAuditor{err: errors.New("db down")}
	job := NewSequenceAuditJob(auditor, nil, nil)

	task, err := NewSequenceAuditTask("QUOTE")
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}
