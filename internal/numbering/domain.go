package numbering

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResetFrequency controls when a sequence counter restarts at 1.
type ResetFrequency string

const (
	ResetNever   ResetFrequency = "never"
	ResetMonthly ResetFrequency = "monthly"
	ResetYearly  ResetFrequency = "yearly"
)

// PeriodFor derives the reset period identifier for a point in time, in UTC.
// ResetNever collapses every timestamp into the same constant period.
func (f ResetFrequency) PeriodFor(t time.Time) string {
	switch f {
	case ResetMonthly:
		return t.UTC().Format("200601")
	case ResetYearly:
		return t.UTC().Format("2006")
	default:
		return ""
	}
}

// Valid reports whether the frequency is one of the known values.
func (f ResetFrequency) Valid() bool {
	switch f {
	case ResetNever, ResetMonthly, ResetYearly:
		return true
	}
	return false
}

// SequenceConfig describes the numbering scheme of one document type. The row
// is created once at setup, mutated exclusively by allocation, and deactivated
// rather than deleted.
type SequenceConfig struct {
	DocumentType    string
	Prefix          string
	Separator       string
	NumberLength    int
	Suffix          string
	NextNumber      int64
	ResetFrequency  ResetFrequency
	LastResetPeriod string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Allocation is the result of reserving one number. Value is the durable
// truth; Formatted is presentation only and may be re-rendered later without
// re-allocating.
type Allocation struct {
	DocumentType string
	Value        int64
	Formatted    string
	Period       string
}

var (
	// ErrUnknownDocumentType indicates no sequence config exists for the key.
	ErrUnknownDocumentType = errors.New("numbering: unknown document type")
	// ErrDocumentTypeDisabled indicates the config exists but is deactivated.
	ErrDocumentTypeDisabled = errors.New("numbering: document type disabled")
	// ErrAllocationTimeout indicates the store did not answer in time. The
	// reservation may still have happened; retrying allocates a fresh number
	// and leaves a gap, which is the documented policy.
	ErrAllocationTimeout = errors.New("numbering: allocation timed out")
)

// Validate checks a config before registration.
func (c SequenceConfig) Validate() error {
	if strings.TrimSpace(c.DocumentType) == "" {
		return errors.New("numbering: document type required")
	}
	if c.NumberLength < 1 || c.NumberLength > 18 {
		return fmt.Errorf("numbering: number length %d out of range", c.NumberLength)
	}
	if c.NextNumber < 1 {
		return fmt.Errorf("numbering: next number %d must be >= 1", c.NextNumber)
	}
	if !c.ResetFrequency.Valid() {
		return fmt.Errorf("numbering: unknown reset frequency %q", c.ResetFrequency)
	}
	return nil
}

// Format renders a raw counter value using the config's scheme.
func (c SequenceConfig) Format(value int64) string {
	return fmt.Sprintf("%s%s%0*d%s", c.Prefix, c.Separator, c.NumberLength, value, c.Suffix)
}
