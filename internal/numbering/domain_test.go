package numbering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodFor(t *testing.T) {
	at := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "", ResetNever.PeriodFor(at))
	assert.Equal(t, "202603", ResetMonthly.PeriodFor(at))
	assert.Equal(t, "2026", ResetYearly.PeriodFor(at))
}

func TestPeriodForUsesUTC(t *testing.T) {
	// 23:30 on Jan 31 in UTC-5 is already February in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	at := time.Date(2026, time.January, 31, 23, 30, 0, 0, loc)

	assert.Equal(t, "202602", ResetMonthly.PeriodFor(at))
}

func TestFormat(t *testing.T) {
	cfg := SequenceConfig{Prefix: "INV", Separator: "-", NumberLength: 5}
	assert.Equal(t, "INV-00007", cfg.Format(7))

	cfg = SequenceConfig{Prefix: "QT", Separator: "/", NumberLength: 4, Suffix: "-A"}
	assert.Equal(t, "QT/0042-A", cfg.Format(42))

	// Values wider than the pad width are not truncated.
	cfg = SequenceConfig{Prefix: "JE", Separator: "-", NumberLength: 3}
	assert.Equal(t, "JE-12345", cfg.Format(12345))
}

func TestConfigValidate(t *testing.T) {
	valid := SequenceConfig{
		DocumentType:   "SALES_INVOICE",
		Prefix:         "INV",
		Separator:      "-",
		NumberLength:   5,
		NextNumber:     1,
		ResetFrequency: ResetNever,
		IsActive:       true,
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.DocumentType = "  "
	assert.Error(t, bad.Validate())

	bad = valid
	bad.NumberLength = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.NextNumber = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.ResetFrequency = "weekly"
	assert.Error(t, bad.Validate())
}
