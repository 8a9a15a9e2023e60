package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskSequenceAudit scans issued documents for numbering gaps.
	TaskSequenceAudit = "sequence:audit"
)
