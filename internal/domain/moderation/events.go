package moderation

// Event types appended to the audit log, one per pipeline-observable
// transition. Entries are write-once and carry a TTL after which they may be
// purged.
const (
	EventUploaded        = "uploaded"
	EventScreened        = "screened"
	EventScreeningFailed = "screening_failed"
	EventAnalyzed        = "analyzed"
	EventAnalysisFailed  = "analysis_failed"
	EventDecided         = "decided"
	EventReviewed        = "reviewed"
	EventNotified        = "notified"
)
