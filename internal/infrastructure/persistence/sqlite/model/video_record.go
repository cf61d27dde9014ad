package model

type VideoRecord struct {
	VideoID        string   `gorm:"column:video_id;primaryKey"`
	StorageKey     string   `gorm:"column:storage_key;type:text;not null"`
	SizeBytes      int64    `gorm:"column:size_bytes;not null;default:0"`
	Status         string   `gorm:"column:status;type:text;not null;index"`
	RiskScore      *float64 `gorm:"column:risk_score"`
	NSFWScore      *float64 `gorm:"column:nsfw_score"`
	ViolenceScore  *float64 `gorm:"column:violence_score"`
	FinalScore     *float64 `gorm:"column:final_score"`
	Decision       string   `gorm:"column:decision;type:text;not null"`
	FramesAnalyzed int      `gorm:"column:frames_analyzed;not null;default:0"`
	HumanReviewed  bool     `gorm:"column:human_reviewed;not null;default:0"`
	ReviewerNotes  string   `gorm:"column:reviewer_notes;type:text;not null;default:''"`
	FailureReason  string   `gorm:"column:failure_reason;type:text;not null;default:''"`
	UploadedAt     string   `gorm:"column:uploaded_at;type:text;not null"`
	ScreenedAt     *string  `gorm:"column:screened_at;type:text"`
	AnalyzedAt     *string  `gorm:"column:analyzed_at;type:text"`
	DecidedAt      *string  `gorm:"column:decided_at;type:text"`
	ReviewedAt     *string  `gorm:"column:reviewed_at;type:text"`
}

func (VideoRecord) TableName() string {
	return "video_records"
}
