package model

type ModerationEvent struct {
	EventID   string `gorm:"column:event_id;primaryKey"`
	VideoID   string `gorm:"column:video_id;type:text;not null;index"`
	EventType string `gorm:"column:event_type;type:text;not null"`
	Payload   string `gorm:"column:payload;type:text;not null;default:''"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
	ExpiresAt string `gorm:"column:expires_at;type:text;not null;index"`
}

func (ModerationEvent) TableName() string {
	return "moderation_events"
}
