package model

// DispatchKV backs the dispatcher's idempotency cache.
type DispatchKV struct {
	Key       string `gorm:"column:key;primaryKey"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (DispatchKV) TableName() string {
	return "dispatch_keys"
}
