package models

import "time"

// BaseModel is embedded by every entity. Rows are deleted for real; foreign keys
// carry the cascade rules.
type BaseModel struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
