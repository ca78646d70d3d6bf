package models

import (
	"time"

	"github.com/monocle-dev/tracker/internal/types"
)

type Event struct {
	BaseModel

	IssueID   uint            `gorm:"not null;index"`
	UserID    uint            `gorm:"not null;index"`
	Type      types.EventType `gorm:"size:20;not null"`
	Parameter *uint

	// Relationships
	Issue Issue `gorm:"foreignKey:IssueID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User  User  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// Change records one edited value. A nil FieldID means the subject changed.
type Change struct {
	BaseModel

	EventID  uint  `gorm:"not null;index"`
	FieldID  *uint `gorm:"index"`
	OldValue *string
	NewValue *string

	Event Event  `gorm:"foreignKey:EventID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Field *Field `gorm:"foreignKey:FieldID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Comment struct {
	BaseModel

	EventID uint   `gorm:"not null;uniqueIndex"`
	IssueID uint   `gorm:"not null;index"`
	Body    string `gorm:"type:text;not null"`
	Private bool   `gorm:"not null;default:false"`

	Event Event `gorm:"foreignKey:EventID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type File struct {
	BaseModel

	EventID   uint   `gorm:"not null;uniqueIndex"`
	IssueID   uint   `gorm:"not null;index"`
	FileName  string `gorm:"size:100;not null"`
	FileSize  int64  `gorm:"not null"`
	MimeType  string `gorm:"size:255;not null"`
	UID       string `gorm:"size:36;uniqueIndex;not null"`
	RemovedAt *time.Time
	// PurgedAt is set once the content of a removed file is gone from disk.
	PurgedAt *time.Time

	Event Event `gorm:"foreignKey:EventID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (f *File) IsRemoved() bool {
	return f.RemovedAt != nil
}
