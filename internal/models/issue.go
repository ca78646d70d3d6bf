package models

import (
	"fmt"
	"time"
)

type Issue struct {
	BaseModel

	Subject            string `gorm:"size:250;not null"`
	StateID            uint   `gorm:"not null;index"`
	AuthorID           uint   `gorm:"not null;index"`
	ResponsibleID      *uint  `gorm:"index"`
	OriginID           *uint  `gorm:"index"`
	ClosedAt           *time.Time
	ResumesAt          *time.Time
	CriticalNotifiedAt *time.Time

	// Relationships
	State       State        `gorm:"foreignKey:StateID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Author      User         `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Responsible *User        `gorm:"foreignKey:ResponsibleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Origin      *Issue       `gorm:"foreignKey:OriginID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Values      []FieldValue `gorm:"foreignKey:IssueID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// FullID renders the human identifier, e.g. "BUG-042". State.Template must be loaded.
func (i *Issue) FullID() string {
	return fmt.Sprintf("%s-%03d", i.State.Template.Prefix, i.ID)
}

func (i *Issue) IsClosed() bool {
	return i.ClosedAt != nil
}

func (i *Issue) IsSuspended(now time.Time) bool {
	return i.ResumesAt != nil && i.ResumesAt.After(now)
}

// IsFrozen reports whether a closed issue has been closed for longer than the
// template's frozen time. Frozen issues can no longer be changed.
func (i *Issue) IsFrozen(now time.Time) bool {
	if i.ClosedAt == nil || i.State.Template.FrozenTime == nil {
		return false
	}
	return now.After(i.ClosedAt.AddDate(0, 0, *i.State.Template.FrozenTime))
}

// IsCritical reports whether an open issue is older than the template's critical age.
func (i *Issue) IsCritical(now time.Time) bool {
	if i.ClosedAt != nil || i.State.Template.CriticalAge == nil {
		return false
	}
	return now.After(i.CreatedAt.AddDate(0, 0, *i.State.Template.CriticalAge))
}

func (i *Issue) IsAuthor(userID uint) bool {
	return i.AuthorID == userID
}

func (i *Issue) IsResponsible(userID uint) bool {
	return i.ResponsibleID != nil && *i.ResponsibleID == userID
}

type FieldValue struct {
	BaseModel

	IssueID uint    `gorm:"not null;uniqueIndex:idx_issue_field"`
	FieldID uint    `gorm:"not null;uniqueIndex:idx_issue_field"`
	Value   *string `gorm:"size:10000"`

	Field Field `gorm:"foreignKey:FieldID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Dependency struct {
	BaseModel

	IssueID      uint `gorm:"not null;uniqueIndex:idx_dependency"`
	DependencyID uint `gorm:"not null;uniqueIndex:idx_dependency;index"`

	Issue  Issue `gorm:"foreignKey:IssueID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Target Issue `gorm:"foreignKey:DependencyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Watcher struct {
	BaseModel

	IssueID uint `gorm:"not null;uniqueIndex:idx_watcher"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_watcher"`

	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type LastRead struct {
	BaseModel

	IssueID uint      `gorm:"not null;uniqueIndex:idx_last_read"`
	UserID  uint      `gorm:"not null;uniqueIndex:idx_last_read"`
	ReadAt  time.Time `gorm:"not null"`
}
