package models

import (
	"time"

	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/datatypes"
)

type Field struct {
	BaseModel

	StateID     uint            `gorm:"not null;index"`
	Name        string          `gorm:"size:50;not null"`
	Type        types.FieldType `gorm:"size:10;not null"`
	Description string          `gorm:"size:1000"`
	Position    int             `gorm:"not null"`
	Required    bool            `gorm:"not null;default:false"`
	Parameters  datatypes.JSON
	RemovedAt   *time.Time

	// Relationships
	State            State                  `gorm:"foreignKey:StateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	RolePermissions  []FieldRolePermission  `gorm:"foreignKey:FieldID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	GroupPermissions []FieldGroupPermission `gorm:"foreignKey:FieldID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	ListItems        []ListItem             `gorm:"foreignKey:FieldID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (f *Field) IsRemoved() bool {
	return f.RemovedAt != nil
}

type FieldRolePermission struct {
	FieldID    uint                  `gorm:"primaryKey"`
	Role       types.SystemRole      `gorm:"primaryKey;size:20"`
	Permission types.FieldPermission `gorm:"size:2;not null"`
}

type FieldGroupPermission struct {
	FieldID    uint                  `gorm:"primaryKey"`
	GroupID    uint                  `gorm:"primaryKey"`
	Permission types.FieldPermission `gorm:"size:2;not null"`

	Group Group `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type ListItem struct {
	BaseModel

	FieldID uint   `gorm:"not null;uniqueIndex:idx_item_value;uniqueIndex:idx_item_text"`
	Value   int    `gorm:"not null;uniqueIndex:idx_item_value"`
	Text    string `gorm:"size:50;not null;uniqueIndex:idx_item_text"`

	Field Field `gorm:"foreignKey:FieldID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
