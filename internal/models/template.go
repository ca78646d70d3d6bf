package models

import "github.com/monocle-dev/tracker/internal/types"

type Template struct {
	BaseModel

	ProjectID   uint   `gorm:"not null;uniqueIndex:idx_template_name;uniqueIndex:idx_template_prefix"`
	Name        string `gorm:"size:50;not null;uniqueIndex:idx_template_name"`
	Prefix      string `gorm:"size:5;not null;uniqueIndex:idx_template_prefix"`
	Description string `gorm:"size:100"`
	CriticalAge *int   // days
	FrozenTime  *int   // days
	Locked      bool   `gorm:"not null;default:true"`

	// Relationships
	Project          Project                   `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	States           []State                   `gorm:"foreignKey:TemplateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	RolePermissions  []TemplateRolePermission  `gorm:"foreignKey:TemplateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	GroupPermissions []TemplateGroupPermission `gorm:"foreignKey:TemplateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// InitialState returns the template's initial state. States must be preloaded.
func (t *Template) InitialState() *State {
	for i := range t.States {
		if t.States[i].Type == types.StateInitial {
			return &t.States[i]
		}
	}
	return nil
}

type TemplateRolePermission struct {
	TemplateID uint                     `gorm:"primaryKey"`
	Role       types.SystemRole         `gorm:"primaryKey;size:20"`
	Permission types.TemplatePermission `gorm:"primaryKey;size:20"`
}

type TemplateGroupPermission struct {
	TemplateID uint                     `gorm:"primaryKey"`
	GroupID    uint                     `gorm:"primaryKey"`
	Permission types.TemplatePermission `gorm:"primaryKey;size:20"`

	Group Group `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
