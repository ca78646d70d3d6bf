package models

import "github.com/monocle-dev/tracker/internal/types"

type State struct {
	BaseModel

	TemplateID  uint                   `gorm:"not null;uniqueIndex:idx_state_name"`
	Name        string                 `gorm:"size:50;not null;uniqueIndex:idx_state_name"`
	Type        types.StateType        `gorm:"size:12;not null"`
	Responsible types.StateResponsible `gorm:"size:10;not null"`

	// Relationships
	Template          Template                `gorm:"foreignKey:TemplateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Fields            []Field                 `gorm:"foreignKey:StateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	RoleTransitions   []StateRoleTransition   `gorm:"foreignKey:FromStateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	GroupTransitions  []StateGroupTransition  `gorm:"foreignKey:FromStateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	ResponsibleGroups []StateResponsibleGroup `gorm:"foreignKey:StateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (s *State) IsFinal() bool {
	return s.Type == types.StateFinal
}

func (s *State) IsInitial() bool {
	return s.Type == types.StateInitial
}

type StateRoleTransition struct {
	FromStateID uint             `gorm:"primaryKey"`
	ToStateID   uint             `gorm:"primaryKey"`
	Role        types.SystemRole `gorm:"primaryKey;size:20"`

	ToState State `gorm:"foreignKey:ToStateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type StateGroupTransition struct {
	FromStateID uint `gorm:"primaryKey"`
	ToStateID   uint `gorm:"primaryKey"`
	GroupID     uint `gorm:"primaryKey"`

	ToState State `gorm:"foreignKey:ToStateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Group   Group `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type StateResponsibleGroup struct {
	StateID uint `gorm:"primaryKey"`
	GroupID uint `gorm:"primaryKey"`

	Group Group `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
