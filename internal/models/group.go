package models

type Group struct {
	BaseModel

	// ProjectID is nil for global groups.
	ProjectID   *uint  `gorm:"index"`
	Name        string `gorm:"size:25;not null"`
	Description string `gorm:"size:100"`

	// Relationships
	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Members []User   `gorm:"many2many:memberships;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName avoids GROUPS, a reserved word in MySQL 8.
func (Group) TableName() string {
	return "user_groups"
}

// IsGlobal reports whether the group is not bound to a project.
func (g *Group) IsGlobal() bool {
	return g.ProjectID == nil
}

// Membership is the join row between users and groups.
type Membership struct {
	UserID  uint `gorm:"primaryKey"`
	GroupID uint `gorm:"primaryKey"`
}
