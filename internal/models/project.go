package models

type Project struct {
	BaseModel

	Name           string `gorm:"uniqueIndex;size:25;not null"`
	Description    string `gorm:"size:100"`
	Suspended      bool   `gorm:"not null;default:false"`
	DiscordWebhook string
	SlackWebhook   string

	// Relationships
	Templates []Template `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Groups    []Group    `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
