package models

import (
	"time"

	"github.com/monocle-dev/tracker/internal/types"
)

type User struct {
	BaseModel

	Email           string                `gorm:"uniqueIndex;size:254;not null"`
	Fullname        string                `gorm:"size:50;not null"`
	Description     string                `gorm:"size:100"`
	PasswordHash    string                `gorm:"not null"`
	Admin           bool                  `gorm:"not null;default:false"`
	Disabled        bool                  `gorm:"not null;default:false"`
	AccountProvider types.AccountProvider `gorm:"size:20;not null;default:internal"`
	Locale          string                `gorm:"size:5;not null;default:en"`
	Timezone        string                `gorm:"size:50;not null;default:UTC"`
	AuthFailures    int                   `gorm:"not null;default:0"`
	LockedUntil     *time.Time

	// Relationships
	Groups []Group `gorm:"many2many:memberships;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// IsLocked reports whether the account is temporarily locked after failed logins.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// IsInternal reports whether the password is managed by this service.
func (u *User) IsInternal() bool {
	return u.AccountProvider == "" || u.AccountProvider == types.ProviderInternal
}

// GroupIDs returns the set of groups the user belongs to. Groups must be preloaded.
func (u *User) GroupIDs() map[uint]bool {
	ids := make(map[uint]bool, len(u.Groups))
	for _, g := range u.Groups {
		ids[g.ID] = true
	}
	return ids
}

// InGroup reports whether the user is a member of the group. Groups must be preloaded.
func (u *User) InGroup(groupID uint) bool {
	for _, g := range u.Groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}
