// Package voters holds the authorization policies. A voter answers whether a
// user may perform an action on an already loaded entity; it never touches the
// database, so callers must preload the associations each check documents.
package voters

import (
	"time"

	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/types"
)

// Clock returns the current time. Voters take one so that time-based rules
// (suspension, frozen and critical issues) can be tested.
type Clock func() time.Time

// Attribute names an action a voter decides on.
type Attribute string

// rolesOf returns the system roles the user plays for the issue.
func rolesOf(user *models.User, issue *models.Issue) []types.SystemRole {
	roles := []types.SystemRole{types.RoleAnyone}
	if issue.IsAuthor(user.ID) {
		roles = append(roles, types.RoleAuthor)
	}
	if issue.IsResponsible(user.ID) {
		roles = append(roles, types.RoleResponsible)
	}
	return roles
}

func hasRole(roles []types.SystemRole, role types.SystemRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// hasTemplatePermission checks role permissions for the given roles and group
// permissions for the user's groups. Template.RolePermissions,
// Template.GroupPermissions and user.Groups must be loaded.
func hasTemplatePermission(user *models.User, template *models.Template, roles []types.SystemRole, permission types.TemplatePermission) bool {
	for _, p := range template.RolePermissions {
		if p.Permission == permission && hasRole(roles, p.Role) {
			return true
		}
	}

	groups := user.GroupIDs()
	for _, p := range template.GroupPermissions {
		if p.Permission == permission && groups[p.GroupID] {
			return true
		}
	}

	return false
}
