package repository

import (
	"strings"
	"time"

	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
)

// VisibleIssues restricts an issues query to what user may see: issues they
// authored or are responsible for, and issues of templates granting view
// permission to everyone or to one of their groups. user.Groups must be loaded.
func VisibleIssues(user *models.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		groupIDs := make([]uint, 0, len(user.Groups))
		for _, g := range user.Groups {
			groupIDs = append(groupIDs, g.ID)
		}

		byRole := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.TemplateRolePermission{}).
			Select("template_id").
			Where("role = ? AND permission = ?", types.RoleAnyone, types.PermissionViewIssues)

		query := db.
			Joins("JOIN states ON states.id = issues.state_id")

		if len(groupIDs) == 0 {
			return query.Where(
				"(issues.author_id = ? OR issues.responsible_id = ? OR states.template_id IN (?))",
				user.ID, user.ID, byRole,
			)
		}

		byGroup := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.TemplateGroupPermission{}).
			Select("template_id").
			Where("permission = ? AND group_id IN ?", types.PermissionViewIssues, groupIDs)

		return query.Where(
			"(issues.author_id = ? OR issues.responsible_id = ? OR states.template_id IN (?) OR states.template_id IN (?))",
			user.ID, user.ID, byRole, byGroup,
		)
	}
}

// IssueColumns is the whitelist for issue collections.
var IssueColumns = Columns{
	Search: []string{"issues.subject"},
	Filters: map[string]Filter{
		"subject":     Contains("issues.subject"),
		"state":       Equals("issues.state_id"),
		"author":      Equals("issues.author_id"),
		"responsible": NullableEquals("issues.responsible_id"),
		"template":    Equals("states.template_id"),
		"project": func(db *gorm.DB, value string) *gorm.DB {
			return db.Where("states.template_id IN (?)",
				db.Session(&gorm.Session{NewDB: true}).Model(&models.Template{}).Select("id").Where("project_id = ?", value))
		},
		"closed":    IsSet("issues.closed_at"),
		"suspended": func(db *gorm.DB, value string) *gorm.DB {
			now := time.Now()
			switch strings.ToLower(value) {
			case "1", "true":
				return db.Where("issues.resumes_at > ?", now)
			case "0", "false":
				return db.Where("(issues.resumes_at IS NULL OR issues.resumes_at <= ?)", now)
			}
			return db
		},
	},
	Sorts: map[string]string{
		"id":          "issues.id",
		"subject":     "issues.subject",
		"created_at":  "issues.created_at",
		"updated_at":  "issues.updated_at",
		"closed_at":   "issues.closed_at",
		"state":       "issues.state_id",
		"author":      "issues.author_id",
		"responsible": "issues.responsible_id",
	},
	Preloads: []string{
		"State",
		"State.Template",
		"State.Template.Project",
		"Author",
		"Responsible",
	},
}
