package services

import (
	"context"
	"strings"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
)

type TemplateCommand struct {
	Name        string `json:"name" binding:"required,max=50"`
	Prefix      string `json:"prefix" binding:"required,max=5"`
	Description string `json:"description" binding:"max=100"`
	CriticalAge *int   `json:"critical_age" binding:"omitempty,min=1,max=100"`
	FrozenTime  *int   `json:"frozen_time" binding:"omitempty,min=1,max=100"`
}

type CreateTemplateCommand struct {
	ProjectID uint `json:"project_id" binding:"required"`
	TemplateCommand
}

// SetTemplatePermissionCommand replaces who holds one permission on a template.
type SetTemplatePermissionCommand struct {
	Permission types.TemplatePermission `json:"permission" binding:"required"`
	Roles      []types.SystemRole       `json:"roles"`
	Groups     []uint                   `json:"groups"`
}

// TemplatePermissions lists who holds each permission of a template.
type TemplatePermissions struct {
	Roles  []models.TemplateRolePermission
	Groups []models.TemplateGroupPermission
}

var templateColumns = repository.Columns{
	Search: []string{"templates.name", "templates.prefix", "templates.description"},
	Filters: map[string]repository.Filter{
		"project":     repository.Equals("templates.project_id"),
		"name":        repository.Contains("templates.name"),
		"prefix":      repository.Contains("templates.prefix"),
		"description": repository.Contains("templates.description"),
		"locked":      repository.Bool("templates.locked"),
	},
	Sorts: map[string]string{
		"id":          "templates.id",
		"project":     "templates.project_id",
		"name":        "templates.name",
		"prefix":      "templates.prefix",
		"description": "templates.description",
		"locked":      "templates.locked",
	},
	Preloads: []string{"Project"},
}

func (s *Service) ListTemplates(ctx context.Context, actor *models.User, q repository.Query) (*repository.Page[models.Template], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var page *repository.Page[models.Template]
	err := s.read(ctx, "template.list", func(db *gorm.DB) error {
		var err error
		page, err = repository.Collect[models.Template](ctx, db, q, templateColumns)
		return err
	})
	return page, err
}

func (s *Service) GetTemplate(ctx context.Context, actor *models.User, id uint) (*models.Template, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var template *models.Template
	err := s.read(ctx, "template.get", func(db *gorm.DB) error {
		var err error
		template, err = loadTemplate(ctx, db, id)
		return err
	})
	return template, err
}

// CreateTemplate adds a template to a project. New templates start locked so
// that their workflow can be built before anyone creates issues.
func (s *Service) CreateTemplate(ctx context.Context, actor *models.User, cmd CreateTemplateCommand) (*models.Template, error) {
	var template *models.Template
	err := s.transact(ctx, "template.create", func(tx *gorm.DB) error {
		project, err := loadProject(ctx, tx, cmd.ProjectID)
		if err != nil {
			return err
		}
		if !s.templateVoter.CanCreate(actor, project) {
			return deny("you are not allowed to create templates")
		}

		template = &models.Template{ProjectID: project.ID, Locked: true}
		applyTemplate(template, cmd.TemplateCommand)

		repo := repository.New[models.Template](tx, "template")
		if err := uniqueTemplate(ctx, repo, template); err != nil {
			return err
		}
		if err := repo.Create(ctx, template); err != nil {
			return err
		}
		template.Project = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, actor *models.User, id uint, cmd TemplateCommand) (*models.Template, error) {
	var template *models.Template
	err := s.transact(ctx, "template.update", func(tx *gorm.DB) error {
		var err error
		if template, err = loadTemplate(ctx, tx, id); err != nil {
			return err
		}
		if !s.templateVoter.CanUpdate(actor, template) {
			return deny("you are not allowed to update this template")
		}

		applyTemplate(template, cmd)

		repo := repository.New[models.Template](tx, "template")
		if err := uniqueTemplate(ctx, repo, template); err != nil {
			return err
		}
		return repo.Save(ctx, template)
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, actor *models.User, id uint) error {
	return s.transact(ctx, "template.delete", func(tx *gorm.DB) error {
		template, err := loadTemplate(ctx, tx, id)
		if err != nil {
			return err
		}

		hasIssues, err := templateHasIssues(ctx, tx, template.ID)
		if err != nil {
			return err
		}
		if !s.templateVoter.CanDelete(actor, template, hasIssues) {
			if hasIssues {
				return apperrors.Conflict("template %q still has issues", template.Name)
			}
			return deny("you are not allowed to delete this template")
		}

		return repository.New[models.Template](tx, "template").Delete(ctx, template)
	})
}

func (s *Service) LockTemplate(ctx context.Context, actor *models.User, id uint) (*models.Template, error) {
	return s.setTemplateLocked(ctx, actor, id, true)
}

// UnlockTemplate opens the template for new issues. It needs an initial state.
func (s *Service) UnlockTemplate(ctx context.Context, actor *models.User, id uint) (*models.Template, error) {
	return s.setTemplateLocked(ctx, actor, id, false)
}

func (s *Service) setTemplateLocked(ctx context.Context, actor *models.User, id uint, locked bool) (*models.Template, error) {
	op := "template.unlock"
	if locked {
		op = "template.lock"
	}

	var template *models.Template
	err := s.transact(ctx, op, func(tx *gorm.DB) error {
		var err error
		if template, err = loadTemplate(ctx, tx, id); err != nil {
			return err
		}

		if locked {
			if !s.templateVoter.CanLock(actor, template) {
				return deny("you are not allowed to lock this template")
			}
		} else if !s.templateVoter.CanUnlock(actor, template) {
			if template.Locked && template.InitialState() == nil && actor != nil && actor.Admin {
				return apperrors.Conflict("template %q has no initial state", template.Name)
			}
			return deny("you are not allowed to unlock this template")
		}

		template.Locked = locked
		return repository.New[models.Template](tx, "template").Save(ctx, template)
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

func (s *Service) GetTemplatePermissions(ctx context.Context, actor *models.User, id uint) (*TemplatePermissions, error) {
	var perms *TemplatePermissions
	err := s.read(ctx, "template.permissions", func(db *gorm.DB) error {
		template, err := loadTemplate(ctx, db, id)
		if err != nil {
			return err
		}
		if !s.templateVoter.CanManagePermissions(actor, template) {
			return deny("you are not allowed to view template permissions")
		}
		perms = &TemplatePermissions{Roles: template.RolePermissions, Groups: template.GroupPermissions}
		return nil
	})
	return perms, err
}

// SetTemplatePermission replaces the roles and groups granted cmd.Permission.
// Groups must be global or belong to the template's project.
func (s *Service) SetTemplatePermission(ctx context.Context, actor *models.User, id uint, cmd SetTemplatePermissionCommand) (*TemplatePermissions, error) {
	if !cmd.Permission.IsValid() {
		return nil, apperrors.Validation("unknown permission %q", cmd.Permission)
	}
	for _, role := range cmd.Roles {
		if !role.IsValid() {
			return nil, apperrors.Validation("unknown role %q", role)
		}
	}

	var perms *TemplatePermissions
	err := s.transact(ctx, "template.set_permission", func(tx *gorm.DB) error {
		template, err := loadTemplate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.templateVoter.CanManagePermissions(actor, template) {
			return deny("you are not allowed to change template permissions")
		}
		if err := checkProjectGroups(ctx, tx, template.ProjectID, cmd.Groups); err != nil {
			return err
		}

		err = repository.New[models.TemplateRolePermission](tx, "template permission").
			DeleteWhere(ctx, "template_id = ? AND permission = ?", template.ID, cmd.Permission)
		if err != nil {
			return err
		}
		err = repository.New[models.TemplateGroupPermission](tx, "template permission").
			DeleteWhere(ctx, "template_id = ? AND permission = ?", template.ID, cmd.Permission)
		if err != nil {
			return err
		}

		for _, role := range dedupe(cmd.Roles) {
			p := &models.TemplateRolePermission{TemplateID: template.ID, Role: role, Permission: cmd.Permission}
			if err := repository.New[models.TemplateRolePermission](tx, "template permission").Create(ctx, p); err != nil {
				return err
			}
		}
		for _, groupID := range dedupe(cmd.Groups) {
			p := &models.TemplateGroupPermission{TemplateID: template.ID, GroupID: groupID, Permission: cmd.Permission}
			if err := repository.New[models.TemplateGroupPermission](tx, "template permission").Create(ctx, p); err != nil {
				return err
			}
		}

		reloaded, err := loadTemplate(ctx, tx, template.ID)
		if err != nil {
			return err
		}
		perms = &TemplatePermissions{Roles: reloaded.RolePermissions, Groups: reloaded.GroupPermissions}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return perms, nil
}

func applyTemplate(template *models.Template, cmd TemplateCommand) {
	template.Name = strings.TrimSpace(cmd.Name)
	template.Prefix = strings.TrimSpace(cmd.Prefix)
	template.Description = strings.TrimSpace(cmd.Description)
	template.CriticalAge = cmd.CriticalAge
	template.FrozenTime = cmd.FrozenTime
}

func uniqueTemplate(ctx context.Context, repo *repository.Repository[models.Template], template *models.Template) error {
	taken, err := repo.Exists(ctx, "project_id = ? AND name = ? AND id <> ?", template.ProjectID, template.Name, template.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("template with name %q already exists", template.Name)
	}

	taken, err = repo.Exists(ctx, "project_id = ? AND prefix = ? AND id <> ?", template.ProjectID, template.Prefix, template.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("template with prefix %q already exists", template.Prefix)
	}
	return nil
}

func templateHasIssues(ctx context.Context, db *gorm.DB, templateID uint) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.Issue{}).
		Joins("JOIN states ON states.id = issues.state_id").
		Where("states.template_id = ?", templateID).
		Limit(1).
		Count(&count).Error
	return count > 0, apperrors.Wrap("issue", err)
}

// checkProjectGroups verifies that every group exists and is either global or
// belongs to the project.
func checkProjectGroups(ctx context.Context, db *gorm.DB, projectID uint, groupIDs []uint) error {
	ids := dedupe(groupIDs)
	if len(ids) == 0 {
		return nil
	}

	var count int64
	err := db.WithContext(ctx).Model(&models.Group{}).
		Where("id IN ? AND (project_id IS NULL OR project_id = ?)", ids, projectID).
		Count(&count).Error
	if err != nil {
		return apperrors.Wrap("group", err)
	}
	if count != int64(len(ids)) {
		return apperrors.Validation("groups must be global or belong to the same project")
	}
	return nil
}

func dedupe[T comparable](values []T) []T {
	seen := make(map[T]bool, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
