package services

import (
	"context"

	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"gorm.io/gorm"
)

// Association sets the voters expect, see their doc comments.
var (
	issuePreloads = []string{
		"State.Template.Project",
		"State.Template.States",
		"State.Template.RolePermissions",
		"State.Template.GroupPermissions",
		"State.RoleTransitions",
		"State.GroupTransitions",
		"Author",
		"Responsible",
	}

	templatePreloads = []string{
		"Project",
		"States",
		"RolePermissions",
		"GroupPermissions",
	}

	statePreloads = []string{
		"Template.Project",
		"Template.States",
		"RoleTransitions",
		"GroupTransitions",
		"ResponsibleGroups",
	}

	fieldPreloads = []string{
		"State.Template.Project",
		"RolePermissions",
		"GroupPermissions",
		"ListItems",
	}
)

func loadIssue(ctx context.Context, db *gorm.DB, id uint) (*models.Issue, error) {
	return repository.New[models.Issue](db, "issue").Get(ctx, id, issuePreloads...)
}

func loadTemplate(ctx context.Context, db *gorm.DB, id uint) (*models.Template, error) {
	return repository.New[models.Template](db, "template").Get(ctx, id, templatePreloads...)
}

func loadState(ctx context.Context, db *gorm.DB, id uint) (*models.State, error) {
	return repository.New[models.State](db, "state").Get(ctx, id, statePreloads...)
}

func loadField(ctx context.Context, db *gorm.DB, id uint) (*models.Field, error) {
	return repository.New[models.Field](db, "field").Get(ctx, id, fieldPreloads...)
}

func loadProject(ctx context.Context, db *gorm.DB, id uint) (*models.Project, error) {
	return repository.New[models.Project](db, "project").Get(ctx, id)
}

func loadGroup(ctx context.Context, db *gorm.DB, id uint) (*models.Group, error) {
	return repository.New[models.Group](db, "group").Get(ctx, id, "Project")
}

func loadUser(ctx context.Context, db *gorm.DB, id uint) (*models.User, error) {
	return repository.New[models.User](db, "user").Get(ctx, id, "Groups")
}

// LoadActor fetches the acting user with the groups the voters need.
func (s *Service) LoadActor(ctx context.Context, id uint) (*models.User, error) {
	return loadUser(ctx, s.db, id)
}
