package services

import (
	"context"
	"strings"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"gorm.io/gorm"
)

type ProjectCommand struct {
	Name           string `json:"name" binding:"required,max=25"`
	Description    string `json:"description" binding:"max=100"`
	DiscordWebhook string `json:"discord_webhook" binding:"omitempty,url"`
	SlackWebhook   string `json:"slack_webhook" binding:"omitempty,url"`
}

var projectColumns = repository.Columns{
	Search: []string{"name", "description"},
	Filters: map[string]repository.Filter{
		"name":        repository.Contains("name"),
		"description": repository.Contains("description"),
		"suspended":   repository.Bool("suspended"),
	},
	Sorts: map[string]string{
		"id":          "id",
		"name":        "name",
		"description": "description",
		"created_at":  "created_at",
		"suspended":   "suspended",
	},
}

func (s *Service) ListProjects(ctx context.Context, actor *models.User, q repository.Query) (*repository.Page[models.Project], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var page *repository.Page[models.Project]
	err := s.read(ctx, "project.list", func(db *gorm.DB) error {
		var err error
		page, err = repository.Collect[models.Project](ctx, db, q, projectColumns)
		return err
	})
	return page, err
}

func (s *Service) GetProject(ctx context.Context, actor *models.User, id uint) (*models.Project, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var project *models.Project
	err := s.read(ctx, "project.get", func(db *gorm.DB) error {
		var err error
		project, err = loadProject(ctx, db, id)
		return err
	})
	return project, err
}

func (s *Service) CreateProject(ctx context.Context, actor *models.User, cmd ProjectCommand) (*models.Project, error) {
	if !s.projectVoter.CanCreate(actor) {
		return nil, deny("you are not allowed to create projects")
	}

	project := &models.Project{
		Name:           strings.TrimSpace(cmd.Name),
		Description:    strings.TrimSpace(cmd.Description),
		DiscordWebhook: cmd.DiscordWebhook,
		SlackWebhook:   cmd.SlackWebhook,
	}

	err := s.transact(ctx, "project.create", func(tx *gorm.DB) error {
		repo := repository.New[models.Project](tx, "project")
		if err := uniqueProjectName(ctx, repo, project.Name, 0); err != nil {
			return err
		}
		return repo.Create(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) UpdateProject(ctx context.Context, actor *models.User, id uint, cmd ProjectCommand) (*models.Project, error) {
	var project *models.Project
	err := s.transact(ctx, "project.update", func(tx *gorm.DB) error {
		var err error
		if project, err = loadProject(ctx, tx, id); err != nil {
			return err
		}
		if !s.projectVoter.CanUpdate(actor, project) {
			return deny("you are not allowed to update this project")
		}

		repo := repository.New[models.Project](tx, "project")
		name := strings.TrimSpace(cmd.Name)
		if err := uniqueProjectName(ctx, repo, name, project.ID); err != nil {
			return err
		}

		project.Name = name
		project.Description = strings.TrimSpace(cmd.Description)
		project.DiscordWebhook = cmd.DiscordWebhook
		project.SlackWebhook = cmd.SlackWebhook
		return repo.Save(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) DeleteProject(ctx context.Context, actor *models.User, id uint) error {
	return s.transact(ctx, "project.delete", func(tx *gorm.DB) error {
		project, err := loadProject(ctx, tx, id)
		if err != nil {
			return err
		}

		hasIssues, err := projectHasIssues(ctx, tx, project.ID)
		if err != nil {
			return err
		}
		if !s.projectVoter.CanDelete(actor, project, hasIssues) {
			if hasIssues {
				return apperrors.Conflict("project %q still has issues", project.Name)
			}
			return deny("you are not allowed to delete this project")
		}

		return repository.New[models.Project](tx, "project").Delete(ctx, project)
	})
}

func (s *Service) SuspendProject(ctx context.Context, actor *models.User, id uint) (*models.Project, error) {
	return s.setProjectSuspended(ctx, actor, id, true)
}

func (s *Service) ResumeProject(ctx context.Context, actor *models.User, id uint) (*models.Project, error) {
	return s.setProjectSuspended(ctx, actor, id, false)
}

func (s *Service) setProjectSuspended(ctx context.Context, actor *models.User, id uint, suspended bool) (*models.Project, error) {
	op := "project.resume"
	if suspended {
		op = "project.suspend"
	}

	var project *models.Project
	err := s.transact(ctx, op, func(tx *gorm.DB) error {
		var err error
		if project, err = loadProject(ctx, tx, id); err != nil {
			return err
		}

		allowed := s.projectVoter.CanResume(actor, project)
		if suspended {
			allowed = s.projectVoter.CanSuspend(actor, project)
		}
		if !allowed {
			return deny("you are not allowed to change the project's suspension")
		}

		project.Suspended = suspended
		return repository.New[models.Project](tx, "project").Save(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func uniqueProjectName(ctx context.Context, repo *repository.Repository[models.Project], name string, exceptID uint) error {
	taken, err := repo.Exists(ctx, "name = ? AND id <> ?", name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("project with name %q already exists", name)
	}
	return nil
}

func projectHasIssues(ctx context.Context, db *gorm.DB, projectID uint) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.Issue{}).
		Joins("JOIN states ON states.id = issues.state_id").
		Joins("JOIN templates ON templates.id = states.template_id").
		Where("templates.project_id = ?", projectID).
		Limit(1).
		Count(&count).Error
	return count > 0, apperrors.Wrap("issue", err)
}
