package services

import (
	"context"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
)

type DependencyCommand struct {
	Issue uint `json:"issue" binding:"required"`
}

// ListDependencies returns the issues the issue depends on that the actor can see.
func (s *Service) ListDependencies(ctx context.Context, actor *models.User, id uint) ([]models.Issue, error) {
	var list []models.Issue
	err := s.read(ctx, "dependency.list", func(db *gorm.DB) error {
		issue, err := s.viewable(ctx, db, actor, id)
		if err != nil {
			return err
		}

		targets := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Dependency{}).
			Select("dependency_id").
			Where("issue_id = ?", issue.ID)

		query := db.WithContext(ctx).Scopes(repository.VisibleIssues(actor)).
			Where("issues.id IN (?)", targets).
			Order("issues.id")
		for _, p := range repository.IssueColumns.Preloads {
			query = query.Preload(p)
		}
		return apperrors.Wrap("issue", query.Find(&list).Error)
	})
	return list, err
}

// AddDependency makes the issue depend on another visible issue. An issue
// cannot depend on itself and dependencies never form a cycle.
func (s *Service) AddDependency(ctx context.Context, actor *models.User, id uint, cmd DependencyCommand) error {
	var published []events.IssueEvent
	err := s.transact(ctx, "dependency.add", func(tx *gorm.DB) error {
		issue, err := s.viewable(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !s.issueVoter.CanAddDependency(actor, issue) {
			return deny("you are not allowed to add dependencies to this issue")
		}
		if cmd.Issue == issue.ID {
			return apperrors.Validation("an issue cannot depend on itself")
		}

		target, err := loadIssue(ctx, tx, cmd.Issue)
		if err != nil {
			return err
		}
		if !s.issueVoter.CanView(actor, target) {
			return apperrors.NotFound("issue")
		}

		repo := repository.New[models.Dependency](tx, "dependency")
		exists, err := repo.Exists(ctx, "issue_id = ? AND dependency_id = ?", issue.ID, target.ID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		cyclic, err := dependsOn(ctx, tx, target.ID, issue.ID)
		if err != nil {
			return err
		}
		if cyclic {
			return apperrors.Conflict("%s already depends on %s", target.FullID(), issue.FullID())
		}

		if err := repo.Create(ctx, &models.Dependency{IssueID: issue.ID, DependencyID: target.ID}); err != nil {
			return err
		}

		line := s.timeline(ctx, tx, actor)
		if _, err := line.add(issue.ID, types.EventDependencyAdded, uintPtr(target.ID)); err != nil {
			return err
		}
		if err := line.touch(issue.ID); err != nil {
			return err
		}
		published, _, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return err
	}
	s.publish(published...)
	return nil
}

func (s *Service) RemoveDependency(ctx context.Context, actor *models.User, id, dependencyID uint) error {
	var published []events.IssueEvent
	err := s.transact(ctx, "dependency.remove", func(tx *gorm.DB) error {
		issue, err := s.viewable(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !s.issueVoter.CanRemoveDependency(actor, issue) {
			return deny("you are not allowed to remove dependencies of this issue")
		}

		repo := repository.New[models.Dependency](tx, "dependency")
		dependency, err := repo.FindBy(ctx, "issue_id = ? AND dependency_id = ?", issue.ID, dependencyID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, dependency); err != nil {
			return err
		}

		line := s.timeline(ctx, tx, actor)
		if _, err := line.add(issue.ID, types.EventDependencyRemoved, uintPtr(dependencyID)); err != nil {
			return err
		}
		if err := line.touch(issue.ID); err != nil {
			return err
		}
		published, _, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return err
	}
	s.publish(published...)
	return nil
}

// dependsOn walks the dependency graph breadth first and reports whether from
// reaches to.
func dependsOn(ctx context.Context, db *gorm.DB, from, to uint) (bool, error) {
	visited := map[uint]bool{from: true}
	queue := []uint{from}

	for len(queue) > 0 {
		var next []uint
		err := db.WithContext(ctx).Model(&models.Dependency{}).
			Where("issue_id IN ?", queue).
			Pluck("dependency_id", &next).Error
		if err != nil {
			return false, apperrors.Wrap("dependency", err)
		}

		queue = queue[:0]
		for _, id := range next {
			if id == to {
				return true, nil
			}
			if !visited[id] {
				visited[id] = true
				queue = append(queue, id)
			}
		}
	}
	return false, nil
}

func hasOpenDependencies(ctx context.Context, db *gorm.DB, issueID uint) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.Dependency{}).
		Joins("JOIN issues ON issues.id = dependencies.dependency_id").
		Where("dependencies.issue_id = ? AND issues.closed_at IS NULL", issueID).
		Limit(1).
		Count(&count).Error
	return count > 0, apperrors.Wrap("dependency", err)
}
