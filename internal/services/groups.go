package services

import (
	"context"
	"strings"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupCommand struct {
	Name        string `json:"name" binding:"required,max=25"`
	Description string `json:"description" binding:"max=100"`
}

// CreateGroupCommand creates a global group when ProjectID is nil.
type CreateGroupCommand struct {
	ProjectID *uint `json:"project_id"`
	GroupCommand
}

type MembersCommand struct {
	Users []uint `json:"users" binding:"required"`
}

var groupColumns = repository.Columns{
	Search: []string{"user_groups.name", "user_groups.description"},
	Filters: map[string]repository.Filter{
		"project":     repository.NullableEquals("user_groups.project_id"),
		"name":        repository.Contains("user_groups.name"),
		"description": repository.Contains("user_groups.description"),
	},
	Sorts: map[string]string{
		"id":          "user_groups.id",
		"project":     "user_groups.project_id",
		"name":        "user_groups.name",
		"description": "user_groups.description",
	},
	Preloads: []string{"Project"},
}

func (s *Service) ListGroups(ctx context.Context, actor *models.User, q repository.Query) (*repository.Page[models.Group], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var page *repository.Page[models.Group]
	err := s.read(ctx, "group.list", func(db *gorm.DB) error {
		var err error
		page, err = repository.Collect[models.Group](ctx, db, q, groupColumns)
		return err
	})
	return page, err
}

func (s *Service) GetGroup(ctx context.Context, actor *models.User, id uint) (*models.Group, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var group *models.Group
	err := s.read(ctx, "group.get", func(db *gorm.DB) error {
		var err error
		group, err = loadGroup(ctx, db, id)
		return err
	})
	return group, err
}

func (s *Service) CreateGroup(ctx context.Context, actor *models.User, cmd CreateGroupCommand) (*models.Group, error) {
	if !s.groupVoter.CanCreate(actor) {
		return nil, deny("you are not allowed to create groups")
	}

	group := &models.Group{
		ProjectID:   cmd.ProjectID,
		Name:        strings.TrimSpace(cmd.Name),
		Description: strings.TrimSpace(cmd.Description),
	}

	err := s.transact(ctx, "group.create", func(tx *gorm.DB) error {
		if group.ProjectID != nil {
			project, err := loadProject(ctx, tx, *group.ProjectID)
			if err != nil {
				return err
			}
			group.Project = project
		}

		repo := repository.New[models.Group](tx, "group")
		if err := uniqueGroupName(ctx, repo, group); err != nil {
			return err
		}
		return repo.Create(ctx, group)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Service) UpdateGroup(ctx context.Context, actor *models.User, id uint, cmd GroupCommand) (*models.Group, error) {
	var group *models.Group
	err := s.transact(ctx, "group.update", func(tx *gorm.DB) error {
		var err error
		if group, err = loadGroup(ctx, tx, id); err != nil {
			return err
		}
		if !s.groupVoter.CanUpdate(actor, group) {
			return deny("you are not allowed to update this group")
		}

		group.Name = strings.TrimSpace(cmd.Name)
		group.Description = strings.TrimSpace(cmd.Description)

		repo := repository.New[models.Group](tx, "group")
		if err := uniqueGroupName(ctx, repo, group); err != nil {
			return err
		}
		return repo.Save(ctx, group)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Service) DeleteGroup(ctx context.Context, actor *models.User, id uint) error {
	return s.transact(ctx, "group.delete", func(tx *gorm.DB) error {
		group, err := loadGroup(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.groupVoter.CanDelete(actor, group) {
			return deny("you are not allowed to delete this group")
		}
		return repository.New[models.Group](tx, "group").Delete(ctx, group)
	})
}

func (s *Service) ListMembers(ctx context.Context, actor *models.User, id uint) ([]models.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var users []models.User
	err := s.read(ctx, "group.members", func(db *gorm.DB) error {
		group, err := loadGroup(ctx, db, id)
		if err != nil {
			return err
		}
		err = db.WithContext(ctx).
			Joins("JOIN memberships ON memberships.user_id = users.id").
			Where("memberships.group_id = ?", group.ID).
			Order("users.fullname, users.id").
			Find(&users).Error
		return apperrors.Wrap("user", err)
	})
	return users, err
}

func (s *Service) AddMembers(ctx context.Context, actor *models.User, id uint, cmd MembersCommand) error {
	return s.transact(ctx, "group.add_members", func(tx *gorm.DB) error {
		group, err := loadGroup(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.groupVoter.CanManageMembership(actor, group) {
			return deny("you are not allowed to change members of this group")
		}
		if err := checkUsersExist(ctx, tx, cmd.Users); err != nil {
			return err
		}
		return addMemberships(ctx, tx, memberships(cmd.Users, []uint{group.ID}))
	})
}

func (s *Service) RemoveMembers(ctx context.Context, actor *models.User, id uint, cmd MembersCommand) error {
	return s.transact(ctx, "group.remove_members", func(tx *gorm.DB) error {
		group, err := loadGroup(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.groupVoter.CanManageMembership(actor, group) {
			return deny("you are not allowed to change members of this group")
		}
		return repository.New[models.Membership](tx, "membership").
			DeleteWhere(ctx, "group_id = ? AND user_id IN ?", group.ID, dedupe(cmd.Users))
	})
}

func uniqueGroupName(ctx context.Context, repo *repository.Repository[models.Group], group *models.Group) error {
	var (
		taken bool
		err   error
	)
	if group.ProjectID == nil {
		taken, err = repo.Exists(ctx, "project_id IS NULL AND name = ? AND id <> ?", group.Name, group.ID)
	} else {
		taken, err = repo.Exists(ctx, "project_id = ? AND name = ? AND id <> ?", *group.ProjectID, group.Name, group.ID)
	}
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("group with name %q already exists", group.Name)
	}
	return nil
}

func memberships(userIDs, groupIDs []uint) []models.Membership {
	var rows []models.Membership
	for _, userID := range dedupe(userIDs) {
		for _, groupID := range dedupe(groupIDs) {
			rows = append(rows, models.Membership{UserID: userID, GroupID: groupID})
		}
	}
	return rows
}

// addMemberships inserts the rows, skipping memberships that already exist.
func addMemberships(ctx context.Context, db *gorm.DB, rows []models.Membership) error {
	if len(rows) == 0 {
		return nil
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	return apperrors.Wrap("membership", err)
}

func checkUsersExist(ctx context.Context, db *gorm.DB, userIDs []uint) error {
	ids := dedupe(userIDs)
	if len(ids) == 0 {
		return nil
	}
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return apperrors.Wrap("user", err)
	}
	if count != int64(len(ids)) {
		return apperrors.NotFound("user")
	}
	return nil
}

func checkGroupsExist(ctx context.Context, db *gorm.DB, groupIDs []uint) error {
	ids := dedupe(groupIDs)
	if len(ids) == 0 {
		return nil
	}
	var count int64
	if err := db.WithContext(ctx).Model(&models.Group{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return apperrors.Wrap("group", err)
	}
	if count != int64(len(ids)) {
		return apperrors.NotFound("group")
	}
	return nil
}
