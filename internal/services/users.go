package services

import (
	"context"
	"strings"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/auth"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
)

type UserCommand struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	Fullname    string `json:"fullname" binding:"required,max=50"`
	Description string `json:"description" binding:"max=100"`
	Admin       bool   `json:"admin"`
	Disabled    bool   `json:"disabled"`
	Locale      string `json:"locale" binding:"omitempty,max=5"`
	Timezone    string `json:"timezone" binding:"omitempty,timezone"`
}

type CreateUserCommand struct {
	UserCommand
	Password string `json:"password" binding:"required,min=8"`
}

type SetPasswordCommand struct {
	Password string `json:"password" binding:"required,min=8"`
}

type UserGroupsCommand struct {
	Groups []uint `json:"groups" binding:"required"`
}

type ProfileCommand struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Fullname string `json:"fullname" binding:"required,max=50"`
	Locale   string `json:"locale" binding:"omitempty,max=5"`
	Timezone string `json:"timezone" binding:"omitempty,timezone"`
}

type ChangePasswordCommand struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

var userColumns = repository.Columns{
	Search: []string{"users.email", "users.fullname", "users.description"},
	Filters: map[string]repository.Filter{
		"email":       repository.Contains("users.email"),
		"fullname":    repository.Contains("users.fullname"),
		"description": repository.Contains("users.description"),
		"admin":       repository.Bool("users.admin"),
		"disabled":    repository.Bool("users.disabled"),
		"provider":    repository.Equals("users.account_provider"),
	},
	Sorts: map[string]string{
		"id":          "users.id",
		"email":       "users.email",
		"fullname":    "users.fullname",
		"description": "users.description",
		"admin":       "users.admin",
		"provider":    "users.account_provider",
	},
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) ListUsers(ctx context.Context, actor *models.User, q repository.Query) (*repository.Page[models.User], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var page *repository.Page[models.User]
	err := s.read(ctx, "user.list", func(db *gorm.DB) error {
		var err error
		page, err = repository.Collect[models.User](ctx, db, q, userColumns)
		return err
	})
	return page, err
}

func (s *Service) GetUser(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var user *models.User
	err := s.read(ctx, "user.get", func(db *gorm.DB) error {
		var err error
		user, err = loadUser(ctx, db, id)
		return err
	})
	return user, err
}

func (s *Service) CreateUser(ctx context.Context, actor *models.User, cmd CreateUserCommand) (*models.User, error) {
	if !s.userVoter.CanCreate(actor) {
		return nil, deny("you are not allowed to create users")
	}

	var user *models.User
	err := s.transact(ctx, "user.create", func(tx *gorm.DB) error {
		var err error
		user, err = s.insertUser(ctx, tx, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Bootstrap creates an account from the command line, where there is no
// signed-in administrator yet.
func (s *Service) Bootstrap(ctx context.Context, cmd CreateUserCommand) (*models.User, error) {
	var user *models.User
	err := s.transact(ctx, "user.bootstrap", func(tx *gorm.DB) error {
		var err error
		user, err = s.insertUser(ctx, tx, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("user_id", user.ID).Bool("admin", user.Admin).Msg("user created from command line")
	return user, nil
}

// insertUser creates an internal account. It does no permission checks.
func (s *Service) insertUser(ctx context.Context, tx *gorm.DB, cmd CreateUserCommand) (*models.User, error) {
	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{PasswordHash: hash, AccountProvider: types.ProviderInternal}
	applyUser(user, cmd.UserCommand)

	repo := repository.New[models.User](tx, "user")
	if err := uniqueEmail(ctx, repo, user); err != nil {
		return nil, err
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) UpdateUser(ctx context.Context, actor *models.User, id uint, cmd UserCommand) (*models.User, error) {
	var user *models.User
	err := s.transact(ctx, "user.update", func(tx *gorm.DB) error {
		var err error
		if user, err = loadUser(ctx, tx, id); err != nil {
			return err
		}
		if !s.userVoter.CanUpdate(actor, user) {
			return deny("you are not allowed to update this user")
		}
		if user.ID == actor.ID && (cmd.Disabled || !cmd.Admin) {
			return apperrors.Validation("you cannot disable yourself or revoke your own admin rights")
		}

		applyUser(user, cmd)

		repo := repository.New[models.User](tx, "user")
		if err := uniqueEmail(ctx, repo, user); err != nil {
			return err
		}
		return repo.Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, actor *models.User, id uint) error {
	return s.transact(ctx, "user.delete", func(tx *gorm.DB) error {
		user, err := loadUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.userVoter.CanDelete(actor, user) {
			return deny("you are not allowed to delete this user")
		}
		return repository.New[models.User](tx, "user").Delete(ctx, user)
	})
}

func (s *Service) DisableUser(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	return s.updateUser(ctx, "user.disable", id, func(user *models.User) error {
		if !s.userVoter.CanDisable(actor, user) {
			return deny("you are not allowed to disable this user")
		}
		user.Disabled = true
		return nil
	})
}

func (s *Service) EnableUser(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	return s.updateUser(ctx, "user.enable", id, func(user *models.User) error {
		if !s.userVoter.CanEnable(actor, user) {
			return deny("you are not allowed to enable this user")
		}
		user.Disabled = false
		return nil
	})
}

// UnlockUser clears a lockout caused by failed logins.
func (s *Service) UnlockUser(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	return s.updateUser(ctx, "user.unlock", id, func(user *models.User) error {
		if !s.userVoter.CanUnlock(actor, user) {
			return deny("you are not allowed to unlock this user")
		}
		user.AuthFailures = 0
		user.LockedUntil = nil
		return nil
	})
}

func (s *Service) SetPassword(ctx context.Context, actor *models.User, id uint, cmd SetPasswordCommand) error {
	_, err := s.updateUser(ctx, "user.set_password", id, func(user *models.User) error {
		if !s.userVoter.CanSetPassword(actor, user) {
			return deny("you are not allowed to set the password of this user")
		}
		hash, err := auth.HashPassword(cmd.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		return nil
	})
	return err
}

func (s *Service) AddUserGroups(ctx context.Context, actor *models.User, id uint, cmd UserGroupsCommand) (*models.User, error) {
	var user *models.User
	err := s.transact(ctx, "user.add_groups", func(tx *gorm.DB) error {
		target, err := loadUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.userVoter.CanManageMembership(actor, target) {
			return deny("you are not allowed to change groups of this user")
		}
		if err := checkGroupsExist(ctx, tx, cmd.Groups); err != nil {
			return err
		}
		if err := addMemberships(ctx, tx, memberships([]uint{target.ID}, cmd.Groups)); err != nil {
			return err
		}
		user, err = loadUser(ctx, tx, target.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) RemoveUserGroups(ctx context.Context, actor *models.User, id uint, cmd UserGroupsCommand) (*models.User, error) {
	var user *models.User
	err := s.transact(ctx, "user.remove_groups", func(tx *gorm.DB) error {
		target, err := loadUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.userVoter.CanManageMembership(actor, target) {
			return deny("you are not allowed to change groups of this user")
		}
		err = repository.New[models.Membership](tx, "membership").
			DeleteWhere(ctx, "user_id = ? AND group_id IN ?", target.ID, dedupe(cmd.Groups))
		if err != nil {
			return err
		}
		user, err = loadUser(ctx, tx, target.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetProfile(ctx context.Context, actor *models.User) (*models.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var user *models.User
	err := s.read(ctx, "profile.get", func(db *gorm.DB) error {
		var err error
		user, err = loadUser(ctx, db, actor.ID)
		return err
	})
	return user, err
}

// UpdateProfile lets users edit their own account. Email and name of
// externally managed accounts come from their provider and are kept.
func (s *Service) UpdateProfile(ctx context.Context, actor *models.User, cmd ProfileCommand) (*models.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.updateUser(ctx, "profile.update", actor.ID, func(user *models.User) error {
		if user.IsInternal() {
			user.Email = normalizeEmail(cmd.Email)
			user.Fullname = strings.TrimSpace(cmd.Fullname)
		}
		if cmd.Locale != "" {
			user.Locale = cmd.Locale
		}
		if cmd.Timezone != "" {
			user.Timezone = cmd.Timezone
		}
		return nil
	})
}

func (s *Service) ChangePassword(ctx context.Context, actor *models.User, cmd ChangePasswordCommand) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	_, err := s.updateUser(ctx, "profile.change_password", actor.ID, func(user *models.User) error {
		if !s.userVoter.CanSetPassword(actor, user) {
			return deny("the password of this account is managed elsewhere")
		}
		if !auth.CheckPassword(user.PasswordHash, cmd.CurrentPassword) {
			return apperrors.Validation("current password is wrong")
		}
		hash, err := auth.HashPassword(cmd.NewPassword)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		return nil
	})
	return err
}

// updateUser loads the user, lets mutate change it and saves it.
func (s *Service) updateUser(ctx context.Context, op string, id uint, mutate func(*models.User) error) (*models.User, error) {
	var user *models.User
	err := s.transact(ctx, op, func(tx *gorm.DB) error {
		var err error
		if user, err = loadUser(ctx, tx, id); err != nil {
			return err
		}
		if err := mutate(user); err != nil {
			return err
		}
		repo := repository.New[models.User](tx, "user")
		if err := uniqueEmail(ctx, repo, user); err != nil {
			return err
		}
		return repo.Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func applyUser(user *models.User, cmd UserCommand) {
	user.Email = normalizeEmail(cmd.Email)
	user.Fullname = strings.TrimSpace(cmd.Fullname)
	user.Description = strings.TrimSpace(cmd.Description)
	user.Admin = cmd.Admin
	user.Disabled = cmd.Disabled
	user.Locale = cmd.Locale
	if user.Locale == "" {
		user.Locale = "en"
	}
	user.Timezone = cmd.Timezone
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}
}

func uniqueEmail(ctx context.Context, repo *repository.Repository[models.User], user *models.User) error {
	taken, err := repo.Exists(ctx, "email = ? AND id <> ?", user.Email, user.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("user with email %q already exists", user.Email)
	}
	return nil
}
