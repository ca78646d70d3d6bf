package services

import (
	"context"
	"errors"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/auth"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"gorm.io/gorm"
)

type LoginCommand struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterCommand struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Fullname string `json:"fullname" binding:"required,max=50"`
	Password string `json:"password" binding:"required,min=8"`
}

var errBadCredentials = apperrors.New(apperrors.CodeUnauthorized, "invalid email or password")

// Login checks the credentials of an internal account. Repeated failures lock
// the account for a while; the failure counter survives the failed attempt.
func (s *Service) Login(ctx context.Context, cmd LoginCommand) (*models.User, error) {
	var (
		user     *models.User
		loginErr error
	)

	err := s.transact(ctx, "auth.login", func(tx *gorm.DB) error {
		repo := repository.New[models.User](tx, "user")

		found, err := repo.FindBy(ctx, "email = ?", normalizeEmail(cmd.Email))
		if errors.Is(err, apperrors.ErrNotFound) {
			loginErr = errBadCredentials
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		switch {
		case found.Disabled:
			loginErr = apperrors.New(apperrors.CodeUnauthorized, "account is disabled")
			return nil
		case !found.IsInternal():
			loginErr = errBadCredentials
			return nil
		case found.IsLocked(now):
			loginErr = apperrors.New(apperrors.CodeAccountLock, "account is temporarily locked")
			return nil
		}

		if !auth.CheckPassword(found.PasswordHash, cmd.Password) {
			found.AuthFailures++
			if s.lockAttempts > 0 && found.AuthFailures >= s.lockAttempts {
				until := now.Add(s.lockDuration)
				found.LockedUntil = &until
				found.AuthFailures = 0
				s.log.Warn().Uint("user_id", found.ID).Time("locked_until", until).Msg("account locked after failed logins")
			}
			loginErr = errBadCredentials
			return repo.Save(ctx, found)
		}

		if found.AuthFailures > 0 || found.LockedUntil != nil {
			found.AuthFailures = 0
			found.LockedUntil = nil
			if err := repo.Save(ctx, found); err != nil {
				return err
			}
		}

		user, err = loadUser(ctx, tx, found.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if loginErr != nil {
		return nil, loginErr
	}
	return user, nil
}

// Register creates an account for a visitor when self-registration is enabled.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*models.User, error) {
	if !s.allowRegistration {
		return nil, deny("registration is disabled")
	}

	var user *models.User
	err := s.transact(ctx, "auth.register", func(tx *gorm.DB) error {
		var err error
		user, err = s.insertUser(ctx, tx, CreateUserCommand{
			UserCommand: UserCommand{Email: cmd.Email, Fullname: cmd.Fullname},
			Password:    cmd.Password,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
