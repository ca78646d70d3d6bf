package services

import (
	"context"
	"strings"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
)

type CommentCommand struct {
	Body    string `json:"body" binding:"required,max=10000"`
	Private bool   `json:"private"`
}

// ListComments returns the comments of an issue in posting order. Private
// comments are left out for users who may not read them.
func (s *Service) ListComments(ctx context.Context, actor *models.User, id uint) ([]models.Comment, error) {
	var list []models.Comment
	err := s.read(ctx, "comment.list", func(db *gorm.DB) error {
		issue, err := s.viewable(ctx, db, actor, id)
		if err != nil {
			return err
		}
		query := db.WithContext(ctx).Preload("Event.User").Where("issue_id = ?", issue.ID)
		if !s.issueVoter.CanReadPrivateComments(actor, issue) {
			query = query.Where("private = ?", false)
		}
		err = query.Order("id").Find(&list).Error
		return apperrors.Wrap("comment", err)
	})
	return list, err
}

func (s *Service) AddComment(ctx context.Context, actor *models.User, id uint, cmd CommentCommand) (*models.Comment, error) {
	body := strings.TrimSpace(cmd.Body)
	if body == "" {
		return nil, apperrors.Validation("comment must not be empty")
	}

	var (
		comment   *models.Comment
		published []events.IssueEvent
	)
	err := s.transact(ctx, "comment.add", func(tx *gorm.DB) error {
		issue, err := s.viewable(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		eventType := types.EventPublicComment
		if cmd.Private {
			eventType = types.EventPrivateComment
			if !s.issueVoter.CanAddPrivateComment(actor, issue) {
				return deny("you are not allowed to add private comments to this issue")
			}
		} else if !s.issueVoter.CanAddPublicComment(actor, issue) {
			return deny("you are not allowed to comment on this issue")
		}

		line := s.timeline(ctx, tx, actor)
		event, err := line.add(issue.ID, eventType, nil)
		if err != nil {
			return err
		}
		comment = &models.Comment{EventID: event.ID, IssueID: issue.ID, Body: body, Private: cmd.Private}
		if err := repository.New[models.Comment](tx, "comment").Create(ctx, comment); err != nil {
			return err
		}
		if err := line.touch(issue.ID); err != nil {
			return err
		}
		event.User = *actor
		comment.Event = *event

		published, _, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(published...)
	return comment, nil
}
