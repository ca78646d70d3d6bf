package services

import (
	"context"
	"time"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
)

// timeline records the events of one command against one issue and builds
// the notifications to publish after commit.
type timeline struct {
	ctx   context.Context
	tx    *gorm.DB
	actor *models.User
	at    time.Time
	types []types.EventType
}

func (s *Service) timeline(ctx context.Context, tx *gorm.DB, actor *models.User) *timeline {
	return &timeline{ctx: ctx, tx: tx, actor: actor, at: s.now()}
}

// add stores an event of the issue. parameter is the state, user, file or
// dependency the event refers to, depending on its type.
func (t *timeline) add(issueID uint, eventType types.EventType, parameter *uint) (*models.Event, error) {
	event := &models.Event{
		IssueID:   issueID,
		UserID:    t.actor.ID,
		Type:      eventType,
		Parameter: parameter,
	}
	event.CreatedAt = t.at
	if err := repository.New[models.Event](t.tx, "event").Create(t.ctx, event); err != nil {
		return nil, err
	}
	t.types = append(t.types, eventType)
	return event, nil
}

// changes stores the value changes of an issue.edited event.
func (t *timeline) changes(eventID uint, changes []models.Change) error {
	if len(changes) == 0 {
		return nil
	}
	for i := range changes {
		changes[i].EventID = eventID
	}
	err := t.tx.WithContext(t.ctx).Omit("Event", "Field").Create(&changes).Error
	return apperrors.Wrap("change", err)
}

// touch bumps the issue's modification time without changing anything else.
func (t *timeline) touch(issueID uint) error {
	err := t.tx.WithContext(t.ctx).Model(&models.Issue{}).
		Where("id = ?", issueID).
		UpdateColumn("updated_at", t.at).Error
	return apperrors.Wrap("issue", err)
}

// notifications reloads the issue and turns the recorded events into
// notifications.
func (t *timeline) notifications(issueID uint) ([]events.IssueEvent, *models.Issue, error) {
	issue, err := loadIssue(t.ctx, t.tx, issueID)
	if err != nil {
		return nil, nil, err
	}
	out := make([]events.IssueEvent, 0, len(t.types))
	for _, eventType := range t.types {
		out = append(out, events.FromIssue(eventType, issue, t.actor, t.at))
	}
	return out, issue, nil
}

func uintPtr(v uint) *uint {
	return &v
}
