package services

import (
	"context"
	"strings"
	"time"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/monocle-dev/tracker/internal/voters"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Values maps field IDs to submitted values. A nil value clears the field.
type Values map[uint]*string

type CreateIssueCommand struct {
	TemplateID  uint   `json:"template_id" binding:"required"`
	Subject     string `json:"subject" binding:"required,max=250"`
	Responsible *uint  `json:"responsible"`
	Values      Values `json:"values"`
}

// CloneIssueCommand creates an issue from an existing one. Values not
// submitted are copied from the origin.
type CloneIssueCommand struct {
	Subject     string `json:"subject" binding:"required,max=250"`
	Responsible *uint  `json:"responsible"`
	Values      Values `json:"values"`
}

type UpdateIssueCommand struct {
	Subject *string `json:"subject" binding:"omitempty,max=250"`
	Values  Values  `json:"values"`
}

type ChangeStateCommand struct {
	Responsible *uint  `json:"responsible"`
	Values      Values `json:"values"`
}

type ReassignCommand struct {
	Responsible uint `json:"responsible" binding:"required"`
}

// SuspendCommand suspends an issue until the start of the given day in the
// actor's timezone.
type SuspendCommand struct {
	Until string `json:"until" binding:"required"`
}

// IssueView is an issue as one user sees it.
type IssueView struct {
	Issue       *models.Issue
	Closed      bool
	Suspended   bool
	Frozen      bool
	Critical    bool
	ReadAt      *time.Time
	Values      []ValueView
	Permissions map[voters.Attribute]bool
	Transitions []models.State
}

// ValueView is one readable field value.
type ValueView struct {
	Field    models.Field
	Value    *string
	Writable bool
}

// Now is the service clock, used to derive issue flags.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) ListIssues(ctx context.Context, actor *models.User, q repository.Query) (*repository.Page[models.Issue], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var page *repository.Page[models.Issue]
	err := s.read(ctx, "issue.list", func(db *gorm.DB) error {
		var err error
		page, err = repository.Collect[models.Issue](ctx, db.Scopes(repository.VisibleIssues(actor)), q, repository.IssueColumns)
		return err
	})
	return page, err
}

// viewable loads the issue and checks the actor may see it.
func (s *Service) viewable(ctx context.Context, db *gorm.DB, actor *models.User, id uint) (*models.Issue, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	issue, err := loadIssue(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if !s.issueVoter.CanView(actor, issue) {
		return nil, deny("you are not allowed to view this issue")
	}
	return issue, nil
}

// GetIssue returns the issue with what the actor may read and do, and marks
// it read by the actor.
func (s *Service) GetIssue(ctx context.Context, actor *models.User, id uint) (*IssueView, error) {
	var view *IssueView
	err := s.transact(ctx, "issue.get", func(tx *gorm.DB) error {
		issue, err := s.viewable(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		now := s.now()
		view = &IssueView{
			Issue:       issue,
			Closed:      issue.IsClosed(),
			Suspended:   issue.IsSuspended(now),
			Frozen:      issue.IsFrozen(now),
			Critical:    issue.IsCritical(now),
			Permissions: s.issueVoter.Permissions(actor, issue),
		}

		var read models.LastRead
		err = tx.WithContext(ctx).Where("issue_id = ? AND user_id = ?", issue.ID, actor.ID).Limit(1).Find(&read).Error
		if err != nil {
			return apperrors.Wrap("read mark", err)
		}
		if read.ID != 0 {
			at := read.ReadAt
			view.ReadAt = &at
		}

		_, rows, err := issueValues(ctx, tx, issue.ID)
		if err != nil {
			return err
		}
		for i := range rows {
			access := s.issueVoter.FieldAccess(actor, issue, &rows[i].Field)
			if !access.Includes(types.FieldPermissionRead) {
				continue
			}
			view.Values = append(view.Values, ValueView{
				Field:    rows[i].Field,
				Value:    rows[i].Value,
				Writable: access == types.FieldPermissionReadWrite,
			})
		}

		if view.Transitions, err = s.transitions(ctx, tx, actor, issue); err != nil {
			return err
		}

		mark := models.LastRead{IssueID: issue.ID, UserID: actor.ID, ReadAt: now}
		err = tx.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "issue_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"read_at", "updated_at"}),
		}).Create(&mark).Error
		return apperrors.Wrap("read mark", err)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// transitions lists the states the actor may move the issue to. Final states
// are left out while the issue has open dependencies.
func (s *Service) transitions(ctx context.Context, db *gorm.DB, actor *models.User, issue *models.Issue) ([]models.State, error) {
	blocked, err := hasOpenDependencies(ctx, db, issue.ID)
	if err != nil {
		return nil, err
	}

	states := make([]models.State, 0)
	for _, state := range issue.State.Template.States {
		if state.IsFinal() && blocked {
			continue
		}
		if s.issueVoter.CanChangeState(actor, issue, &state) {
			states = append(states, state)
		}
	}
	return states, nil
}

// MarkRead records that the actor has read the issues up to now.
func (s *Service) MarkRead(ctx context.Context, actor *models.User, ids []uint) error {
	return s.transact(ctx, "issue.mark_read", func(tx *gorm.DB) error {
		for _, id := range dedupe(ids) {
			if _, err := s.viewable(ctx, tx, actor, id); err != nil {
				return err
			}
			mark := models.LastRead{IssueID: id, UserID: actor.ID, ReadAt: s.now()}
			err := tx.WithContext(ctx).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "issue_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"read_at", "updated_at"}),
			}).Create(&mark).Error
			if err != nil {
				return apperrors.Wrap("read mark", err)
			}
		}
		return nil
	})
}

// MarkUnread forgets that the actor has read the issues.
func (s *Service) MarkUnread(ctx context.Context, actor *models.User, ids []uint) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.transact(ctx, "issue.mark_unread", func(tx *gorm.DB) error {
		return repository.New[models.LastRead](tx, "read mark").
			DeleteWhere(ctx, "user_id = ? AND issue_id IN ?", actor.ID, dedupe(ids))
	})
}

func (s *Service) CreateIssue(ctx context.Context, actor *models.User, cmd CreateIssueCommand) (*models.Issue, error) {
	return s.createIssue(ctx, actor, "issue.create", cmd, nil)
}

// CloneIssue creates a new issue of the origin's template. The actor must be
// able to see the origin.
func (s *Service) CloneIssue(ctx context.Context, actor *models.User, originID uint, cmd CloneIssueCommand) (*models.Issue, error) {
	var template uint
	err := s.read(ctx, "issue.clone.origin", func(db *gorm.DB) error {
		origin, err := s.viewable(ctx, db, actor, originID)
		if err != nil {
			return err
		}
		template = origin.State.TemplateID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.createIssue(ctx, actor, "issue.clone", CreateIssueCommand{
		TemplateID:  template,
		Subject:     cmd.Subject,
		Responsible: cmd.Responsible,
		Values:      cmd.Values,
	}, &originID)
}

func (s *Service) createIssue(ctx context.Context, actor *models.User, op string, cmd CreateIssueCommand, originID *uint) (*models.Issue, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		issue     *models.Issue
		published []events.IssueEvent
	)
	err := s.transact(ctx, op, func(tx *gorm.DB) error {
		template, err := loadTemplate(ctx, tx, cmd.TemplateID)
		if err != nil {
			return err
		}
		if !s.issueVoter.CanCreate(actor, template) {
			return deny("you are not allowed to create issues of this template")
		}

		initial, err := loadState(ctx, tx, template.InitialState().ID)
		if err != nil {
			return err
		}

		responsible, err := s.pickResponsible(ctx, tx, initial, cmd.Responsible, nil)
		if err != nil {
			return err
		}

		subject := strings.TrimSpace(cmd.Subject)
		if subject == "" {
			return apperrors.Validation("subject is required")
		}

		issue = &models.Issue{
			Subject:       subject,
			StateID:       initial.ID,
			AuthorID:      actor.ID,
			ResponsibleID: responsible,
			OriginID:      originID,
		}
		issue.CreatedAt = s.now()
		if err := repository.New[models.Issue](tx, "issue").Create(ctx, issue); err != nil {
			return err
		}

		fallback := Values{}
		if originID != nil {
			originValues, _, err := issueValues(ctx, tx, *originID)
			if err != nil {
				return err
			}
			for fieldID, row := range originValues {
				fallback[fieldID] = row.Value
			}
		}

		list, err := stateFields(ctx, tx, initial.ID)
		if err != nil {
			return err
		}
		writer := &valueWriter{
			ctx:      ctx,
			tx:       tx,
			env:      s.valueEnv(ctx, tx, actor),
			access:   func(f *models.Field) types.FieldPermission { return s.issueVoter.CreationFieldAccess(actor, f) },
			issueID:  issue.ID,
			existing: map[uint]*models.FieldValue{},
		}
		if _, err := writer.fill(list, cmd.Values, fallback); err != nil {
			return err
		}

		line := s.timeline(ctx, tx, actor)
		if _, err := line.add(issue.ID, types.EventIssueCreated, uintPtr(initial.ID)); err != nil {
			return err
		}
		if responsible != nil {
			if _, err := line.add(issue.ID, types.EventIssueAssigned, responsible); err != nil {
				return err
			}
		}

		published, issue, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(published...)
	return issue, nil
}

// UpdateIssue edits the subject and the values the actor may write. Every
// modified value is recorded as a change of one issue.edited event.
func (s *Service) UpdateIssue(ctx context.Context, actor *models.User, id uint, cmd UpdateIssueCommand) (*models.Issue, error) {
	var (
		issue     *models.Issue
		published []events.IssueEvent
	)
	err := s.transact(ctx, "issue.update", func(tx *gorm.DB) error {
		var err error
		if issue, err = s.viewable(ctx, tx, actor, id); err != nil {
			return err
		}
		if !s.issueVoter.CanUpdate(actor, issue) {
			return deny("you are not allowed to update this issue")
		}

		var changes []models.Change

		if cmd.Subject != nil {
			subject := strings.TrimSpace(*cmd.Subject)
			if subject == "" {
				return apperrors.Validation("subject is required")
			}
			if subject != issue.Subject {
				changes = append(changes, models.Change{OldValue: stringPtr(issue.Subject), NewValue: stringPtr(subject)})
				err := tx.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", issue.ID).Update("subject", subject).Error
				if err != nil {
					return apperrors.Wrap("issue", err)
				}
			}
		}

		existing, rows, err := issueValues(ctx, tx, issue.ID)
		if err != nil {
			return err
		}
		writer := &valueWriter{
			ctx:      ctx,
			tx:       tx,
			env:      s.valueEnv(ctx, tx, actor),
			access:   func(f *models.Field) types.FieldPermission { return s.issueVoter.FieldAccess(actor, issue, f) },
			issueID:  issue.ID,
			existing: existing,
		}
		for i := range rows {
			change, err := writer.update(&rows[i].Field, cmd.Values)
			if err != nil {
				return err
			}
			if change != nil {
				changes = append(changes, *change)
			}
		}

		if len(changes) == 0 {
			return nil
		}

		line := s.timeline(ctx, tx, actor)
		event, err := line.add(issue.ID, types.EventIssueEdited, nil)
		if err != nil {
			return err
		}
		if err := line.changes(event.ID, changes); err != nil {
			return err
		}
		if err := line.touch(issue.ID); err != nil {
			return err
		}

		published, issue, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(published...)
	return issue, nil
}

// DeleteIssue removes the issue with its history. Attached files are removed
// from disk once the deletion commits.
func (s *Service) DeleteIssue(ctx context.Context, actor *models.User, id uint) error {
	var uids []string
	err := s.transact(ctx, "issue.delete", func(tx *gorm.DB) error {
		issue, err := s.viewable(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !s.issueVoter.CanDelete(actor, issue) {
			return deny("you are not allowed to delete this issue")
		}

		err = tx.WithContext(ctx).Model(&models.File{}).Where("issue_id = ?", issue.ID).Pluck("uid", &uids).Error
		if err != nil {
			return apperrors.Wrap("file", err)
		}
		if err := repository.New[models.Watcher](tx, "watcher").DeleteWhere(ctx, "issue_id = ?", issue.ID); err != nil {
			return err
		}
		if err := repository.New[models.LastRead](tx, "read mark").DeleteWhere(ctx, "issue_id = ?", issue.ID); err != nil {
			return err
		}
		return repository.New[models.Issue](tx, "issue").Delete(ctx, issue)
	})
	if err != nil {
		return err
	}

	if s.files != nil {
		for _, uid := range uids {
			if err := s.files.Remove(uid); err != nil {
				s.log.Warn().Err(err).Str("uid", uid).Msg("failed to remove file of deleted issue")
			}
		}
	}
	return nil
}

// ChangeState moves the issue to another state of its template. Values of the
// target state's fields are filled in, the responsible follows the target's
// rule and entering a final state closes the issue.
func (s *Service) ChangeState(ctx context.Context, actor *models.User, id, stateID uint, cmd ChangeStateCommand) (*models.Issue, error) {
	var (
		issue     *models.Issue
		published []events.IssueEvent
	)
	err := s.transact(ctx, "issue.change_state", func(tx *gorm.DB) error {
		var err error
		if issue, err = s.viewable(ctx, tx, actor, id); err != nil {
			return err
		}
		target, err := loadState(ctx, tx, stateID)
		if err != nil {
			return err
		}
		if !s.issueVoter.CanChangeState(actor, issue, target) {
			return deny("you are not allowed to move this issue to that state")
		}

		if target.IsFinal() {
			blocked, err := hasOpenDependencies(ctx, tx, issue.ID)
			if err != nil {
				return err
			}
			if blocked {
				return apperrors.Conflict("issue %s has open dependencies", issue.FullID())
			}
		}

		responsible, err := s.pickResponsible(ctx, tx, target, cmd.Responsible, issue.ResponsibleID)
		if err != nil {
			return err
		}

		line := s.timeline(ctx, tx, actor)
		eventType := types.EventStateChanged
		closedAt := issue.ClosedAt
		switch {
		case target.IsFinal():
			eventType = types.EventIssueClosed
			closedAt = &line.at
		case issue.IsClosed():
			eventType = types.EventIssueReopened
			closedAt = nil
		}

		err = tx.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", issue.ID).Updates(map[string]any{
			"state_id":       target.ID,
			"responsible_id": responsible,
			"closed_at":      closedAt,
			"updated_at":     line.at,
		}).Error
		if err != nil {
			return apperrors.Wrap("issue", err)
		}
		issue.ResponsibleID = responsible

		existing, _, err := issueValues(ctx, tx, issue.ID)
		if err != nil {
			return err
		}
		list, err := stateFields(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		writer := &valueWriter{
			ctx:      ctx,
			tx:       tx,
			env:      s.valueEnv(ctx, tx, actor),
			access:   func(f *models.Field) types.FieldPermission { return s.issueVoter.FieldAccess(actor, issue, f) },
			issueID:  issue.ID,
			existing: existing,
		}
		if _, err := writer.fill(list, cmd.Values, nil); err != nil {
			return err
		}

		if _, err := line.add(issue.ID, eventType, uintPtr(target.ID)); err != nil {
			return err
		}
		if target.Responsible == types.ResponsibleAssign && responsible != nil {
			if _, err := line.add(issue.ID, types.EventIssueAssigned, responsible); err != nil {
				return err
			}
		}

		published, issue, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(published...)
	return issue, nil
}

// pickResponsible applies the state's responsible rule. Assign states need a
// responsible who is an enabled member of one of the state's responsible
// groups.
func (s *Service) pickResponsible(ctx context.Context, db *gorm.DB, state *models.State, requested, current *uint) (*uint, error) {
	switch state.Responsible {
	case types.ResponsibleRemove:
		return nil, nil
	case types.ResponsibleKeep:
		return current, nil
	}

	if requested == nil {
		return nil, apperrors.Validation("state %q requires a responsible", state.Name)
	}
	candidates, err := responsiblesOf(ctx, db, state)
	if err != nil {
		return nil, err
	}
	for _, u := range candidates {
		if u.ID == *requested {
			return uintPtr(u.ID), nil
		}
	}
	return nil, apperrors.Validation("user %d cannot be responsible in state %q", *requested, state.Name)
}

func (s *Service) ReassignIssue(ctx context.Context, actor *models.User, id uint, cmd ReassignCommand) (*models.Issue, error) {
	var (
		issue     *models.Issue
		published []events.IssueEvent
	)
	err := s.transact(ctx, "issue.reassign", func(tx *gorm.DB) error {
		var err error
		if issue, err = s.viewable(ctx, tx, actor, id); err != nil {
			return err
		}
		if !s.issueVoter.CanReassign(actor, issue) {
			return deny("you are not allowed to reassign this issue")
		}
		if issue.IsResponsible(cmd.Responsible) {
			return nil
		}

		responsible, err := s.pickResponsible(ctx, tx, &issue.State, &cmd.Responsible, issue.ResponsibleID)
		if err != nil {
			return err
		}

		line := s.timeline(ctx, tx, actor)
		err = tx.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", issue.ID).Updates(map[string]any{
			"responsible_id": responsible,
			"updated_at":     line.at,
		}).Error
		if err != nil {
			return apperrors.Wrap("issue", err)
		}
		if _, err := line.add(issue.ID, types.EventIssueAssigned, responsible); err != nil {
			return err
		}

		published, issue, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(published...)
	return issue, nil
}

// SuspendIssue suspends the issue until the given day, which must be in the
// future.
func (s *Service) SuspendIssue(ctx context.Context, actor *models.User, id uint, cmd SuspendCommand) (*models.Issue, error) {
	var (
		issue     *models.Issue
		published []events.IssueEvent
	)
	err := s.transact(ctx, "issue.suspend", func(tx *gorm.DB) error {
		var err error
		if issue, err = s.viewable(ctx, tx, actor, id); err != nil {
			return err
		}
		if !s.issueVoter.CanSuspend(actor, issue) {
			return deny("you are not allowed to suspend this issue")
		}

		env := s.valueEnv(ctx, tx, actor)
		until, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(cmd.Until), env.Today.Location())
		if err != nil {
			return apperrors.Validation("invalid date %q", cmd.Until)
		}
		if !until.After(env.Today) {
			return apperrors.Validation("an issue can only be suspended until a future date")
		}

		line := s.timeline(ctx, tx, actor)
		err = tx.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", issue.ID).Updates(map[string]any{
			"resumes_at": until.UTC(),
			"updated_at": line.at,
		}).Error
		if err != nil {
			return apperrors.Wrap("issue", err)
		}
		if _, err := line.add(issue.ID, types.EventIssueSuspended, nil); err != nil {
			return err
		}

		published, issue, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(published...)
	return issue, nil
}

func (s *Service) ResumeIssue(ctx context.Context, actor *models.User, id uint) (*models.Issue, error) {
	var (
		issue     *models.Issue
		published []events.IssueEvent
	)
	err := s.transact(ctx, "issue.resume", func(tx *gorm.DB) error {
		var err error
		if issue, err = s.viewable(ctx, tx, actor, id); err != nil {
			return err
		}
		if !s.issueVoter.CanResume(actor, issue) {
			return deny("you are not allowed to resume this issue")
		}

		line := s.timeline(ctx, tx, actor)
		err = tx.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", issue.ID).Updates(map[string]any{
			"resumes_at": nil,
			"updated_at": line.at,
		}).Error
		if err != nil {
			return apperrors.Wrap("issue", err)
		}
		if _, err := line.add(issue.ID, types.EventIssueResumed, nil); err != nil {
			return err
		}

		published, issue, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(published...)
	return issue, nil
}

func (s *Service) WatchIssue(ctx context.Context, actor *models.User, id uint) error {
	return s.transact(ctx, "issue.watch", func(tx *gorm.DB) error {
		issue, err := s.viewable(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		watcher := models.Watcher{IssueID: issue.ID, UserID: actor.ID}
		err = tx.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&watcher).Error
		return apperrors.Wrap("watcher", err)
	})
}

func (s *Service) UnwatchIssue(ctx context.Context, actor *models.User, id uint) error {
	return s.transact(ctx, "issue.unwatch", func(tx *gorm.DB) error {
		issue, err := s.viewable(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		return repository.New[models.Watcher](tx, "watcher").
			DeleteWhere(ctx, "issue_id = ? AND user_id = ?", issue.ID, actor.ID)
	})
}

func (s *Service) ListWatchers(ctx context.Context, actor *models.User, id uint) ([]models.User, error) {
	var users []models.User
	err := s.read(ctx, "issue.watchers", func(db *gorm.DB) error {
		issue, err := s.viewable(ctx, db, actor, id)
		if err != nil {
			return err
		}
		err = db.WithContext(ctx).
			Joins("JOIN watchers ON watchers.user_id = users.id").
			Where("watchers.issue_id = ?", issue.ID).
			Order("users.fullname, users.id").
			Find(&users).Error
		return apperrors.Wrap("user", err)
	})
	return users, err
}

// ListEvents returns the issue's history. Private comments are left out for
// users who may not read them.
func (s *Service) ListEvents(ctx context.Context, actor *models.User, id uint) ([]models.Event, error) {
	var list []models.Event
	err := s.read(ctx, "issue.events", func(db *gorm.DB) error {
		issue, err := s.viewable(ctx, db, actor, id)
		if err != nil {
			return err
		}
		query := db.WithContext(ctx).Preload("User").Where("issue_id = ?", issue.ID)
		if !s.issueVoter.CanReadPrivateComments(actor, issue) {
			query = query.Where("type <> ?", types.EventPrivateComment)
		}
		err = query.Order("created_at, id").Find(&list).Error
		return apperrors.Wrap("event", err)
	})
	return list, err
}

// ListChanges returns the edits of the subject and of the fields the actor
// may read.
func (s *Service) ListChanges(ctx context.Context, actor *models.User, id uint) ([]models.Change, error) {
	var list []models.Change
	err := s.read(ctx, "issue.changes", func(db *gorm.DB) error {
		issue, err := s.viewable(ctx, db, actor, id)
		if err != nil {
			return err
		}

		var all []models.Change
		err = db.WithContext(ctx).
			Joins("JOIN events ON events.id = changes.event_id").
			Preload("Event.User").
			Preload("Field.RolePermissions").
			Preload("Field.GroupPermissions").
			Where("events.issue_id = ?", issue.ID).
			Order("events.created_at, changes.id").
			Find(&all).Error
		if err != nil {
			return apperrors.Wrap("change", err)
		}

		for _, change := range all {
			if change.Field == nil || s.issueVoter.FieldAccess(actor, issue, change.Field).Includes(types.FieldPermissionRead) {
				list = append(list, change)
			}
		}
		return nil
	})
	return list, err
}
