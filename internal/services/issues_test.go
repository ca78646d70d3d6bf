package services

import (
	"testing"
	"time"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/monocle-dev/tracker/internal/voters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIssue(t *testing.T) {
	f := newFixture(t)

	issue, err := f.svc.CreateIssue(f.ctx, f.author, CreateIssueCommand{
		TemplateID: f.template.ID,
		Subject:    "  Crash on save  ",
		Values: Values{
			f.priority.ID:    str("1"),
			f.description.ID: str("Steps to reproduce"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Crash on save", issue.Subject)
	assert.Equal(t, f.stateNew.ID, issue.StateID)
	assert.Equal(t, f.author.ID, issue.AuthorID)
	assert.Nil(t, issue.ResponsibleID)
	assert.Equal(t, "BUG-001", issue.FullID())
	assert.Equal(t, "1", *f.value(issue.ID, f.priority.ID))
	assert.Equal(t, "Steps to reproduce", *f.value(issue.ID, f.description.ID))

	assert.Equal(t, []types.EventType{types.EventIssueCreated}, f.rec.Types())
	assert.Equal(t, "Tracker", f.rec.Events[0].Project)
	assert.Equal(t, "New", f.rec.Events[0].State)
	assert.Equal(t, "Author", f.rec.Events[0].Actor)
}

func TestCreateIssue_Defaults(t *testing.T) {
	f := newFixture(t)

	issue, err := f.svc.CreateIssue(f.ctx, f.author, CreateIssueCommand{TemplateID: f.template.ID, Subject: "Defaults"})
	require.NoError(t, err)
	assert.Equal(t, "2", *f.value(issue.ID, f.priority.ID))
	assert.Nil(t, f.value(issue.ID, f.description.ID))
}

func TestCreateIssue_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		cmd  CreateIssueCommand
	}{
		{
			name: "required value cleared",
			cmd:  CreateIssueCommand{TemplateID: f.template.ID, Subject: "x", Values: Values{f.priority.ID: nil}},
		},
		{
			name: "unknown list item",
			cmd:  CreateIssueCommand{TemplateID: f.template.ID, Subject: "x", Values: Values{f.priority.ID: str("9")}},
		},
		{
			name: "blank subject",
			cmd:  CreateIssueCommand{TemplateID: f.template.ID, Subject: "   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateIssue(f.ctx, f.author, tt.cmd)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	var count int64
	require.NoError(t, f.db.Table("issues").Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.rec.Events)
}

func TestCreateIssue_Forbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.LockTemplate(f.ctx, f.admin, f.template.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateIssue(f.ctx, f.author, CreateIssueCommand{TemplateID: f.template.ID, Subject: "x"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.CreateIssue(f.ctx, nil, CreateIssueCommand{TemplateID: f.template.ID, Subject: "x"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestCreateIssue_SuspendedProject(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Before suspension", "2")

	_, err := f.svc.SuspendProject(f.ctx, f.admin, f.project.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateIssue(f.ctx, f.author, CreateIssueCommand{TemplateID: f.template.ID, Subject: "x"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.UpdateIssue(f.ctx, f.author, issue.ID, UpdateIssueCommand{Subject: str("Changed")})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCloneIssue(t *testing.T) {
	f := newFixture(t)
	origin := f.newIssue("Original", "1")

	clone, err := f.svc.CloneIssue(f.ctx, f.author, origin.ID, CloneIssueCommand{Subject: "Copy"})
	require.NoError(t, err)

	require.NotNil(t, clone.OriginID)
	assert.Equal(t, origin.ID, *clone.OriginID)
	assert.Equal(t, "1", *f.value(clone.ID, f.priority.ID))

	_, err = f.svc.CloneIssue(f.ctx, f.stranger, origin.ID, CloneIssueCommand{Subject: "Copy"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetIssue(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Crash", "1")

	view, err := f.svc.GetIssue(f.ctx, f.developer, issue.ID)
	require.NoError(t, err)

	assert.False(t, view.Closed)
	assert.False(t, view.Critical)
	assert.Nil(t, view.ReadAt)
	assert.False(t, view.Permissions[voters.UpdateIssue])
	assert.True(t, view.Permissions[voters.AddPrivateComment])
	assert.Empty(t, view.Transitions)

	require.Len(t, view.Values, 2)
	assert.Equal(t, "Priority", view.Values[0].Field.Name)
	assert.Equal(t, "1", *view.Values[0].Value)
	assert.False(t, view.Values[0].Writable)

	view, err = f.svc.GetIssue(f.ctx, f.developer, issue.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ReadAt)
	assert.True(t, view.ReadAt.Equal(f.now))

	require.NoError(t, f.svc.MarkUnread(f.ctx, f.developer, []uint{issue.ID}))
	view, err = f.svc.GetIssue(f.ctx, f.developer, issue.ID)
	require.NoError(t, err)
	assert.Nil(t, view.ReadAt)

	view, err = f.svc.GetIssue(f.ctx, f.manager, issue.ID)
	require.NoError(t, err)
	require.Len(t, view.Transitions, 1)
	assert.Equal(t, "Assigned", view.Transitions[0].Name)

	_, err = f.svc.GetIssue(f.ctx, f.stranger, issue.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.GetIssue(f.ctx, f.author, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetIssue_Critical(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Old", "2")

	f.now = f.now.AddDate(0, 0, 6)
	view, err := f.svc.GetIssue(f.ctx, f.author, issue.ID)
	require.NoError(t, err)
	assert.True(t, view.Critical)
}

func TestListIssues_Visibility(t *testing.T) {
	f := newFixture(t)
	f.newIssue("First", "1")
	f.newIssue("Second", "2")

	own, err := f.svc.CreateIssue(f.ctx, f.stranger, CreateIssueCommand{TemplateID: f.template.ID, Subject: "Stranger's"})
	require.NoError(t, err)

	page, err := f.svc.ListIssues(f.ctx, f.stranger, repository.Query{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, own.ID, page.Data[0].ID)

	page, err = f.svc.ListIssues(f.ctx, f.developer, repository.Query{
		Search: "second",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, "Second", page.Data[0].Subject)
	assert.Equal(t, "BUG", page.Data[0].State.Template.Prefix)

	page, err = f.svc.ListIssues(f.ctx, f.manager, repository.Query{Sorts: []repository.Sort{{Field: "subject", Desc: true}}})
	require.NoError(t, err)
	require.Len(t, page.Data, 3)
	assert.Equal(t, "Stranger's", page.Data[0].Subject)
}

func TestUpdateIssue(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Crash", "1")
	f.rec.Events = nil

	updated, err := f.svc.UpdateIssue(f.ctx, f.author, issue.ID, UpdateIssueCommand{
		Subject: str("Crash on save"),
		Values: Values{
			f.priority.ID:    str("3"),
			f.description.ID: nil,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Crash on save", updated.Subject)
	assert.Equal(t, "3", *f.value(issue.ID, f.priority.ID))
	assert.Equal(t, []types.EventType{types.EventIssueEdited}, f.rec.Types())

	changes, err := f.svc.ListChanges(f.ctx, f.developer, issue.ID)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Nil(t, changes[0].FieldID)
	assert.Equal(t, "Crash", *changes[0].OldValue)
	assert.Equal(t, "Crash on save", *changes[0].NewValue)
	assert.Equal(t, f.priority.ID, *changes[1].FieldID)
	assert.Equal(t, "1", *changes[1].OldValue)
	assert.Equal(t, "3", *changes[1].NewValue)

	// Nothing changed, nothing recorded.
	_, err = f.svc.UpdateIssue(f.ctx, f.author, issue.ID, UpdateIssueCommand{Subject: str("Crash on save")})
	require.NoError(t, err)
	assert.Len(t, f.rec.Events, 1)

	_, err = f.svc.UpdateIssue(f.ctx, f.developer, issue.ID, UpdateIssueCommand{Subject: str("Mine")})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.UpdateIssue(f.ctx, f.author, issue.ID, UpdateIssueCommand{Values: Values{f.priority.ID: nil}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestChangeState_Workflow(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Crash", "1")
	f.rec.Events = nil

	_, err := f.svc.ChangeState(f.ctx, f.manager, issue.ID, f.stateAssigned.ID, ChangeStateCommand{})
	assert.ErrorIs(t, err, apperrors.ErrValidation, "assign state needs a responsible")

	_, err = f.svc.ChangeState(f.ctx, f.manager, issue.ID, f.stateAssigned.ID, ChangeStateCommand{Responsible: &f.stranger.ID})
	assert.ErrorIs(t, err, apperrors.ErrValidation, "stranger is not a developer")

	_, err = f.svc.ChangeState(f.ctx, f.developer, issue.ID, f.stateAssigned.ID, ChangeStateCommand{Responsible: &f.developer.ID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	assigned, err := f.svc.ChangeState(f.ctx, f.manager, issue.ID, f.stateAssigned.ID, ChangeStateCommand{
		Responsible: &f.developer.ID,
		Values:      Values{f.dueDate.ID: str("2024-03-20")},
	})
	require.NoError(t, err)
	assert.Equal(t, f.stateAssigned.ID, assigned.StateID)
	require.NotNil(t, assigned.ResponsibleID)
	assert.Equal(t, f.developer.ID, *assigned.ResponsibleID)
	assert.Equal(t, "2024-03-20", *f.value(issue.ID, f.dueDate.ID))
	assert.Equal(t, []types.EventType{types.EventStateChanged, types.EventIssueAssigned}, f.rec.Types())

	closed, err := f.svc.ChangeState(f.ctx, f.developer, issue.ID, f.stateClosed.ID, ChangeStateCommand{})
	require.NoError(t, err)
	assert.True(t, closed.IsClosed())
	assert.Nil(t, closed.ResponsibleID)
	assert.Equal(t, types.EventIssueClosed, f.rec.Events[len(f.rec.Events)-1].Type)

	reopened, err := f.svc.ChangeState(f.ctx, f.author, issue.ID, f.stateNew.ID, ChangeStateCommand{})
	require.NoError(t, err)
	assert.False(t, reopened.IsClosed())
	assert.Equal(t, f.stateNew.ID, reopened.StateID)
	assert.Equal(t, types.EventIssueReopened, f.rec.Events[len(f.rec.Events)-1].Type)

	history, err := f.svc.ListEvents(f.ctx, f.author, issue.ID)
	require.NoError(t, err)
	got := make([]types.EventType, 0, len(history))
	for _, e := range history {
		got = append(got, e.Type)
	}
	assert.Equal(t, []types.EventType{
		types.EventIssueCreated,
		types.EventStateChanged,
		types.EventIssueAssigned,
		types.EventIssueClosed,
		types.EventIssueReopened,
	}, got)
	require.NotNil(t, history[1].Parameter)
	assert.Equal(t, f.stateAssigned.ID, *history[1].Parameter)
	assert.Equal(t, f.developer.ID, *history[2].Parameter)
}

func TestChangeState_FrozenIssue(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Crash", "1")

	_, err := f.svc.ChangeState(f.ctx, f.author, issue.ID, f.stateClosed.ID, ChangeStateCommand{})
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 8)
	_, err = f.svc.ChangeState(f.ctx, f.author, issue.ID, f.stateNew.ID, ChangeStateCommand{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestChangeState_OpenDependencies(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Release", "1")
	blocker := f.newIssue("Blocker", "1")

	require.NoError(t, f.svc.AddDependency(f.ctx, f.author, issue.ID, DependencyCommand{Issue: blocker.ID}))

	view, err := f.svc.GetIssue(f.ctx, f.author, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Transitions)

	_, err = f.svc.ChangeState(f.ctx, f.author, issue.ID, f.stateClosed.ID, ChangeStateCommand{})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.svc.ChangeState(f.ctx, f.author, blocker.ID, f.stateClosed.ID, ChangeStateCommand{})
	require.NoError(t, err)

	closed, err := f.svc.ChangeState(f.ctx, f.author, issue.ID, f.stateClosed.ID, ChangeStateCommand{})
	require.NoError(t, err)
	assert.True(t, closed.IsClosed())
}

func TestReassignIssue(t *testing.T) {
	f := newFixture(t)
	issue := f.assign(f.newIssue("Crash", "1"))

	_, err := f.svc.ReassignIssue(f.ctx, f.manager, issue.ID, ReassignCommand{Responsible: f.stranger.ID})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.ReassignIssue(f.ctx, f.author, issue.ID, ReassignCommand{Responsible: f.developer.ID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	other := f.actor(f.stranger.ID)
	require.NoError(t, f.svc.AddMembers(f.ctx, f.admin, f.developers.ID, MembersCommand{Users: []uint{other.ID}}))

	f.rec.Events = nil
	reassigned, err := f.svc.ReassignIssue(f.ctx, f.manager, issue.ID, ReassignCommand{Responsible: other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, *reassigned.ResponsibleID)
	assert.Equal(t, []types.EventType{types.EventIssueAssigned}, f.rec.Types())
}

func TestSuspendAndResume(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Crash", "1")

	_, err := f.svc.SuspendIssue(f.ctx, f.manager, issue.ID, SuspendCommand{Until: "2024-03-15"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.SuspendIssue(f.ctx, f.manager, issue.ID, SuspendCommand{Until: "next week"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	suspended, err := f.svc.SuspendIssue(f.ctx, f.manager, issue.ID, SuspendCommand{Until: "2024-03-20"})
	require.NoError(t, err)
	assert.True(t, suspended.IsSuspended(f.now))
	assert.True(t, suspended.ResumesAt.Equal(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)))

	_, err = f.svc.UpdateIssue(f.ctx, f.author, issue.ID, UpdateIssueCommand{Subject: str("Edit")})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	resumed, err := f.svc.ResumeIssue(f.ctx, f.manager, issue.ID)
	require.NoError(t, err)
	assert.False(t, resumed.IsSuspended(f.now))

	_, err = f.svc.ResumeIssue(f.ctx, f.manager, issue.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDeleteIssue(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Crash", "1")
	require.NoError(t, f.svc.WatchIssue(f.ctx, f.developer, issue.ID))

	assert.ErrorIs(t, f.svc.DeleteIssue(f.ctx, f.author, issue.ID), apperrors.ErrForbidden)
	require.NoError(t, f.svc.DeleteIssue(f.ctx, f.manager, issue.ID))

	_, err := f.svc.GetIssue(f.ctx, f.author, issue.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var count int64
	require.NoError(t, f.db.Table("watchers").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Table("field_values").Count(&count).Error)
	assert.Zero(t, count)
}

func TestWatchers(t *testing.T) {
	f := newFixture(t)
	issue := f.newIssue("Crash", "1")

	require.NoError(t, f.svc.WatchIssue(f.ctx, f.developer, issue.ID))
	require.NoError(t, f.svc.WatchIssue(f.ctx, f.developer, issue.ID))
	require.NoError(t, f.svc.WatchIssue(f.ctx, f.manager, issue.ID))
	assert.ErrorIs(t, f.svc.WatchIssue(f.ctx, f.stranger, issue.ID), apperrors.ErrForbidden)

	watchers, err := f.svc.ListWatchers(f.ctx, f.author, issue.ID)
	require.NoError(t, err)
	require.Len(t, watchers, 2)
	assert.Equal(t, "Developer", watchers[0].Fullname)
	assert.Equal(t, "Manager", watchers[1].Fullname)

	require.NoError(t, f.svc.UnwatchIssue(f.ctx, f.developer, issue.ID))
	watchers, err = f.svc.ListWatchers(f.ctx, f.author, issue.ID)
	require.NoError(t, err)
	assert.Len(t, watchers, 1)
}
