package services

import (
	"context"
	"testing"
	"time"

	"github.com/monocle-dev/tracker/internal/auth"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/storage"
	"github.com/monocle-dev/tracker/internal/testutil"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testPassword = "secret123"

// fixture is a project with a three-state bug workflow:
//
//	New (initial) --managers--> Assigned (assign, developers) --responsible--> Closed (final)
//	New --author--> Closed
type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	svc *Service
	rec *events.Recorder
	now time.Time

	admin, author, developer, manager, stranger *models.User

	project    models.Project
	template   models.Template
	developers models.Group
	managers   models.Group

	stateNew, stateAssigned, stateClosed models.State

	priority    models.Field // list, required, New
	description models.Field // text, New
	dueDate     models.Field // date, Assigned
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	files, err := storage.NewFiles(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		t:   t,
		ctx: context.Background(),
		db:  db,
		rec: &events.Recorder{},
		now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc = New(db, Options{
		Logger:            zerolog.Nop(),
		Clock:             func() time.Time { return f.now },
		Publisher:         f.rec,
		Files:             files,
		AuthLockAttempts:  3,
		AuthLockDuration:  15 * time.Minute,
		MaxUploadSize:     64,
		AllowRegistration: false,
	})

	f.seed()
	return f
}

func (f *fixture) create(value any) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(value).Error)
}

func (f *fixture) seed() {
	hash, err := auth.HashPassword(testPassword)
	require.NoError(f.t, err)

	newUser := func(email, name string, admin bool) *models.User {
		u := &models.User{Email: email, Fullname: name, PasswordHash: hash, Admin: admin, Timezone: "UTC", Locale: "en"}
		f.create(u)
		return u
	}
	admin := newUser("admin@example.com", "Admin", true)
	author := newUser("author@example.com", "Author", false)
	developer := newUser("dev@example.com", "Developer", false)
	manager := newUser("manager@example.com", "Manager", false)
	stranger := newUser("stranger@example.com", "Stranger", false)

	f.project = models.Project{Name: "Tracker", Description: "Issue tracker"}
	f.create(&f.project)

	f.developers = models.Group{ProjectID: &f.project.ID, Name: "Developers"}
	f.create(&f.developers)
	f.managers = models.Group{Name: "Managers"}
	f.create(&f.managers)
	f.create(&[]models.Membership{
		{UserID: developer.ID, GroupID: f.developers.ID},
		{UserID: manager.ID, GroupID: f.managers.ID},
	})

	f.template = models.Template{ProjectID: f.project.ID, Name: "Bugs", Prefix: "BUG", CriticalAge: intPtr(5), FrozenTime: intPtr(7)}
	f.create(&f.template)
	require.NoError(f.t, f.db.Model(&f.template).Update("locked", false).Error)
	f.template.Locked = false

	f.stateNew = models.State{TemplateID: f.template.ID, Name: "New", Type: types.StateInitial, Responsible: types.ResponsibleRemove}
	f.stateAssigned = models.State{TemplateID: f.template.ID, Name: "Assigned", Type: types.StateIntermediate, Responsible: types.ResponsibleAssign}
	f.stateClosed = models.State{TemplateID: f.template.ID, Name: "Closed", Type: types.StateFinal, Responsible: types.ResponsibleRemove}
	f.create(&f.stateNew)
	f.create(&f.stateAssigned)
	f.create(&f.stateClosed)

	f.create(&[]models.StateGroupTransition{
		{FromStateID: f.stateNew.ID, ToStateID: f.stateAssigned.ID, GroupID: f.managers.ID},
	})
	f.create(&[]models.StateRoleTransition{
		{FromStateID: f.stateAssigned.ID, ToStateID: f.stateClosed.ID, Role: types.RoleResponsible},
		{FromStateID: f.stateNew.ID, ToStateID: f.stateClosed.ID, Role: types.RoleAuthor},
	})
	f.create(&models.StateResponsibleGroup{StateID: f.stateAssigned.ID, GroupID: f.developers.ID})

	grantRole := func(role types.SystemRole, perms ...types.TemplatePermission) {
		for _, p := range perms {
			f.create(&models.TemplateRolePermission{TemplateID: f.template.ID, Role: role, Permission: p})
		}
	}
	grantGroup := func(group uint, perms ...types.TemplatePermission) {
		for _, p := range perms {
			f.create(&models.TemplateGroupPermission{TemplateID: f.template.ID, GroupID: group, Permission: p})
		}
	}
	grantRole(types.RoleAuthor, types.PermissionCreateIssues, types.PermissionEditIssues,
		types.PermissionReopenIssues, types.PermissionDeleteFiles,
		types.PermissionAddDependencies, types.PermissionRemoveDependencies)
	grantRole(types.RoleResponsible, types.PermissionEditIssues)
	grantRole(types.RoleAnyone, types.PermissionAddComments, types.PermissionAttachFiles)
	grantGroup(f.developers.ID, types.PermissionViewIssues, types.PermissionPrivateComments)
	grantGroup(f.managers.ID, types.PermissionViewIssues, types.PermissionReassignIssues,
		types.PermissionSuspendIssues, types.PermissionResumeIssues, types.PermissionDeleteIssues)

	f.priority = models.Field{
		StateID:    f.stateNew.ID,
		Name:       "Priority",
		Type:       types.FieldList,
		Position:   1,
		Required:   true,
		Parameters: datatypes.JSON(`{"default":2}`),
	}
	f.description = models.Field{StateID: f.stateNew.ID, Name: "Description", Type: types.FieldText, Position: 2}
	f.dueDate = models.Field{
		StateID:    f.stateAssigned.ID,
		Name:       "Due date",
		Type:       types.FieldDate,
		Position:   1,
		Parameters: datatypes.JSON(`{"minimum":0,"maximum":30}`),
	}
	f.create(&f.priority)
	f.create(&f.description)
	f.create(&f.dueDate)

	f.create(&[]models.ListItem{
		{FieldID: f.priority.ID, Value: 1, Text: "High"},
		{FieldID: f.priority.ID, Value: 2, Text: "Normal"},
		{FieldID: f.priority.ID, Value: 3, Text: "Low"},
	})
	f.create(&[]models.FieldRolePermission{
		{FieldID: f.priority.ID, Role: types.RoleAuthor, Permission: types.FieldPermissionReadWrite},
		{FieldID: f.description.ID, Role: types.RoleAuthor, Permission: types.FieldPermissionReadWrite},
		{FieldID: f.description.ID, Role: types.RoleAnyone, Permission: types.FieldPermissionRead},
		{FieldID: f.dueDate.ID, Role: types.RoleAnyone, Permission: types.FieldPermissionRead},
	})
	f.create(&[]models.FieldGroupPermission{
		{FieldID: f.priority.ID, GroupID: f.developers.ID, Permission: types.FieldPermissionRead},
		{FieldID: f.dueDate.ID, GroupID: f.managers.ID, Permission: types.FieldPermissionReadWrite},
	})

	f.admin = f.actor(admin.ID)
	f.author = f.actor(author.ID)
	f.developer = f.actor(developer.ID)
	f.manager = f.actor(manager.ID)
	f.stranger = f.actor(stranger.ID)
}

// actor loads a user the way the auth middleware does.
func (f *fixture) actor(id uint) *models.User {
	f.t.Helper()
	u, err := f.svc.LoadActor(f.ctx, id)
	require.NoError(f.t, err)
	return u
}

// newIssue creates an issue as the author with the given priority.
func (f *fixture) newIssue(subject, priority string) *models.Issue {
	f.t.Helper()
	issue, err := f.svc.CreateIssue(f.ctx, f.author, CreateIssueCommand{
		TemplateID: f.template.ID,
		Subject:    subject,
		Values:     Values{f.priority.ID: &priority},
	})
	require.NoError(f.t, err)
	return issue
}

// assign moves a new issue to Assigned with the developer responsible.
func (f *fixture) assign(issue *models.Issue) *models.Issue {
	f.t.Helper()
	assigned, err := f.svc.ChangeState(f.ctx, f.manager, issue.ID, f.stateAssigned.ID, ChangeStateCommand{
		Responsible: &f.developer.ID,
	})
	require.NoError(f.t, err)
	return assigned
}

func (f *fixture) value(issueID, fieldID uint) *string {
	f.t.Helper()
	var row models.FieldValue
	require.NoError(f.t, f.db.Where("issue_id = ? AND field_id = ?", issueID, fieldID).First(&row).Error)
	return row.Value
}

func intPtr(v int) *int {
	return &v
}

func str(s string) *string {
	return &s
}
