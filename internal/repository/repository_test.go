package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/testutil"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createUsers(t *testing.T, db *gorm.DB, n int) []models.User {
	t.Helper()
	users := make([]models.User, n)
	for i := range users {
		users[i] = models.User{
			Email:        fmt.Sprintf("user%02d@example.com", i),
			Fullname:     fmt.Sprintf("User %02d", i),
			PasswordHash: "x",
			Disabled:     i%3 == 0,
		}
		require.NoError(t, db.Create(&users[i]).Error)
	}
	return users
}

var userColumns = Columns{
	Search:  []string{"email", "fullname"},
	Filters: map[string]Filter{"disabled": Bool("disabled"), "email": Contains("email")},
	Sorts:   map[string]string{"email": "email", "fullname": "fullname"},
}

func TestRepository_GetAndExists(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 2)

	repo := New[models.User](db, "user")

	got, err := repo.Get(ctx, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, users[1].Email, got.Email)

	_, err = repo.Get(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "user not found")

	ok, err := repo.Exists(ctx, "email = ?", users[0].Email)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "email = ?", "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindBy(ctx, "email = ?", users[0].Email)
	require.NoError(t, err)
	assert.Equal(t, users[0].ID, found.ID)
}

func TestRepository_CreateOmitsAssociations(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	project := models.Project{Name: "Tracker"}
	require.NoError(t, New[models.Project](db, "project").Create(ctx, &project))

	group := models.Group{Name: "Devs", ProjectID: &project.ID, Project: &models.Project{Name: "Ignored"}}
	require.NoError(t, New[models.Group](db, "group").Create(ctx, &group))

	var count int64
	require.NoError(t, db.Model(&models.Project{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	group.Name = "Developers"
	require.NoError(t, New[models.Group](db, "group").Save(ctx, &group))

	loaded, err := New[models.Group](db, "group").Get(ctx, group.ID, "Project")
	require.NoError(t, err)
	assert.Equal(t, "Developers", loaded.Name)
	assert.Equal(t, "Tracker", loaded.Project.Name)

	require.NoError(t, New[models.Group](db, "group").Delete(ctx, loaded))
	_, err = New[models.Group](db, "group").Get(ctx, group.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCollect_Pagination(t *testing.T) {
	db := testutil.NewDB(t)
	createUsers(t, db, 25)

	page, err := Collect[models.User](context.Background(), db, Query{Offset: 20, Limit: 10}, userColumns)
	require.NoError(t, err)
	assert.EqualValues(t, 25, page.Total)
	assert.Equal(t, 20, page.From)
	assert.Equal(t, 24, page.To)
	assert.Len(t, page.Data, 5)

	page, err = Collect[models.User](context.Background(), db, Query{Offset: 40}, userColumns)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 39, page.To)
}

func TestQuery_Normalize(t *testing.T) {
	q := Query{Offset: -5, Limit: 1000}.Normalize()
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, types.MaxPageSize, q.Limit)

	assert.Equal(t, types.DefaultPageSize, Query{}.Normalize().Limit)
}

func TestCollect_SearchFilterSort(t *testing.T) {
	db := testutil.NewDB(t)
	createUsers(t, db, 12)
	ctx := context.Background()

	page, err := Collect[models.User](ctx, db, Query{Search: "USER 1"}, userColumns)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total, "User 10 and User 11")

	page, err = Collect[models.User](ctx, db, Query{
		Filters: map[string]string{"disabled": "true", "unknown": "ignored"},
		Sorts:   []Sort{{Field: "email", Desc: true}},
	}, userColumns)
	require.NoError(t, err)
	require.EqualValues(t, 4, page.Total)
	assert.Equal(t, "user09@example.com", page.Data[0].Email)
	assert.Equal(t, "user00@example.com", page.Data[3].Email)
	for _, u := range page.Data {
		assert.True(t, u.Disabled)
	}

	base := db.Where("fullname <> ?", "User 00")
	page, err = Collect[models.User](ctx, base, Query{Filters: map[string]string{"disabled": "1"}}, userColumns)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total, "caller scope and filters combine")
}

func TestParseSorts(t *testing.T) {
	sorts := ParseSorts(map[string]string{"subject": "DESC", "id": "asc"})
	assert.Equal(t, []Sort{{Field: "id"}, {Field: "subject", Desc: true}}, sorts)
}

type visibilityFixture struct {
	author, member, outsider models.User
	group                    models.Group
	open, restricted         models.Template
	openIssue, restrictedOwn models.Issue
	restrictedForeign        models.Issue
}

func seedVisibility(t *testing.T, db *gorm.DB) *visibilityFixture {
	t.Helper()
	f := &visibilityFixture{}

	f.author = models.User{Email: "author@example.com", Fullname: "Author", PasswordHash: "x"}
	f.member = models.User{Email: "member@example.com", Fullname: "Member", PasswordHash: "x"}
	f.outsider = models.User{Email: "outsider@example.com", Fullname: "Outsider", PasswordHash: "x"}
	for _, u := range []*models.User{&f.author, &f.member, &f.outsider} {
		require.NoError(t, db.Create(u).Error)
	}

	project := models.Project{Name: "Tracker"}
	require.NoError(t, db.Create(&project).Error)

	f.group = models.Group{Name: "Support", ProjectID: &project.ID}
	require.NoError(t, db.Create(&f.group).Error)
	require.NoError(t, db.Create(&models.Membership{UserID: f.member.ID, GroupID: f.group.ID}).Error)

	f.open = models.Template{ProjectID: project.ID, Name: "Task", Prefix: "TASK"}
	f.restricted = models.Template{ProjectID: project.ID, Name: "Incident", Prefix: "INC"}
	require.NoError(t, db.Create(&f.open).Error)
	require.NoError(t, db.Create(&f.restricted).Error)

	require.NoError(t, db.Create(&models.TemplateRolePermission{
		TemplateID: f.open.ID, Role: types.RoleAnyone, Permission: types.PermissionViewIssues,
	}).Error)
	require.NoError(t, db.Create(&models.TemplateGroupPermission{
		TemplateID: f.restricted.ID, GroupID: f.group.ID, Permission: types.PermissionViewIssues,
	}).Error)

	openState := models.State{TemplateID: f.open.ID, Name: "New", Type: types.StateInitial, Responsible: types.ResponsibleRemove}
	restrictedState := models.State{TemplateID: f.restricted.ID, Name: "New", Type: types.StateInitial, Responsible: types.ResponsibleRemove}
	require.NoError(t, db.Create(&openState).Error)
	require.NoError(t, db.Create(&restrictedState).Error)

	f.openIssue = models.Issue{Subject: "Open task", StateID: openState.ID, AuthorID: f.outsider.ID}
	f.restrictedOwn = models.Issue{Subject: "Own incident", StateID: restrictedState.ID, AuthorID: f.author.ID}
	f.restrictedForeign = models.Issue{Subject: "Foreign incident", StateID: restrictedState.ID, AuthorID: f.member.ID}
	for _, i := range []*models.Issue{&f.openIssue, &f.restrictedOwn, &f.restrictedForeign} {
		require.NoError(t, db.Omit("State", "Author").Create(i).Error)
	}

	return f
}

func visibleSubjects(t *testing.T, db *gorm.DB, user models.User, q Query) []string {
	t.Helper()
	require.NoError(t, db.Preload("Groups").First(&user, user.ID).Error)

	page, err := Collect[models.Issue](context.Background(), VisibleIssues(&user)(db), q, IssueColumns)
	require.NoError(t, err)

	subjects := make([]string, 0, len(page.Data))
	for _, issue := range page.Data {
		subjects = append(subjects, issue.Subject)
	}
	return subjects
}

func TestVisibleIssues(t *testing.T) {
	db := testutil.NewDB(t)
	f := seedVisibility(t, db)

	assert.ElementsMatch(t, []string{"Open task", "Own incident"}, visibleSubjects(t, db, f.author, Query{}))
	assert.ElementsMatch(t, []string{"Open task", "Own incident", "Foreign incident"}, visibleSubjects(t, db, f.member, Query{}))
	assert.ElementsMatch(t, []string{"Open task"}, visibleSubjects(t, db, f.outsider, Query{}))
}

func TestIssueColumns(t *testing.T) {
	db := testutil.NewDB(t)
	f := seedVisibility(t, db)

	byTemplate := Query{Filters: map[string]string{"template": fmt.Sprint(f.restricted.ID)}}
	assert.ElementsMatch(t, []string{"Own incident", "Foreign incident"}, visibleSubjects(t, db, f.member, byTemplate))

	bySubject := Query{Search: "incident", Sorts: []Sort{{Field: "subject", Desc: true}}}
	assert.Equal(t, []string{"Own incident", "Foreign incident"}, visibleSubjects(t, db, f.member, bySubject))

	open := Query{Filters: map[string]string{"closed": "0", "suspended": "0"}}
	assert.Len(t, visibleSubjects(t, db, f.member, open), 3)

	unassigned := Query{Filters: map[string]string{"responsible": ""}}
	assert.Len(t, visibleSubjects(t, db, f.member, unassigned), 3)
}
