package voters

import (
	"time"

	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/types"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

const (
	authorID      = 10
	responsibleID = 11
	developerID   = 12
	strangerID    = 13

	developersGroup = 100
	managersGroup   = 101
)

type workflow struct {
	template *models.Template
	new      *models.State
	assigned *models.State
	closed   *models.State
}

// newWorkflow builds a "Bug" template with New → Assigned → Closed states.
// Anyone may view and comment, authors may edit and reopen, developers may
// create issues and do nearly everything else.
func newWorkflow() *workflow {
	project := models.Project{BaseModel: models.BaseModel{ID: 1}, Name: "Tracker"}

	template := &models.Template{
		BaseModel: models.BaseModel{ID: 2},
		ProjectID: project.ID,
		Project:   project,
		Name:      "Bug",
		Prefix:    "BUG",
		RolePermissions: []models.TemplateRolePermission{
			{TemplateID: 2, Role: types.RoleAnyone, Permission: types.PermissionViewIssues},
			{TemplateID: 2, Role: types.RoleAnyone, Permission: types.PermissionAddComments},
			{TemplateID: 2, Role: types.RoleAuthor, Permission: types.PermissionEditIssues},
			{TemplateID: 2, Role: types.RoleAuthor, Permission: types.PermissionReopenIssues},
			{TemplateID: 2, Role: types.RoleResponsible, Permission: types.PermissionAttachFiles},
		},
		GroupPermissions: []models.TemplateGroupPermission{
			{TemplateID: 2, GroupID: developersGroup, Permission: types.PermissionCreateIssues},
			{TemplateID: 2, GroupID: developersGroup, Permission: types.PermissionEditIssues},
			{TemplateID: 2, GroupID: developersGroup, Permission: types.PermissionDeleteIssues},
			{TemplateID: 2, GroupID: managersGroup, Permission: types.PermissionReassignIssues},
			{TemplateID: 2, GroupID: managersGroup, Permission: types.PermissionSuspendIssues},
			{TemplateID: 2, GroupID: managersGroup, Permission: types.PermissionResumeIssues},
			{TemplateID: 2, GroupID: developersGroup, Permission: types.PermissionPrivateComments},
			{TemplateID: 2, GroupID: developersGroup, Permission: types.PermissionDeleteFiles},
			{TemplateID: 2, GroupID: developersGroup, Permission: types.PermissionAddDependencies},
			{TemplateID: 2, GroupID: developersGroup, Permission: types.PermissionRemoveDependencies},
		},
	}

	newState := models.State{BaseModel: models.BaseModel{ID: 20}, TemplateID: 2, Name: "New", Type: types.StateInitial, Responsible: types.ResponsibleRemove}
	assigned := models.State{BaseModel: models.BaseModel{ID: 21}, TemplateID: 2, Name: "Assigned", Type: types.StateIntermediate, Responsible: types.ResponsibleAssign}
	closed := models.State{BaseModel: models.BaseModel{ID: 22}, TemplateID: 2, Name: "Closed", Type: types.StateFinal, Responsible: types.ResponsibleRemove}

	newState.GroupTransitions = []models.StateGroupTransition{
		{FromStateID: 20, ToStateID: 21, GroupID: managersGroup},
	}
	assigned.RoleTransitions = []models.StateRoleTransition{
		{FromStateID: 21, ToStateID: 22, Role: types.RoleResponsible},
	}

	template.States = []models.State{newState, assigned, closed}
	template.Locked = false

	w := &workflow{template: template}
	w.new = &template.States[0]
	w.assigned = &template.States[1]
	w.closed = &template.States[2]
	for _, s := range []*models.State{w.new, w.assigned, w.closed} {
		s.Template = *template
	}
	return w
}

// issueIn places an issue authored by authorID into state.
func (w *workflow) issueIn(state *models.State) *models.Issue {
	issue := &models.Issue{
		BaseModel: models.BaseModel{ID: 7, CreatedAt: testNow.AddDate(0, 0, -3)},
		Subject:   "Crash on save",
		StateID:   state.ID,
		State:     *state,
		AuthorID:  authorID,
	}
	issue.State.Template = *w.template
	if state.Responsible == types.ResponsibleAssign {
		id := uint(responsibleID)
		issue.ResponsibleID = &id
	}
	if state.IsFinal() {
		closedAt := testNow.AddDate(0, 0, -1)
		issue.ClosedAt = &closedAt
	}
	return issue
}

func user(id uint, groups ...uint) *models.User {
	u := &models.User{BaseModel: models.BaseModel{ID: id}, Email: "user@example.com"}
	for _, g := range groups {
		u.Groups = append(u.Groups, models.Group{BaseModel: models.BaseModel{ID: g}})
	}
	return u
}

func intPtr(v int) *int { return &v }
