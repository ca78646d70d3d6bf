package voters

import (
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/types"
)

func isAdmin(user *models.User) bool {
	return user != nil && user.Admin && !user.Disabled
}

// ProjectVoter guards project administration.
type ProjectVoter struct{}

func (ProjectVoter) CanCreate(user *models.User) bool {
	return isAdmin(user)
}

func (ProjectVoter) CanUpdate(user *models.User, _ *models.Project) bool {
	return isAdmin(user)
}

// CanDelete refuses projects that still own issues.
func (ProjectVoter) CanDelete(user *models.User, _ *models.Project, hasIssues bool) bool {
	return isAdmin(user) && !hasIssues
}

func (ProjectVoter) CanSuspend(user *models.User, project *models.Project) bool {
	return isAdmin(user) && !project.Suspended
}

func (ProjectVoter) CanResume(user *models.User, project *models.Project) bool {
	return isAdmin(user) && project.Suspended
}

// TemplateVoter guards template administration. A template must be locked
// while its states and fields are edited; locked templates accept no new issues.
type TemplateVoter struct{}

func (TemplateVoter) CanCreate(user *models.User, _ *models.Project) bool {
	return isAdmin(user)
}

func (TemplateVoter) CanUpdate(user *models.User, _ *models.Template) bool {
	return isAdmin(user)
}

func (TemplateVoter) CanDelete(user *models.User, _ *models.Template, hasIssues bool) bool {
	return isAdmin(user) && !hasIssues
}

func (TemplateVoter) CanLock(user *models.User, template *models.Template) bool {
	return isAdmin(user) && !template.Locked
}

// CanUnlock expects template.States loaded.
func (TemplateVoter) CanUnlock(user *models.User, template *models.Template) bool {
	return isAdmin(user) && template.Locked && template.InitialState() != nil
}

func (TemplateVoter) CanManagePermissions(user *models.User, _ *models.Template) bool {
	return isAdmin(user)
}

// StateVoter guards state administration. States need Template loaded.
type StateVoter struct{}

func (StateVoter) CanCreate(user *models.User, template *models.Template) bool {
	return isAdmin(user) && template.Locked
}

func (StateVoter) CanUpdate(user *models.User, state *models.State) bool {
	return isAdmin(user) && state.Template.Locked
}

func (StateVoter) CanDelete(user *models.User, state *models.State, hasIssues bool) bool {
	return isAdmin(user) && state.Template.Locked && !hasIssues
}

func (StateVoter) CanSetInitial(user *models.User, state *models.State) bool {
	return isAdmin(user) && state.Template.Locked && !state.IsInitial()
}

func (StateVoter) CanManageTransitions(user *models.User, state *models.State) bool {
	return isAdmin(user) && state.Template.Locked && !state.IsFinal()
}

func (StateVoter) CanManageResponsibleGroups(user *models.User, state *models.State) bool {
	return isAdmin(user) && state.Responsible == types.ResponsibleAssign
}

// FieldVoter guards field administration. Fields need State.Template loaded.
type FieldVoter struct{}

func (FieldVoter) CanCreate(user *models.User, state *models.State) bool {
	return isAdmin(user) && state.Template.Locked
}

func (FieldVoter) CanUpdate(user *models.User, field *models.Field) bool {
	return isAdmin(user) && !field.IsRemoved() && field.State.Template.Locked
}

func (FieldVoter) CanDelete(user *models.User, field *models.Field) bool {
	return isAdmin(user) && !field.IsRemoved() && field.State.Template.Locked
}

func (FieldVoter) CanManagePermissions(user *models.User, field *models.Field) bool {
	return isAdmin(user) && !field.IsRemoved()
}

// ListItemVoter guards the items of list fields.
type ListItemVoter struct{}

// CanCreate expects field.State.Template loaded.
func (ListItemVoter) CanCreate(user *models.User, field *models.Field) bool {
	return isAdmin(user) && field.Type == types.FieldList && !field.IsRemoved() && field.State.Template.Locked
}

// CanUpdate expects item.Field.State.Template loaded.
func (v ListItemVoter) CanUpdate(user *models.User, item *models.ListItem) bool {
	return v.CanCreate(user, &item.Field)
}

func (v ListItemVoter) CanDelete(user *models.User, item *models.ListItem, inUse bool) bool {
	return v.CanCreate(user, &item.Field) && !inUse
}

// GroupVoter guards group administration.
type GroupVoter struct{}

func (GroupVoter) CanCreate(user *models.User) bool {
	return isAdmin(user)
}

func (GroupVoter) CanUpdate(user *models.User, _ *models.Group) bool {
	return isAdmin(user)
}

func (GroupVoter) CanDelete(user *models.User, _ *models.Group) bool {
	return isAdmin(user)
}

func (GroupVoter) CanManageMembership(user *models.User, _ *models.Group) bool {
	return isAdmin(user)
}

// UserVoter guards account administration.
type UserVoter struct {
	now Clock
}

func NewUserVoter(now Clock) *UserVoter {
	return &UserVoter{now: now}
}

func (v *UserVoter) CanCreate(user *models.User) bool {
	return isAdmin(user)
}

func (v *UserVoter) CanUpdate(user *models.User, _ *models.User) bool {
	return isAdmin(user)
}

func (v *UserVoter) CanDelete(user *models.User, target *models.User) bool {
	return isAdmin(user) && user.ID != target.ID
}

func (v *UserVoter) CanDisable(user *models.User, target *models.User) bool {
	return isAdmin(user) && user.ID != target.ID && !target.Disabled
}

func (v *UserVoter) CanEnable(user *models.User, target *models.User) bool {
	return isAdmin(user) && target.Disabled
}

func (v *UserVoter) CanUnlock(user *models.User, target *models.User) bool {
	return isAdmin(user) && target.IsLocked(v.now())
}

// CanSetPassword lets admins reset anyone's password and users change their
// own, as long as the account is managed internally.
func (v *UserVoter) CanSetPassword(user *models.User, target *models.User) bool {
	if user == nil || user.Disabled || !target.IsInternal() {
		return false
	}
	return user.Admin || user.ID == target.ID
}

func (v *UserVoter) CanManageMembership(user *models.User, _ *models.User) bool {
	return isAdmin(user)
}
