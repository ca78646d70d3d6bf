package voters

import (
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/types"
)

const (
	ViewIssue           Attribute = "issue.view"
	CreateIssue         Attribute = "issue.create"
	UpdateIssue         Attribute = "issue.update"
	DeleteIssue         Attribute = "issue.delete"
	ChangeState         Attribute = "issue.change_state"
	ReassignIssue       Attribute = "issue.reassign"
	SuspendIssue        Attribute = "issue.suspend"
	ResumeIssue         Attribute = "issue.resume"
	AddPublicComment    Attribute = "comment.add_public"
	AddPrivateComment   Attribute = "comment.add_private"
	ReadPrivateComments Attribute = "comment.read_private"
	AttachFile          Attribute = "file.attach"
	DeleteFile          Attribute = "file.delete"
	AddDependency       Attribute = "dependency.add"
	RemoveDependency    Attribute = "dependency.remove"
)

// IssueAttributes are the per-issue actions reported by Permissions.
var IssueAttributes = []Attribute{
	UpdateIssue,
	DeleteIssue,
	ReassignIssue,
	SuspendIssue,
	ResumeIssue,
	AddPublicComment,
	AddPrivateComment,
	ReadPrivateComments,
	AttachFile,
	DeleteFile,
	AddDependency,
	RemoveDependency,
}

// Transition is the subject of a ChangeState vote.
type Transition struct {
	Issue *models.Issue
	State *models.State
}

// IssueVoter decides what a user may do with issues.
//
// Every check expects the issue with State, State.Template,
// State.Template.Project, State.Template.RolePermissions and
// State.Template.GroupPermissions loaded, and the user with Groups loaded.
type IssueVoter struct {
	now Clock
}

func NewIssueVoter(now Clock) *IssueVoter {
	return &IssueVoter{now: now}
}

// Vote dispatches attribute to the matching check. subject is a *models.Issue,
// a *models.Template for CreateIssue, or a Transition for ChangeState.
func (v *IssueVoter) Vote(user *models.User, attribute Attribute, subject any) bool {
	if user == nil || user.Disabled {
		return false
	}

	switch s := subject.(type) {
	case *models.Template:
		return attribute == CreateIssue && v.CanCreate(user, s)
	case Transition:
		return attribute == ChangeState && v.CanChangeState(user, s.Issue, s.State)
	case *models.Issue:
		switch attribute {
		case ViewIssue:
			return v.CanView(user, s)
		case UpdateIssue:
			return v.CanUpdate(user, s)
		case DeleteIssue:
			return v.CanDelete(user, s)
		case ReassignIssue:
			return v.CanReassign(user, s)
		case SuspendIssue:
			return v.CanSuspend(user, s)
		case ResumeIssue:
			return v.CanResume(user, s)
		case AddPublicComment:
			return v.CanAddPublicComment(user, s)
		case AddPrivateComment:
			return v.CanAddPrivateComment(user, s)
		case ReadPrivateComments:
			return v.CanReadPrivateComments(user, s)
		case AttachFile:
			return v.CanAttachFile(user, s)
		case DeleteFile:
			return v.CanDeleteFile(user, s)
		case AddDependency:
			return v.CanAddDependency(user, s)
		case RemoveDependency:
			return v.CanRemoveDependency(user, s)
		}
	}

	return false
}

// Permissions evaluates every per-issue attribute for the user.
func (v *IssueVoter) Permissions(user *models.User, issue *models.Issue) map[Attribute]bool {
	result := make(map[Attribute]bool, len(IssueAttributes))
	for _, attribute := range IssueAttributes {
		result[attribute] = v.Vote(user, attribute, issue)
	}
	return result
}

func (v *IssueVoter) has(user *models.User, issue *models.Issue, permission types.TemplatePermission) bool {
	return hasTemplatePermission(user, &issue.State.Template, rolesOf(user, issue), permission)
}

// mutable reports whether the issue accepts changes at all: its project is
// active, it is not suspended and it is not frozen.
func (v *IssueVoter) mutable(issue *models.Issue) bool {
	now := v.now()
	return !issue.State.Template.Project.Suspended && !issue.IsSuspended(now) && !issue.IsFrozen(now)
}

func (v *IssueVoter) CanView(user *models.User, issue *models.Issue) bool {
	if issue.IsAuthor(user.ID) || issue.IsResponsible(user.ID) {
		return true
	}
	return v.has(user, issue, types.PermissionViewIssues)
}

// CanCreate expects the template with Project, States, RolePermissions and
// GroupPermissions loaded. The creator becomes the author.
func (v *IssueVoter) CanCreate(user *models.User, template *models.Template) bool {
	if template.Locked || template.Project.Suspended {
		return false
	}
	if template.InitialState() == nil {
		return false
	}
	roles := []types.SystemRole{types.RoleAnyone, types.RoleAuthor}
	return hasTemplatePermission(user, template, roles, types.PermissionCreateIssues)
}

func (v *IssueVoter) CanUpdate(user *models.User, issue *models.Issue) bool {
	return v.mutable(issue) && v.has(user, issue, types.PermissionEditIssues)
}

func (v *IssueVoter) CanDelete(user *models.User, issue *models.Issue) bool {
	if issue.State.Template.Project.Suspended || issue.IsSuspended(v.now()) {
		return false
	}
	return v.has(user, issue, types.PermissionDeleteIssues)
}

// CanChangeState additionally expects issue.State.RoleTransitions and
// issue.State.GroupTransitions loaded.
func (v *IssueVoter) CanChangeState(user *models.User, issue *models.Issue, state *models.State) bool {
	if state == nil || !v.mutable(issue) {
		return false
	}
	if state.TemplateID != issue.State.TemplateID || state.ID == issue.StateID {
		return false
	}

	if issue.IsClosed() {
		return state.IsInitial() && v.has(user, issue, types.PermissionReopenIssues)
	}

	roles := rolesOf(user, issue)
	for _, t := range issue.State.RoleTransitions {
		if t.ToStateID == state.ID && hasRole(roles, t.Role) {
			return true
		}
	}

	groups := user.GroupIDs()
	for _, t := range issue.State.GroupTransitions {
		if t.ToStateID == state.ID && groups[t.GroupID] {
			return true
		}
	}

	return false
}

func (v *IssueVoter) CanReassign(user *models.User, issue *models.Issue) bool {
	if issue.IsClosed() || issue.IsSuspended(v.now()) || issue.State.Template.Project.Suspended {
		return false
	}
	if issue.State.Responsible != types.ResponsibleAssign {
		return false
	}
	return v.has(user, issue, types.PermissionReassignIssues)
}

func (v *IssueVoter) CanSuspend(user *models.User, issue *models.Issue) bool {
	if issue.IsClosed() || issue.IsSuspended(v.now()) || issue.State.Template.Project.Suspended {
		return false
	}
	return v.has(user, issue, types.PermissionSuspendIssues)
}

func (v *IssueVoter) CanResume(user *models.User, issue *models.Issue) bool {
	if !issue.IsSuspended(v.now()) || issue.State.Template.Project.Suspended {
		return false
	}
	return v.has(user, issue, types.PermissionResumeIssues)
}

func (v *IssueVoter) CanAddPublicComment(user *models.User, issue *models.Issue) bool {
	return v.mutable(issue) && v.has(user, issue, types.PermissionAddComments)
}

func (v *IssueVoter) CanAddPrivateComment(user *models.User, issue *models.Issue) bool {
	return v.CanAddPublicComment(user, issue) && v.has(user, issue, types.PermissionPrivateComments)
}

func (v *IssueVoter) CanReadPrivateComments(user *models.User, issue *models.Issue) bool {
	return v.has(user, issue, types.PermissionPrivateComments)
}

func (v *IssueVoter) CanAttachFile(user *models.User, issue *models.Issue) bool {
	return v.mutable(issue) && v.has(user, issue, types.PermissionAttachFiles)
}

func (v *IssueVoter) CanDeleteFile(user *models.User, issue *models.Issue) bool {
	return v.mutable(issue) && v.has(user, issue, types.PermissionDeleteFiles)
}

func (v *IssueVoter) CanAddDependency(user *models.User, issue *models.Issue) bool {
	return v.mutable(issue) && v.has(user, issue, types.PermissionAddDependencies)
}

func (v *IssueVoter) CanRemoveDependency(user *models.User, issue *models.Issue) bool {
	return v.mutable(issue) && v.has(user, issue, types.PermissionRemoveDependencies)
}

// FieldAccess returns the user's access to values of field on issue. The field
// needs RolePermissions and GroupPermissions loaded.
func (v *IssueVoter) FieldAccess(user *models.User, issue *models.Issue, field *models.Field) types.FieldPermission {
	return fieldAccess(user, rolesOf(user, issue), field)
}

// CreationFieldAccess is FieldAccess for an issue the user is about to create.
func (v *IssueVoter) CreationFieldAccess(user *models.User, field *models.Field) types.FieldPermission {
	return fieldAccess(user, []types.SystemRole{types.RoleAnyone, types.RoleAuthor}, field)
}

func fieldAccess(user *models.User, roles []types.SystemRole, field *models.Field) types.FieldPermission {
	access := types.FieldPermissionNone

	raise := func(p types.FieldPermission) {
		if p.Includes(access) {
			access = p
		}
	}

	for _, p := range field.RolePermissions {
		if hasRole(roles, p.Role) {
			raise(p.Permission)
		}
	}

	groups := user.GroupIDs()
	for _, p := range field.GroupPermissions {
		if groups[p.GroupID] {
			raise(p.Permission)
		}
	}

	return access
}
