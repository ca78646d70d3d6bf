package types

// SystemRole is a role a user plays relative to a particular issue.
type SystemRole string

const (
	RoleAnyone      SystemRole = "anyone"
	RoleAuthor      SystemRole = "author"
	RoleResponsible SystemRole = "responsible"
)

func (r SystemRole) IsValid() bool {
	switch r {
	case RoleAnyone, RoleAuthor, RoleResponsible:
		return true
	}
	return false
}

// StateType places a state in the workflow.
type StateType string

const (
	StateInitial      StateType = "initial"
	StateIntermediate StateType = "intermediate"
	StateFinal        StateType = "final"
)

func (t StateType) IsValid() bool {
	switch t {
	case StateInitial, StateIntermediate, StateFinal:
		return true
	}
	return false
}

// StateResponsible tells what happens to an issue's responsible when it enters a state.
type StateResponsible string

const (
	ResponsibleKeep   StateResponsible = "keep"
	ResponsibleAssign StateResponsible = "assign"
	ResponsibleRemove StateResponsible = "remove"
)

func (r StateResponsible) IsValid() bool {
	switch r {
	case ResponsibleKeep, ResponsibleAssign, ResponsibleRemove:
		return true
	}
	return false
}

// TemplatePermission is a permission granted on all issues of a template.
type TemplatePermission string

const (
	PermissionViewIssues         TemplatePermission = "issue.view"
	PermissionCreateIssues       TemplatePermission = "issue.create"
	PermissionEditIssues         TemplatePermission = "issue.edit"
	PermissionReassignIssues     TemplatePermission = "issue.reassign"
	PermissionSuspendIssues      TemplatePermission = "issue.suspend"
	PermissionResumeIssues       TemplatePermission = "issue.resume"
	PermissionReopenIssues       TemplatePermission = "issue.reopen"
	PermissionDeleteIssues       TemplatePermission = "issue.delete"
	PermissionAddComments        TemplatePermission = "comment.add"
	PermissionPrivateComments    TemplatePermission = "comment.private"
	PermissionAttachFiles        TemplatePermission = "file.attach"
	PermissionDeleteFiles        TemplatePermission = "file.delete"
	PermissionAddDependencies    TemplatePermission = "dependency.add"
	PermissionRemoveDependencies TemplatePermission = "dependency.remove"
)

// TemplatePermissions lists every template permission in display order.
var TemplatePermissions = []TemplatePermission{
	PermissionViewIssues,
	PermissionCreateIssues,
	PermissionEditIssues,
	PermissionReassignIssues,
	PermissionSuspendIssues,
	PermissionResumeIssues,
	PermissionReopenIssues,
	PermissionDeleteIssues,
	PermissionAddComments,
	PermissionPrivateComments,
	PermissionAttachFiles,
	PermissionDeleteFiles,
	PermissionAddDependencies,
	PermissionRemoveDependencies,
}

func (p TemplatePermission) IsValid() bool {
	for _, known := range TemplatePermissions {
		if p == known {
			return true
		}
	}
	return false
}

// FieldPermission is the access level to a field's values.
type FieldPermission string

const (
	FieldPermissionNone      FieldPermission = ""
	FieldPermissionRead      FieldPermission = "R"
	FieldPermissionReadWrite FieldPermission = "RW"
)

func (p FieldPermission) IsValid() bool {
	return p == FieldPermissionRead || p == FieldPermissionReadWrite
}

// Includes reports whether p grants at least the access of other.
func (p FieldPermission) Includes(other FieldPermission) bool {
	switch other {
	case FieldPermissionNone:
		return true
	case FieldPermissionRead:
		return p == FieldPermissionRead || p == FieldPermissionReadWrite
	case FieldPermissionReadWrite:
		return p == FieldPermissionReadWrite
	}
	return false
}

// FieldType is the data type of a custom field.
type FieldType string

const (
	FieldCheckbox FieldType = "checkbox"
	FieldDate     FieldType = "date"
	FieldDecimal  FieldType = "decimal"
	FieldDuration FieldType = "duration"
	FieldIssue    FieldType = "issue"
	FieldList     FieldType = "list"
	FieldNumber   FieldType = "number"
	FieldString   FieldType = "string"
	FieldText     FieldType = "text"
)

func (t FieldType) IsValid() bool {
	switch t {
	case FieldCheckbox, FieldDate, FieldDecimal, FieldDuration, FieldIssue,
		FieldList, FieldNumber, FieldString, FieldText:
		return true
	}
	return false
}

// EventType identifies an entry of an issue's history.
type EventType string

const (
	EventIssueCreated      EventType = "issue.created"
	EventIssueEdited       EventType = "issue.edited"
	EventStateChanged      EventType = "state.changed"
	EventIssueReopened     EventType = "issue.reopened"
	EventIssueClosed       EventType = "issue.closed"
	EventIssueAssigned     EventType = "issue.assigned"
	EventIssueSuspended    EventType = "issue.suspended"
	EventIssueResumed      EventType = "issue.resumed"
	EventPublicComment     EventType = "comment.public"
	EventPrivateComment    EventType = "comment.private"
	EventFileAttached      EventType = "file.attached"
	EventFileDeleted       EventType = "file.deleted"
	EventDependencyAdded   EventType = "dependency.added"
	EventDependencyRemoved EventType = "dependency.removed"

	// EventIssueCritical is only sent to webhooks, never stored.
	EventIssueCritical EventType = "issue.critical"
)
