package handlers

import (
	"time"

	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/monocle-dev/tracker/internal/voters"
	"gorm.io/datatypes"
)

// PageResponse is one page of a collection.
type PageResponse[T any] struct {
	From  int   `json:"from"`
	To    int   `json:"to"`
	Total int64 `json:"total"`
	Data  []T   `json:"data"`
}

func pageOf[M any, T any](page *repository.Page[M], convert func(*M) T) PageResponse[T] {
	data := make([]T, 0, len(page.Data))
	for i := range page.Data {
		data = append(data, convert(&page.Data[i]))
	}
	return PageResponse[T]{From: page.From, To: page.To, Total: page.Total, Data: data}
}

func listOf[M any, T any](list []M, convert func(*M) T) []T {
	data := make([]T, 0, len(list))
	for i := range list {
		data = append(data, convert(&list[i]))
	}
	return data
}

type UserResponse struct {
	types.UserResponse
	Description string                `json:"description"`
	Disabled    bool                  `json:"disabled"`
	Provider    types.AccountProvider `json:"provider"`
	Locked      bool                  `json:"locked"`
	Groups      []GroupResponse       `json:"groups,omitempty"`
}

// toUser renders a full account. Lock status follows the service clock.
func (h *Handler) toUser(u *models.User) UserResponse {
	return UserResponse{
		UserResponse: userSummary(u),
		Description:  u.Description,
		Disabled:     u.Disabled,
		Provider:     u.AccountProvider,
		Locked:       u.IsLocked(h.svc.Now()),
		Groups:       listOf(u.Groups, toGroup),
	}
}

func userSummary(u *models.User) types.UserResponse {
	return types.UserResponse{
		ID:       u.ID,
		Name:     u.Fullname,
		Email:    u.Email,
		Admin:    u.Admin,
		Locale:   u.Locale,
		Timezone: u.Timezone,
	}
}

type ProjectResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Suspended      bool      `json:"suspended"`
	DiscordWebhook string    `json:"discord_webhook,omitempty"`
	SlackWebhook   string    `json:"slack_webhook,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toProject(p *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Suspended:      p.Suspended,
		DiscordWebhook: p.DiscordWebhook,
		SlackWebhook:   p.SlackWebhook,
		CreatedAt:      p.CreatedAt,
	}
}

type TemplateResponse struct {
	ID          uint   `json:"id"`
	ProjectID   uint   `json:"project_id"`
	Name        string `json:"name"`
	Prefix      string `json:"prefix"`
	Description string `json:"description"`
	CriticalAge *int   `json:"critical_age"`
	FrozenTime  *int   `json:"frozen_time"`
	Locked      bool   `json:"locked"`
}

func toTemplate(t *models.Template) TemplateResponse {
	return TemplateResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Name:        t.Name,
		Prefix:      t.Prefix,
		Description: t.Description,
		CriticalAge: t.CriticalAge,
		FrozenTime:  t.FrozenTime,
		Locked:      t.Locked,
	}
}

type PermissionsResponse struct {
	Roles  map[string][]types.SystemRole `json:"roles"`
	Groups map[string][]uint             `json:"groups"`
}

func toTemplatePermissions(p *services.TemplatePermissions) PermissionsResponse {
	resp := PermissionsResponse{Roles: map[string][]types.SystemRole{}, Groups: map[string][]uint{}}
	for _, r := range p.Roles {
		key := string(r.Permission)
		resp.Roles[key] = append(resp.Roles[key], r.Role)
	}
	for _, g := range p.Groups {
		key := string(g.Permission)
		resp.Groups[key] = append(resp.Groups[key], g.GroupID)
	}
	return resp
}

func toFieldPermissions(p *services.FieldPermissions) PermissionsResponse {
	resp := PermissionsResponse{Roles: map[string][]types.SystemRole{}, Groups: map[string][]uint{}}
	for _, r := range p.Roles {
		key := string(r.Permission)
		resp.Roles[key] = append(resp.Roles[key], r.Role)
	}
	for _, g := range p.Groups {
		key := string(g.Permission)
		resp.Groups[key] = append(resp.Groups[key], g.GroupID)
	}
	return resp
}

type StateResponse struct {
	ID          uint                   `json:"id"`
	TemplateID  uint                   `json:"template_id"`
	Name        string                 `json:"name"`
	Type        types.StateType        `json:"type"`
	Responsible types.StateResponsible `json:"responsible"`
}

func toState(s *models.State) StateResponse {
	return StateResponse{
		ID:          s.ID,
		TemplateID:  s.TemplateID,
		Name:        s.Name,
		Type:        s.Type,
		Responsible: s.Responsible,
	}
}

type TransitionsResponse struct {
	Roles  map[uint][]types.SystemRole `json:"roles"`
	Groups map[uint][]uint             `json:"groups"`
}

func toTransitions(t *services.StateTransitions) TransitionsResponse {
	resp := TransitionsResponse{Roles: map[uint][]types.SystemRole{}, Groups: map[uint][]uint{}}
	for _, r := range t.Roles {
		resp.Roles[r.ToStateID] = append(resp.Roles[r.ToStateID], r.Role)
	}
	for _, g := range t.Groups {
		resp.Groups[g.ToStateID] = append(resp.Groups[g.ToStateID], g.GroupID)
	}
	return resp
}

type FieldResponse struct {
	ID          uint            `json:"id"`
	StateID     uint            `json:"state_id"`
	Name        string          `json:"name"`
	Type        types.FieldType `json:"type"`
	Description string          `json:"description"`
	Position    int             `json:"position"`
	Required    bool            `json:"required"`
	Parameters  datatypes.JSON  `json:"parameters,omitempty"`
	Removed     bool            `json:"removed"`
}

func toField(f *models.Field) FieldResponse {
	return FieldResponse{
		ID:          f.ID,
		StateID:     f.StateID,
		Name:        f.Name,
		Type:        f.Type,
		Description: f.Description,
		Position:    f.Position,
		Required:    f.Required,
		Parameters:  f.Parameters,
		Removed:     f.IsRemoved(),
	}
}

type ListItemResponse struct {
	ID      uint   `json:"id"`
	FieldID uint   `json:"field_id"`
	Value   int    `json:"value"`
	Text    string `json:"text"`
}

func toListItem(i *models.ListItem) ListItemResponse {
	return ListItemResponse{ID: i.ID, FieldID: i.FieldID, Value: i.Value, Text: i.Text}
}

type GroupResponse struct {
	ID          uint   `json:"id"`
	ProjectID   *uint  `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Global      bool   `json:"global"`
}

func toGroup(g *models.Group) GroupResponse {
	return GroupResponse{
		ID:          g.ID,
		ProjectID:   g.ProjectID,
		Name:        g.Name,
		Description: g.Description,
		Global:      g.IsGlobal(),
	}
}

type IssueResponse struct {
	ID          uint                `json:"id"`
	FullID      string              `json:"full_id"`
	Subject     string              `json:"subject"`
	Project     ProjectResponse     `json:"project"`
	Template    TemplateResponse    `json:"template"`
	State       StateResponse       `json:"state"`
	Author      types.UserResponse  `json:"author"`
	Responsible *types.UserResponse `json:"responsible"`
	OriginID    *uint               `json:"origin_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ClosedAt    *time.Time          `json:"closed_at"`
	ResumesAt   *time.Time          `json:"resumes_at"`
}

func toIssue(i *models.Issue) IssueResponse {
	resp := IssueResponse{
		ID:        i.ID,
		FullID:    i.FullID(),
		Subject:   i.Subject,
		Project:   toProject(&i.State.Template.Project),
		Template:  toTemplate(&i.State.Template),
		State:     toState(&i.State),
		Author:    userSummary(&i.Author),
		OriginID:  i.OriginID,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
		ClosedAt:  i.ClosedAt,
		ResumesAt: i.ResumesAt,
	}
	if i.Responsible != nil {
		responsible := userSummary(i.Responsible)
		resp.Responsible = &responsible
	}
	return resp
}

type ValueResponse struct {
	Field    FieldResponse `json:"field"`
	Value    *string       `json:"value"`
	Writable bool          `json:"writable"`
}

// IssueDetailResponse is an issue as the current user sees it.
type IssueDetailResponse struct {
	IssueResponse
	Closed      bool                      `json:"closed"`
	Suspended   bool                      `json:"suspended"`
	Frozen      bool                      `json:"frozen"`
	Critical    bool                      `json:"critical"`
	ReadAt      *time.Time                `json:"read_at"`
	Values      []ValueResponse           `json:"values"`
	Permissions map[voters.Attribute]bool `json:"permissions"`
	Transitions []StateResponse           `json:"transitions"`
}

func toIssueDetail(v *services.IssueView) IssueDetailResponse {
	values := make([]ValueResponse, 0, len(v.Values))
	for i := range v.Values {
		values = append(values, ValueResponse{
			Field:    toField(&v.Values[i].Field),
			Value:    v.Values[i].Value,
			Writable: v.Values[i].Writable,
		})
	}
	return IssueDetailResponse{
		IssueResponse: toIssue(v.Issue),
		Closed:        v.Closed,
		Suspended:     v.Suspended,
		Frozen:        v.Frozen,
		Critical:      v.Critical,
		ReadAt:        v.ReadAt,
		Values:        values,
		Permissions:   v.Permissions,
		Transitions:   listOf(v.Transitions, toState),
	}
}

type EventResponse struct {
	ID        uint               `json:"id"`
	Type      types.EventType    `json:"type"`
	User      types.UserResponse `json:"user"`
	Parameter *uint              `json:"parameter"`
	CreatedAt time.Time          `json:"created_at"`
}

func toEvent(e *models.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Type:      e.Type,
		User:      userSummary(&e.User),
		Parameter: e.Parameter,
		CreatedAt: e.CreatedAt,
	}
}

type ChangeResponse struct {
	ID       uint          `json:"id"`
	Event    EventResponse `json:"event"`
	FieldID  *uint         `json:"field_id"`
	OldValue *string       `json:"old_value"`
	NewValue *string       `json:"new_value"`
}

func toChange(c *models.Change) ChangeResponse {
	return ChangeResponse{
		ID:       c.ID,
		Event:    toEvent(&c.Event),
		FieldID:  c.FieldID,
		OldValue: c.OldValue,
		NewValue: c.NewValue,
	}
}

type CommentResponse struct {
	ID        uint               `json:"id"`
	Body      string             `json:"body"`
	HTML      string             `json:"html"`
	Private   bool               `json:"private"`
	User      types.UserResponse `json:"user"`
	CreatedAt time.Time          `json:"created_at"`
}

type FileResponse struct {
	ID        uint               `json:"id"`
	Name      string             `json:"name"`
	Size      int64              `json:"size"`
	MimeType  string             `json:"mime_type"`
	User      types.UserResponse `json:"user"`
	CreatedAt time.Time          `json:"created_at"`
}

func toFile(f *models.File) FileResponse {
	return FileResponse{
		ID:        f.ID,
		Name:      f.FileName,
		Size:      f.FileSize,
		MimeType:  f.MimeType,
		User:      userSummary(&f.Event.User),
		CreatedAt: f.CreatedAt,
	}
}

type DependencyResponse struct {
	ID      uint          `json:"id"`
	FullID  string        `json:"full_id"`
	Subject string        `json:"subject"`
	State   StateResponse `json:"state"`
	Closed  bool          `json:"closed"`
}

func toDependency(i *models.Issue) DependencyResponse {
	return DependencyResponse{
		ID:      i.ID,
		FullID:  i.FullID(),
		Subject: i.Subject,
		State:   toState(&i.State),
		Closed:  i.IsClosed(),
	}
}
