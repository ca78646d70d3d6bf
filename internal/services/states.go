package services

import (
	"context"
	"strings"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
)

type StateCommand struct {
	Name        string                 `json:"name" binding:"required,max=50"`
	Responsible types.StateResponsible `json:"responsible" binding:"required"`
}

type CreateStateCommand struct {
	TemplateID uint            `json:"template_id" binding:"required"`
	Type       types.StateType `json:"type" binding:"required"`
	StateCommand
}

// SetTransitionsCommand replaces who may move issues from a state to To.
type SetTransitionsCommand struct {
	To     uint               `json:"to" binding:"required"`
	Roles  []types.SystemRole `json:"roles"`
	Groups []uint             `json:"groups"`
}

type SetResponsibleGroupsCommand struct {
	Groups []uint `json:"groups"`
}

// StateTransitions lists the outgoing transitions of a state.
type StateTransitions struct {
	Roles  []models.StateRoleTransition
	Groups []models.StateGroupTransition
}

var stateColumns = repository.Columns{
	Search: []string{"states.name"},
	Filters: map[string]repository.Filter{
		"template":    repository.Equals("states.template_id"),
		"name":        repository.Contains("states.name"),
		"type":        repository.Equals("states.type"),
		"responsible": repository.Equals("states.responsible"),
	},
	Sorts: map[string]string{
		"id":          "states.id",
		"template":    "states.template_id",
		"name":        "states.name",
		"type":        "states.type",
		"responsible": "states.responsible",
	},
	Preloads: []string{"Template"},
}

// stateEvents are the events whose parameter is a state ID.
var stateEvents = []types.EventType{
	types.EventIssueCreated,
	types.EventStateChanged,
	types.EventIssueReopened,
	types.EventIssueClosed,
}

func (s *Service) ListStates(ctx context.Context, actor *models.User, q repository.Query) (*repository.Page[models.State], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var page *repository.Page[models.State]
	err := s.read(ctx, "state.list", func(db *gorm.DB) error {
		var err error
		page, err = repository.Collect[models.State](ctx, db, q, stateColumns)
		return err
	})
	return page, err
}

func (s *Service) GetState(ctx context.Context, actor *models.User, id uint) (*models.State, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var state *models.State
	err := s.read(ctx, "state.get", func(db *gorm.DB) error {
		var err error
		state, err = loadState(ctx, db, id)
		return err
	})
	return state, err
}

// CreateState adds a state to a locked template. A new initial state demotes
// the previous one; a final state never keeps a responsible.
func (s *Service) CreateState(ctx context.Context, actor *models.User, cmd CreateStateCommand) (*models.State, error) {
	if !cmd.Type.IsValid() {
		return nil, apperrors.Validation("unknown state type %q", cmd.Type)
	}
	if !cmd.Responsible.IsValid() {
		return nil, apperrors.Validation("unknown responsible mode %q", cmd.Responsible)
	}

	var state *models.State
	err := s.transact(ctx, "state.create", func(tx *gorm.DB) error {
		template, err := loadTemplate(ctx, tx, cmd.TemplateID)
		if err != nil {
			return err
		}
		if !s.stateVoter.CanCreate(actor, template) {
			return deny("you are not allowed to create states in this template")
		}

		state = &models.State{TemplateID: template.ID, Type: cmd.Type}
		applyState(state, cmd.StateCommand)

		repo := repository.New[models.State](tx, "state")
		if err := uniqueStateName(ctx, repo, state); err != nil {
			return err
		}
		if state.IsInitial() {
			if err := demoteInitial(ctx, tx, template.ID); err != nil {
				return err
			}
		}
		if err := repo.Create(ctx, state); err != nil {
			return err
		}
		state.Template = *template
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) UpdateState(ctx context.Context, actor *models.User, id uint, cmd StateCommand) (*models.State, error) {
	if !cmd.Responsible.IsValid() {
		return nil, apperrors.Validation("unknown responsible mode %q", cmd.Responsible)
	}

	var state *models.State
	err := s.transact(ctx, "state.update", func(tx *gorm.DB) error {
		var err error
		if state, err = loadState(ctx, tx, id); err != nil {
			return err
		}
		if !s.stateVoter.CanUpdate(actor, state) {
			return deny("you are not allowed to update this state")
		}

		applyState(state, cmd)

		repo := repository.New[models.State](tx, "state")
		if err := uniqueStateName(ctx, repo, state); err != nil {
			return err
		}
		if state.Responsible != types.ResponsibleAssign {
			err := repository.New[models.StateResponsibleGroup](tx, "responsible group").
				DeleteWhere(ctx, "state_id = ?", state.ID)
			if err != nil {
				return err
			}
			state.ResponsibleGroups = nil
		}
		return repo.Save(ctx, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// DeleteState removes a state nobody has ever used: no issue is in it and no
// event of the history points at it.
func (s *Service) DeleteState(ctx context.Context, actor *models.User, id uint) error {
	return s.transact(ctx, "state.delete", func(tx *gorm.DB) error {
		state, err := loadState(ctx, tx, id)
		if err != nil {
			return err
		}

		inUse, err := stateInUse(ctx, tx, state.ID)
		if err != nil {
			return err
		}
		if !s.stateVoter.CanDelete(actor, state, inUse) {
			if inUse {
				return apperrors.Conflict("state %q is in use", state.Name)
			}
			return deny("you are not allowed to delete this state")
		}

		return repository.New[models.State](tx, "state").Delete(ctx, state)
	})
}

func (s *Service) SetInitialState(ctx context.Context, actor *models.User, id uint) (*models.State, error) {
	var state *models.State
	err := s.transact(ctx, "state.set_initial", func(tx *gorm.DB) error {
		var err error
		if state, err = loadState(ctx, tx, id); err != nil {
			return err
		}
		if !s.stateVoter.CanSetInitial(actor, state) {
			return deny("you are not allowed to make this state initial")
		}

		if err := demoteInitial(ctx, tx, state.TemplateID); err != nil {
			return err
		}
		if state.IsFinal() {
			state.Responsible = types.ResponsibleRemove
		}
		state.Type = types.StateInitial
		return repository.New[models.State](tx, "state").Save(ctx, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) GetTransitions(ctx context.Context, actor *models.User, id uint) (*StateTransitions, error) {
	var transitions *StateTransitions
	err := s.read(ctx, "state.transitions", func(db *gorm.DB) error {
		state, err := loadState(ctx, db, id)
		if err != nil {
			return err
		}
		if !isAdminUser(actor) {
			return deny("you are not allowed to view state transitions")
		}
		transitions, err = loadTransitions(ctx, db, state.ID)
		return err
	})
	return transitions, err
}

// SetTransitions replaces the role and group transitions from the state to cmd.To.
func (s *Service) SetTransitions(ctx context.Context, actor *models.User, id uint, cmd SetTransitionsCommand) (*StateTransitions, error) {
	for _, role := range cmd.Roles {
		if !role.IsValid() {
			return nil, apperrors.Validation("unknown role %q", role)
		}
	}

	var transitions *StateTransitions
	err := s.transact(ctx, "state.set_transitions", func(tx *gorm.DB) error {
		state, err := loadState(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.stateVoter.CanManageTransitions(actor, state) {
			return deny("you are not allowed to change transitions of this state")
		}

		target, err := repository.New[models.State](tx, "state").Get(ctx, cmd.To)
		if err != nil {
			return err
		}
		if target.TemplateID != state.TemplateID || target.ID == state.ID {
			return apperrors.Validation("target state must be another state of the same template")
		}
		if err := checkProjectGroups(ctx, tx, state.Template.ProjectID, cmd.Groups); err != nil {
			return err
		}

		err = repository.New[models.StateRoleTransition](tx, "transition").
			DeleteWhere(ctx, "from_state_id = ? AND to_state_id = ?", state.ID, target.ID)
		if err != nil {
			return err
		}
		err = repository.New[models.StateGroupTransition](tx, "transition").
			DeleteWhere(ctx, "from_state_id = ? AND to_state_id = ?", state.ID, target.ID)
		if err != nil {
			return err
		}

		for _, role := range dedupe(cmd.Roles) {
			t := &models.StateRoleTransition{FromStateID: state.ID, ToStateID: target.ID, Role: role}
			if err := repository.New[models.StateRoleTransition](tx, "transition").Create(ctx, t); err != nil {
				return err
			}
		}
		for _, groupID := range dedupe(cmd.Groups) {
			t := &models.StateGroupTransition{FromStateID: state.ID, ToStateID: target.ID, GroupID: groupID}
			if err := repository.New[models.StateGroupTransition](tx, "transition").Create(ctx, t); err != nil {
				return err
			}
		}

		transitions, err = loadTransitions(ctx, tx, state.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transitions, nil
}

func (s *Service) GetResponsibleGroups(ctx context.Context, actor *models.User, id uint) ([]models.Group, error) {
	var groups []models.Group
	err := s.read(ctx, "state.responsible_groups", func(db *gorm.DB) error {
		state, err := loadState(ctx, db, id)
		if err != nil {
			return err
		}
		if !isAdminUser(actor) {
			return deny("you are not allowed to view responsible groups")
		}
		groups, err = responsibleGroups(ctx, db, state.ID)
		return err
	})
	return groups, err
}

// SetResponsibleGroups replaces the groups whose members may be assigned
// issues entering the state.
func (s *Service) SetResponsibleGroups(ctx context.Context, actor *models.User, id uint, cmd SetResponsibleGroupsCommand) ([]models.Group, error) {
	var groups []models.Group
	err := s.transact(ctx, "state.set_responsible_groups", func(tx *gorm.DB) error {
		state, err := loadState(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.stateVoter.CanManageResponsibleGroups(actor, state) {
			return deny("you are not allowed to change responsible groups of this state")
		}
		if err := checkProjectGroups(ctx, tx, state.Template.ProjectID, cmd.Groups); err != nil {
			return err
		}

		repo := repository.New[models.StateResponsibleGroup](tx, "responsible group")
		if err := repo.DeleteWhere(ctx, "state_id = ?", state.ID); err != nil {
			return err
		}
		for _, groupID := range dedupe(cmd.Groups) {
			if err := repo.Create(ctx, &models.StateResponsibleGroup{StateID: state.ID, GroupID: groupID}); err != nil {
				return err
			}
		}

		groups, err = responsibleGroups(ctx, tx, state.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// ListResponsibles returns the enabled users who may be assigned an issue in
// the state.
func (s *Service) ListResponsibles(ctx context.Context, actor *models.User, id uint) ([]models.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var users []models.User
	err := s.read(ctx, "state.responsibles", func(db *gorm.DB) error {
		state, err := loadState(ctx, db, id)
		if err != nil {
			return err
		}
		users, err = responsiblesOf(ctx, db, state)
		return err
	})
	return users, err
}

func applyState(state *models.State, cmd StateCommand) {
	state.Name = strings.TrimSpace(cmd.Name)
	state.Responsible = cmd.Responsible
	if state.IsFinal() {
		state.Responsible = types.ResponsibleRemove
	}
}

func uniqueStateName(ctx context.Context, repo *repository.Repository[models.State], state *models.State) error {
	taken, err := repo.Exists(ctx, "template_id = ? AND name = ? AND id <> ?", state.TemplateID, state.Name, state.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("state with name %q already exists", state.Name)
	}
	return nil
}

// demoteInitial turns the current initial state into an intermediate one.
// Only fields of the initial state can be required, so the demoted state's
// fields lose the flag.
func demoteInitial(ctx context.Context, db *gorm.DB, templateID uint) error {
	var ids []uint
	err := db.WithContext(ctx).Model(&models.State{}).
		Where("template_id = ? AND type = ?", templateID, types.StateInitial).
		Pluck("id", &ids).Error
	if err != nil {
		return apperrors.Wrap("state", err)
	}
	if len(ids) == 0 {
		return nil
	}

	err = db.WithContext(ctx).Model(&models.Field{}).
		Where("state_id IN ? AND required = ?", ids, true).
		Update("required", false).Error
	if err != nil {
		return apperrors.Wrap("field", err)
	}

	err = db.WithContext(ctx).Model(&models.State{}).
		Where("id IN ?", ids).
		Update("type", types.StateIntermediate).Error
	return apperrors.Wrap("state", err)
}

func stateInUse(ctx context.Context, db *gorm.DB, stateID uint) (bool, error) {
	inIssues, err := repository.New[models.Issue](db, "issue").Exists(ctx, "state_id = ?", stateID)
	if err != nil || inIssues {
		return inIssues, err
	}
	return repository.New[models.Event](db, "event").Exists(ctx, "type IN ? AND parameter = ?", stateEvents, stateID)
}

func loadTransitions(ctx context.Context, db *gorm.DB, stateID uint) (*StateTransitions, error) {
	var result StateTransitions
	err := db.WithContext(ctx).Preload("ToState").
		Where("from_state_id = ?", stateID).
		Order("to_state_id, role").
		Find(&result.Roles).Error
	if err != nil {
		return nil, apperrors.Wrap("transition", err)
	}
	err = db.WithContext(ctx).Preload("ToState").Preload("Group").
		Where("from_state_id = ?", stateID).
		Order("to_state_id, group_id").
		Find(&result.Groups).Error
	if err != nil {
		return nil, apperrors.Wrap("transition", err)
	}
	return &result, nil
}

func responsibleGroups(ctx context.Context, db *gorm.DB, stateID uint) ([]models.Group, error) {
	var groups []models.Group
	err := db.WithContext(ctx).
		Joins("JOIN state_responsible_groups ON state_responsible_groups.group_id = user_groups.id").
		Where("state_responsible_groups.state_id = ?", stateID).
		Order("user_groups.name").
		Find(&groups).Error
	return groups, apperrors.Wrap("group", err)
}

func responsiblesOf(ctx context.Context, db *gorm.DB, state *models.State) ([]models.User, error) {
	members := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Membership{}).
		Select("memberships.user_id").
		Joins("JOIN state_responsible_groups ON state_responsible_groups.group_id = memberships.group_id").
		Where("state_responsible_groups.state_id = ?", state.ID)

	var users []models.User
	err := db.WithContext(ctx).
		Where("disabled = ? AND id IN (?)", false, members).
		Order("fullname, id").
		Find(&users).Error
	return users, apperrors.Wrap("user", err)
}

func isAdminUser(user *models.User) bool {
	return user != nil && user.Admin && !user.Disabled
}
