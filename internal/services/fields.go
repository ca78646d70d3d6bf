package services

import (
	"context"
	"strings"
	"time"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/fields"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FieldCommand struct {
	Name        string         `json:"name" binding:"required,max=50"`
	Description string         `json:"description" binding:"max=1000"`
	Required    bool           `json:"required"`
	Parameters  datatypes.JSON `json:"parameters"`
}

type CreateFieldCommand struct {
	StateID uint            `json:"state_id" binding:"required"`
	Type    types.FieldType `json:"type" binding:"required"`
	FieldCommand
}

type SetFieldPositionCommand struct {
	Position int `json:"position" binding:"required,min=1"`
}

// SetFieldPermissionCommand grants Permission to the listed roles and groups.
// Roles and groups holding Permission before but not listed lose their access.
type SetFieldPermissionCommand struct {
	Permission types.FieldPermission `json:"permission" binding:"required"`
	Roles      []types.SystemRole    `json:"roles"`
	Groups     []uint                `json:"groups"`
}

type FieldPermissions struct {
	Roles  []models.FieldRolePermission
	Groups []models.FieldGroupPermission
}

var fieldColumns = repository.Columns{
	Search: []string{"fields.name", "fields.description"},
	Filters: map[string]repository.Filter{
		"state":    repository.Equals("fields.state_id"),
		"name":     repository.Contains("fields.name"),
		"type":     repository.Equals("fields.type"),
		"required": repository.Bool("fields.required"),
		"removed":  repository.IsSet("fields.removed_at"),
	},
	Sorts: map[string]string{
		"id":       "fields.id",
		"state":    "fields.state_id",
		"name":     "fields.name",
		"type":     "fields.type",
		"position": "fields.position",
		"required": "fields.required",
	},
	Preloads: []string{"ListItems"},
}

func (s *Service) ListFields(ctx context.Context, actor *models.User, q repository.Query) (*repository.Page[models.Field], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var page *repository.Page[models.Field]
	err := s.read(ctx, "field.list", func(db *gorm.DB) error {
		var err error
		page, err = repository.Collect[models.Field](ctx, db, q, fieldColumns)
		return err
	})
	return page, err
}

func (s *Service) GetField(ctx context.Context, actor *models.User, id uint) (*models.Field, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var field *models.Field
	err := s.read(ctx, "field.get", func(db *gorm.DB) error {
		var err error
		field, err = loadField(ctx, db, id)
		return err
	})
	return field, err
}

// CreateField appends a field to a state of a locked template.
func (s *Service) CreateField(ctx context.Context, actor *models.User, cmd CreateFieldCommand) (*models.Field, error) {
	if !cmd.Type.IsValid() {
		return nil, apperrors.Validation("unknown field type %q", cmd.Type)
	}

	var field *models.Field
	err := s.transact(ctx, "field.create", func(tx *gorm.DB) error {
		state, err := loadState(ctx, tx, cmd.StateID)
		if err != nil {
			return err
		}
		if !s.fieldVoter.CanCreate(actor, state) {
			return deny("you are not allowed to create fields in this state")
		}

		field = &models.Field{StateID: state.ID, Type: cmd.Type, State: *state}
		if err := s.applyField(ctx, tx, field, cmd.FieldCommand); err != nil {
			return err
		}

		var last int
		err = tx.WithContext(ctx).Model(&models.Field{}).
			Where("state_id = ? AND removed_at IS NULL", state.ID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error
		if err != nil {
			return apperrors.Wrap("field", err)
		}
		field.Position = last + 1

		return repository.New[models.Field](tx, "field").Create(ctx, field)
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

func (s *Service) UpdateField(ctx context.Context, actor *models.User, id uint, cmd FieldCommand) (*models.Field, error) {
	var field *models.Field
	err := s.transact(ctx, "field.update", func(tx *gorm.DB) error {
		var err error
		if field, err = loadField(ctx, tx, id); err != nil {
			return err
		}
		if !s.fieldVoter.CanUpdate(actor, field) {
			return deny("you are not allowed to update this field")
		}
		if err := s.applyField(ctx, tx, field, cmd); err != nil {
			return err
		}
		return repository.New[models.Field](tx, "field").Save(ctx, field)
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

// DeleteField removes a field. A field that already holds values is only
// marked removed so that issue history stays readable.
func (s *Service) DeleteField(ctx context.Context, actor *models.User, id uint) error {
	return s.transact(ctx, "field.delete", func(tx *gorm.DB) error {
		field, err := loadField(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.fieldVoter.CanDelete(actor, field) {
			return deny("you are not allowed to delete this field")
		}

		used, err := repository.New[models.FieldValue](tx, "field value").Exists(ctx, "field_id = ?", field.ID)
		if err != nil {
			return err
		}

		repo := repository.New[models.Field](tx, "field")
		if used {
			now := s.now()
			field.RemovedAt = &now
			err = repo.Save(ctx, field)
		} else {
			err = repo.Delete(ctx, field)
		}
		if err != nil {
			return err
		}

		err = tx.WithContext(ctx).Model(&models.Field{}).
			Where("state_id = ? AND removed_at IS NULL AND position > ?", field.StateID, field.Position).
			Update("position", gorm.Expr("position - 1")).Error
		return apperrors.Wrap("field", err)
	})
}

// SetFieldPosition moves the field within its state. Positions beyond the
// last field are clamped.
func (s *Service) SetFieldPosition(ctx context.Context, actor *models.User, id uint, cmd SetFieldPositionCommand) (*models.Field, error) {
	var field *models.Field
	err := s.transact(ctx, "field.set_position", func(tx *gorm.DB) error {
		var err error
		if field, err = loadField(ctx, tx, id); err != nil {
			return err
		}
		if !s.fieldVoter.CanUpdate(actor, field) {
			return deny("you are not allowed to move this field")
		}

		var siblings []models.Field
		err = tx.WithContext(ctx).
			Where("state_id = ? AND removed_at IS NULL AND id <> ?", field.StateID, field.ID).
			Order("position, id").
			Find(&siblings).Error
		if err != nil {
			return apperrors.Wrap("field", err)
		}

		position := min(cmd.Position, len(siblings)+1)
		ordered := make([]*models.Field, 0, len(siblings)+1)
		for i := range siblings {
			if len(ordered) == position-1 {
				ordered = append(ordered, field)
			}
			ordered = append(ordered, &siblings[i])
		}
		if len(ordered) == position-1 {
			ordered = append(ordered, field)
		}

		for i, f := range ordered {
			err := tx.WithContext(ctx).Model(&models.Field{}).
				Where("id = ?", f.ID).
				Update("position", i+1).Error
			if err != nil {
				return apperrors.Wrap("field", err)
			}
			f.Position = i + 1
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

func (s *Service) GetFieldPermissions(ctx context.Context, actor *models.User, id uint) (*FieldPermissions, error) {
	var perms *FieldPermissions
	err := s.read(ctx, "field.permissions", func(db *gorm.DB) error {
		field, err := loadField(ctx, db, id)
		if err != nil {
			return err
		}
		if !s.fieldVoter.CanManagePermissions(actor, field) {
			return deny("you are not allowed to view field permissions")
		}
		perms = &FieldPermissions{Roles: field.RolePermissions, Groups: field.GroupPermissions}
		return nil
	})
	return perms, err
}

func (s *Service) SetFieldPermission(ctx context.Context, actor *models.User, id uint, cmd SetFieldPermissionCommand) (*FieldPermissions, error) {
	if !cmd.Permission.IsValid() {
		return nil, apperrors.Validation("unknown field permission %q", cmd.Permission)
	}
	for _, role := range cmd.Roles {
		if !role.IsValid() {
			return nil, apperrors.Validation("unknown role %q", role)
		}
	}

	var perms *FieldPermissions
	err := s.transact(ctx, "field.set_permission", func(tx *gorm.DB) error {
		field, err := loadField(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.fieldVoter.CanManagePermissions(actor, field) {
			return deny("you are not allowed to change field permissions")
		}
		if err := checkProjectGroups(ctx, tx, field.State.Template.ProjectID, cmd.Groups); err != nil {
			return err
		}

		roles := dedupe(cmd.Roles)
		groups := dedupe(cmd.Groups)

		roleRepo := repository.New[models.FieldRolePermission](tx, "field permission")
		err = roleRepo.DeleteWhere(ctx, "field_id = ? AND (permission = ? OR role IN ?)", field.ID, cmd.Permission, roles)
		if err != nil {
			return err
		}
		groupRepo := repository.New[models.FieldGroupPermission](tx, "field permission")
		err = groupRepo.DeleteWhere(ctx, "field_id = ? AND (permission = ? OR group_id IN ?)", field.ID, cmd.Permission, groups)
		if err != nil {
			return err
		}

		for _, role := range roles {
			p := &models.FieldRolePermission{FieldID: field.ID, Role: role, Permission: cmd.Permission}
			if err := roleRepo.Create(ctx, p); err != nil {
				return err
			}
		}
		for _, groupID := range groups {
			p := &models.FieldGroupPermission{FieldID: field.ID, GroupID: groupID, Permission: cmd.Permission}
			if err := groupRepo.Create(ctx, p); err != nil {
				return err
			}
		}

		reloaded, err := loadField(ctx, tx, field.ID)
		if err != nil {
			return err
		}
		perms = &FieldPermissions{Roles: reloaded.RolePermissions, Groups: reloaded.GroupPermissions}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// applyField copies cmd onto field and checks it: the name is unique among
// the state's active fields, only fields of the initial state may be required
// and the parameters are consistent. field.State must be loaded.
func (s *Service) applyField(ctx context.Context, tx *gorm.DB, field *models.Field, cmd FieldCommand) error {
	field.Name = strings.TrimSpace(cmd.Name)
	field.Description = strings.TrimSpace(cmd.Description)
	field.Required = cmd.Required
	field.Parameters = cmd.Parameters

	if field.Required && !field.State.IsInitial() {
		return apperrors.Validation("only fields of the initial state can be required")
	}

	taken, err := repository.New[models.Field](tx, "field").
		Exists(ctx, "state_id = ? AND name = ? AND removed_at IS NULL AND id <> ?", field.StateID, field.Name, field.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("field with name %q already exists", field.Name)
	}

	facade, err := fields.For(field, fields.Env{Today: fields.Today(s.now(), time.UTC)})
	if err != nil {
		return err
	}
	if err := facade.ValidateParameters(); err != nil {
		return err
	}
	field.Parameters, err = fields.Encode(facade)
	return err
}
