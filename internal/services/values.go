package services

import (
	"context"
	"time"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/fields"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
)

// fieldAccess resolves the actor's access to a field.
type fieldAccess func(field *models.Field) types.FieldPermission

// stateFields loads the active fields of a state in display order with what
// access checks and validation need.
func stateFields(ctx context.Context, db *gorm.DB, stateID uint) ([]models.Field, error) {
	var list []models.Field
	err := db.WithContext(ctx).
		Preload("RolePermissions").
		Preload("GroupPermissions").
		Preload("ListItems").
		Where("state_id = ? AND removed_at IS NULL", stateID).
		Order("position, id").
		Find(&list).Error
	return list, apperrors.Wrap("field", err)
}

// issueValues loads the values of an issue keyed by field ID, with their
// active fields preloaded. Values of removed fields are skipped.
func issueValues(ctx context.Context, db *gorm.DB, issueID uint) (map[uint]*models.FieldValue, []models.FieldValue, error) {
	var rows []models.FieldValue
	err := db.WithContext(ctx).
		Joins("JOIN fields ON fields.id = field_values.field_id").
		Joins("JOIN states ON states.id = fields.state_id").
		Preload("Field.RolePermissions").
		Preload("Field.GroupPermissions").
		Preload("Field.ListItems").
		Preload("Field.State").
		Where("field_values.issue_id = ? AND fields.removed_at IS NULL", issueID).
		Order("states.id, fields.position, fields.id").
		Find(&rows).Error
	if err != nil {
		return nil, nil, apperrors.Wrap("field value", err)
	}

	byField := make(map[uint]*models.FieldValue, len(rows))
	for i := range rows {
		byField[rows[i].FieldID] = &rows[i]
	}
	return byField, rows, nil
}

// valueEnv builds the validation environment for the actor: dates are
// checked against the actor's current day and issue fields against the
// issues table.
func (s *Service) valueEnv(ctx context.Context, db *gorm.DB, actor *models.User) fields.Env {
	loc, err := time.LoadLocation(actor.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return fields.Env{
		Today: fields.Today(s.now(), loc),
		Issues: func(id uint) (bool, error) {
			return repository.New[models.Issue](db, "issue").Exists(ctx, "id = ?", id)
		},
	}
}

// valueWriter validates and stores field values of one issue.
type valueWriter struct {
	ctx      context.Context
	tx       *gorm.DB
	env      fields.Env
	access   fieldAccess
	issueID  uint
	existing map[uint]*models.FieldValue
}

// fill gives the issue a value for every field of a state it has none for.
// Writable fields take the submitted value, then the fallback, then their
// default, and must satisfy required; other fields get their default.
// Fields the issue already has a value for are updated like in update.
func (w *valueWriter) fill(list []models.Field, submitted, fallback map[uint]*string) ([]models.Change, error) {
	var changes []models.Change
	for i := range list {
		field := &list[i]

		if _, ok := w.existing[field.ID]; ok {
			change, err := w.update(field, submitted)
			if err != nil {
				return nil, err
			}
			if change != nil {
				changes = append(changes, *change)
			}
			continue
		}

		facade, err := fields.For(field, w.env)
		if err != nil {
			return nil, err
		}

		value := facade.Default()
		if w.access(field) == types.FieldPermissionReadWrite {
			if v, ok := submitted[field.ID]; ok {
				value = v
			} else if v, ok := fallback[field.ID]; ok {
				value = v
			}
			if value, err = facade.Validate(value, field.Required); err != nil {
				return nil, err
			}
		}

		row := &models.FieldValue{IssueID: w.issueID, FieldID: field.ID, Value: value}
		if err := repository.New[models.FieldValue](w.tx, "field value").Create(w.ctx, row); err != nil {
			return nil, err
		}
		w.existing[field.ID] = row
	}
	return changes, nil
}

// update stores a submitted value of a writable field the issue already has.
// It returns the change, or nil when nothing changed.
func (w *valueWriter) update(field *models.Field, submitted map[uint]*string) (*models.Change, error) {
	raw, ok := submitted[field.ID]
	if !ok || w.access(field) != types.FieldPermissionReadWrite {
		return nil, nil
	}

	facade, err := fields.For(field, w.env)
	if err != nil {
		return nil, err
	}
	value, err := facade.Validate(raw, field.Required)
	if err != nil {
		return nil, err
	}

	row := w.existing[field.ID]
	if equalValues(row.Value, value) {
		return nil, nil
	}

	change := &models.Change{FieldID: uintPtr(field.ID), OldValue: row.Value, NewValue: value}
	row.Value = value
	err = w.tx.WithContext(w.ctx).Model(&models.FieldValue{}).
		Where("id = ?", row.ID).
		Update("value", value).Error
	if err != nil {
		return nil, apperrors.Wrap("field value", err)
	}
	return change, nil
}

func equalValues(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringPtr(s string) *string {
	return &s
}
