// Package fields adapts the generic Field entity to its type: parameters,
// default values and value validation differ per field type.
package fields

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/datatypes"
)

// Facade is the type-specific view of a field.
type Facade interface {
	Type() types.FieldType
	// Parameters returns the decoded parameters with defaults applied.
	Parameters() any
	// Default returns the value a new issue gets when none is supplied.
	Default() *string
	// Validate checks a submitted value and returns its canonical form.
	// A nil or blank value is accepted as nil unless required.
	Validate(value *string, required bool) (*string, error)
	// ValidateParameters checks the field's parameters for consistency.
	ValidateParameters() error
}

// IssueExists reports whether an issue with the given ID exists.
type IssueExists func(id uint) (bool, error)

// Env carries what validation needs beyond the field itself.
type Env struct {
	// Today is midnight of the current day in the acting user's timezone.
	Today time.Time
	// Issues is consulted by issue fields; nil accepts any ID.
	Issues IssueExists
}

// Today truncates now to midnight in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// For returns the facade matching field.Type. List fields expect ListItems
// preloaded.
func For(field *models.Field, env Env) (Facade, error) {
	if env.Today.IsZero() {
		env.Today = Today(time.Now(), time.UTC)
	}

	b := base{field: field}

	switch field.Type {
	case types.FieldCheckbox:
		f := &checkbox{base: b}
		return f, b.decode(&f.params)
	case types.FieldDate:
		f := &date{base: b, today: env.Today, params: DateParameters{Minimum: MinDateOffset, Maximum: MaxDateOffset}}
		return f, b.decode(&f.params)
	case types.FieldDecimal:
		f := &decimalField{base: b, params: DecimalParameters{Minimum: MinDecimal, Maximum: MaxDecimal}}
		return f, b.decode(&f.params)
	case types.FieldDuration:
		f := &duration{base: b, params: DurationParameters{Minimum: 0, Maximum: MaxDuration}}
		return f, b.decode(&f.params)
	case types.FieldIssue:
		return &issue{base: b, exists: env.Issues}, nil
	case types.FieldList:
		f := &list{base: b}
		return f, b.decode(&f.params)
	case types.FieldNumber:
		f := &number{base: b, params: NumberParameters{Minimum: MinNumber, Maximum: MaxNumber}}
		return f, b.decode(&f.params)
	case types.FieldString:
		f := &stringField{base: b, params: StringParameters{Length: MaxStringLength}}
		return f, b.decode(&f.params)
	case types.FieldText:
		f := &text{base: b, params: TextParameters{Length: MaxTextLength}}
		return f, b.decode(&f.params)
	}

	return nil, apperrors.Validation("unknown field type %q", field.Type)
}

// Encode serializes the facade's parameters for storage.
func Encode(f Facade) (datatypes.JSON, error) {
	raw, err := json.Marshal(f.Parameters())
	if err != nil {
		return nil, fmt.Errorf("failed to encode field parameters: %w", err)
	}
	return datatypes.JSON(raw), nil
}

type base struct {
	field *models.Field
}

func (b base) Type() types.FieldType {
	return b.field.Type
}

func (b base) decode(params any) error {
	if len(b.field.Parameters) == 0 || string(b.field.Parameters) == "null" {
		return nil
	}
	if err := json.Unmarshal(b.field.Parameters, params); err != nil {
		return apperrors.Validation("invalid parameters of field %q: %v", b.field.Name, err)
	}
	return nil
}

// blank checks presence. It returns ok=false when the value is absent, with an
// error if the field is required.
func (b base) blank(value *string, required bool) (string, bool, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		if required {
			return "", false, apperrors.Validation("field %q is required", b.field.Name)
		}
		return "", false, nil
	}
	return strings.TrimSpace(*value), true, nil
}

func (b base) invalid(format string, args ...any) error {
	return apperrors.Validation("field %q: %s", b.field.Name, fmt.Sprintf(format, args...))
}

func ptr(s string) *string {
	return &s
}
