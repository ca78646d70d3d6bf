package fields

import (
	"errors"
	"testing"
	"time"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var today = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

func facade(t *testing.T, typ types.FieldType, params string) Facade {
	t.Helper()
	field := &models.Field{Name: "Priority", Type: typ}
	if params != "" {
		field.Parameters = datatypes.JSON(params)
	}
	f, err := For(field, Env{Today: today})
	require.NoError(t, err)
	return f
}

func s(v string) *string { return &v }

func assertValid(t *testing.T, f Facade, in, want string) {
	t.Helper()
	got, err := f.Validate(s(in), false)
	require.NoError(t, err, "value %q", in)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func assertInvalid(t *testing.T, f Facade, in string) {
	t.Helper()
	_, err := f.Validate(s(in), false)
	assert.ErrorIs(t, err, apperrors.ErrValidation, "value %q", in)
}

func TestFor_UnknownType(t *testing.T) {
	_, err := For(&models.Field{Type: "colour"}, Env{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestFor_MalformedParameters(t *testing.T) {
	_, err := For(&models.Field{Type: types.FieldNumber, Parameters: datatypes.JSON(`{"minimum":"low"}`)}, Env{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRequired(t *testing.T) {
	for _, typ := range []types.FieldType{
		types.FieldDate, types.FieldDecimal, types.FieldDuration, types.FieldIssue,
		types.FieldList, types.FieldNumber, types.FieldString, types.FieldText,
	} {
		f := facade(t, typ, "")

		v, err := f.Validate(nil, false)
		assert.NoError(t, err, typ)
		assert.Nil(t, v, typ)

		v, err = f.Validate(s("   "), false)
		assert.NoError(t, err, typ)
		assert.Nil(t, v, typ)

		_, err = f.Validate(nil, true)
		assert.ErrorIs(t, err, apperrors.ErrValidation, typ)
	}
}

func TestCheckbox(t *testing.T) {
	f := facade(t, types.FieldCheckbox, `{"default":true}`)
	assert.Equal(t, "1", *f.Default())

	assertValid(t, f, "true", "1")
	assertValid(t, f, "0", "0")
	assertInvalid(t, f, "maybe")

	v, err := f.Validate(nil, true)
	require.NoError(t, err)
	assert.Equal(t, "0", *v, "a checkbox is never empty")
}

func TestDate(t *testing.T) {
	f := facade(t, types.FieldDate, `{"minimum":-7,"maximum":30,"default":14}`)
	assert.Equal(t, "2024-03-29", *f.Default())

	assertValid(t, f, "2024-03-08", "2024-03-08")
	assertValid(t, f, "2024-04-14", "2024-04-14")
	assertInvalid(t, f, "2024-03-07")
	assertInvalid(t, f, "2024-04-15")
	assertInvalid(t, f, "15/03/2024")

	assert.NoError(t, f.ValidateParameters())
	assert.Error(t, facade(t, types.FieldDate, `{"minimum":5,"maximum":1}`).ValidateParameters())
	assert.Error(t, facade(t, types.FieldDate, `{"minimum":0,"maximum":1,"default":2}`).ValidateParameters())

	unbounded := facade(t, types.FieldDate, "")
	assert.Nil(t, unbounded.Default())
	assertValid(t, unbounded, "1970-01-01", "1970-01-01")
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("NZDT", 13*60*60)

	now := time.Date(2024, time.March, 15, 20, 0, 0, 0, time.UTC)
	got := Today(now, loc)
	assert.Equal(t, "2024-03-16", got.Format(DateLayout))
	assert.Equal(t, 0, got.Hour())
}

func TestDecimal(t *testing.T) {
	f := facade(t, types.FieldDecimal, `{"minimum":"-10.5","maximum":"100","default":"3.1400"}`)
	assert.Equal(t, "3.14", *f.Default())

	assertValid(t, f, "1.500", "1.5")
	assertValid(t, f, "+7", "7")
	assertValid(t, f, "-10.5", "-10.5")
	assertInvalid(t, f, "-10.51")
	assertInvalid(t, f, "100.0000000001")
	assertInvalid(t, f, "1e3")
	assertInvalid(t, f, "0.12345678901")

	wide := facade(t, types.FieldDecimal, "")
	assertValid(t, wide, "9999999999.9999999999", "9999999999.9999999999")
	assertInvalid(t, wide, "10000000000")

	assert.NoError(t, f.ValidateParameters())
	assert.Error(t, facade(t, types.FieldDecimal, `{"minimum":"2","maximum":"1"}`).ValidateParameters())
	assert.Error(t, facade(t, types.FieldDecimal, `{"minimum":"0","maximum":"1","default":"1.5"}`).ValidateParameters())
	assert.Error(t, facade(t, types.FieldDecimal, `{"minimum":"lots","maximum":"1"}`).ValidateParameters())
}

func TestDuration(t *testing.T) {
	f := facade(t, types.FieldDuration, `{"minimum":30,"maximum":600,"default":90}`)
	assert.Equal(t, "1:30", *f.Default())

	assertValid(t, f, "0:30", "0:30")
	assertValid(t, f, "10:00", "10:00")
	assertValid(t, f, "02:05", "2:05")
	assertInvalid(t, f, "0:29")
	assertInvalid(t, f, "10:01")
	assertInvalid(t, f, "1:60")
	assertInvalid(t, f, "90")

	full := facade(t, types.FieldDuration, "")
	assertValid(t, full, "999999:59", "999999:59")

	assert.Error(t, facade(t, types.FieldDuration, `{"minimum":-1,"maximum":10}`).ValidateParameters())
	assert.Error(t, facade(t, types.FieldDuration, `{"minimum":0,"maximum":60000000}`).ValidateParameters())
}

func TestDurationConversions(t *testing.T) {
	m, err := ParseDuration("12:34")
	require.NoError(t, err)
	assert.Equal(t, 754, m)
	assert.Equal(t, "12:34", FormatDuration(754))
	assert.Equal(t, "0:00", FormatDuration(0))
}

func TestNumber(t *testing.T) {
	f := facade(t, types.FieldNumber, `{"minimum":-5,"maximum":5,"default":0}`)
	assert.Equal(t, "0", *f.Default())

	assertValid(t, f, "-5", "-5")
	assertValid(t, f, "+3", "3")
	assertValid(t, f, "007", "7")
	assertInvalid(t, f, "6")
	assertInvalid(t, f, "1.5")

	assert.NoError(t, f.ValidateParameters())
	assert.Error(t, facade(t, types.FieldNumber, `{"minimum":-1000000001,"maximum":0}`).ValidateParameters())
	assert.Error(t, facade(t, types.FieldNumber, `{"minimum":3,"maximum":2}`).ValidateParameters())
}

func TestIssueField(t *testing.T) {
	field := &models.Field{Name: "Duplicate of", Type: types.FieldIssue}
	lookup := func(id uint) (bool, error) {
		switch id {
		case 42:
			return true, nil
		case 13:
			return false, errors.New("connection reset")
		}
		return false, nil
	}

	f, err := For(field, Env{Today: today, Issues: lookup})
	require.NoError(t, err)
	assert.Nil(t, f.Default())

	assertValid(t, f, "42", "42")
	assertInvalid(t, f, "43")
	assertInvalid(t, f, "BUG-042")
	assertInvalid(t, f, "0")

	_, err = f.Validate(s("13"), false)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknown, apperrors.CodeOf(err))
}

func TestList(t *testing.T) {
	field := &models.Field{
		Name:       "Severity",
		Type:       types.FieldList,
		Parameters: datatypes.JSON(`{"default":2}`),
		ListItems: []models.ListItem{
			{Value: 1, Text: "Low"},
			{Value: 2, Text: "Medium"},
			{Value: 3, Text: "High"},
		},
	}
	f, err := For(field, Env{Today: today})
	require.NoError(t, err)

	assert.Equal(t, "2", *f.Default())
	assertValid(t, f, "3", "3")
	assertInvalid(t, f, "4")
	assertInvalid(t, f, "High")
	assert.NoError(t, f.ValidateParameters())

	field.Parameters = datatypes.JSON(`{"default":9}`)
	f, err = For(field, Env{Today: today})
	require.NoError(t, err)
	assert.Nil(t, f.Default())
	assert.Error(t, f.ValidateParameters())
}

func TestString(t *testing.T) {
	f := facade(t, types.FieldString, `{"length":10,"pattern":"^[A-Z]{3}-\\d+$","default":"ABC-1"}`)
	assert.Equal(t, "ABC-1", *f.Default())
	assert.NoError(t, f.ValidateParameters())

	assertValid(t, f, "  XYZ-42 ", "XYZ-42")
	assertInvalid(t, f, "xyz-42")
	assertInvalid(t, f, "ABCD-123456")

	plain := facade(t, types.FieldString, "")
	assertValid(t, plain, "Überprüfung", "Überprüfung")

	assert.Error(t, facade(t, types.FieldString, `{"length":0}`).ValidateParameters())
	assert.Error(t, facade(t, types.FieldString, `{"length":251}`).ValidateParameters())
	assert.Error(t, facade(t, types.FieldString, `{"length":10,"pattern":"(["}`).ValidateParameters())
	assert.Error(t, facade(t, types.FieldString, `{"length":10,"pattern":"^\\d+$","default":"abc"}`).ValidateParameters())
	assert.Error(t, facade(t, types.FieldString, `{"length":3,"default":"abcd"}`).ValidateParameters())
}

func TestText(t *testing.T) {
	f := facade(t, types.FieldText, `{"length":12}`)

	assertValid(t, f, "  indented\n", "  indented\n")
	assertInvalid(t, f, "thirteen char")

	assert.NoError(t, facade(t, types.FieldText, "").ValidateParameters())
	assert.Error(t, facade(t, types.FieldText, `{"length":10001}`).ValidateParameters())
}

func TestEncode(t *testing.T) {
	f := facade(t, types.FieldNumber, `{"maximum":10}`)
	raw, err := Encode(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"minimum":-1000000000,"maximum":10}`, string(raw))
}
