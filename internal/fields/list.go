package fields

import (
	"strconv"

	"github.com/monocle-dev/tracker/internal/models"
)

// ListParameters.Default is the value of an item of the field.
type ListParameters struct {
	Default *int `json:"default,omitempty"`
}

type list struct {
	base
	params ListParameters
}

func (f *list) Parameters() any {
	return f.params
}

func (f *list) Default() *string {
	if f.params.Default == nil || f.item(*f.params.Default) == nil {
		return nil
	}
	return ptr(strconv.Itoa(*f.params.Default))
}

func (f *list) Validate(value *string, required bool) (*string, error) {
	v, ok, err := f.blank(value, required)
	if !ok {
		return nil, err
	}

	n, err := strconv.Atoi(v)
	if err != nil || f.item(n) == nil {
		return nil, f.invalid("%q is not an item of the list", v)
	}

	return ptr(strconv.Itoa(n)), nil
}

func (f *list) ValidateParameters() error {
	if f.params.Default != nil && f.item(*f.params.Default) == nil {
		return f.invalid("default must be an item of the list")
	}
	return nil
}

func (f *list) item(value int) *models.ListItem {
	for i := range f.field.ListItems {
		if f.field.ListItems[i].Value == value {
			return &f.field.ListItems[i]
		}
	}
	return nil
}
