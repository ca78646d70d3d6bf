package fields

import (
	"fmt"
	"strconv"
)

type issue struct {
	base
	exists IssueExists
}

func (f *issue) Parameters() any {
	return struct{}{}
}

func (f *issue) Default() *string {
	return nil
}

func (f *issue) Validate(value *string, required bool) (*string, error) {
	v, ok, err := f.blank(value, required)
	if !ok {
		return nil, err
	}

	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil || id == 0 {
		return nil, f.invalid("%q is not an issue ID", v)
	}

	if f.exists != nil {
		found, err := f.exists(uint(id))
		if err != nil {
			return nil, fmt.Errorf("failed to look up issue %d: %w", id, err)
		}
		if !found {
			return nil, f.invalid("issue %d does not exist", id)
		}
	}

	return ptr(strconv.FormatUint(id, 10)), nil
}

func (f *issue) ValidateParameters() error {
	return nil
}
