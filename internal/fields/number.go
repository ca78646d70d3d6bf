package fields

import (
	"regexp"
	"strconv"
)

const (
	MinNumber = -1000000000
	MaxNumber = 1000000000
)

var numberPattern = regexp.MustCompile(`^[-+]?\d{1,10}$`)

type NumberParameters struct {
	Minimum int  `json:"minimum"`
	Maximum int  `json:"maximum"`
	Default *int `json:"default,omitempty"`
}

type number struct {
	base
	params NumberParameters
}

func (f *number) Parameters() any {
	return f.params
}

func (f *number) Default() *string {
	if f.params.Default == nil {
		return nil
	}
	return ptr(strconv.Itoa(*f.params.Default))
}

func (f *number) Validate(value *string, required bool) (*string, error) {
	v, ok, err := f.blank(value, required)
	if !ok {
		return nil, err
	}

	if !numberPattern.MatchString(v) {
		return nil, f.invalid("%q is not a number", v)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, f.invalid("%q is not a number", v)
	}
	if n < f.params.Minimum || n > f.params.Maximum {
		return nil, f.invalid("value must be between %d and %d", f.params.Minimum, f.params.Maximum)
	}

	return ptr(strconv.Itoa(n)), nil
}

func (f *number) ValidateParameters() error {
	p := f.params
	if p.Minimum < MinNumber || p.Maximum > MaxNumber {
		return f.invalid("range must be within %d and %d", MinNumber, MaxNumber)
	}
	if p.Minimum > p.Maximum {
		return f.invalid("minimum must not exceed maximum")
	}
	if p.Default != nil && (*p.Default < p.Minimum || *p.Default > p.Maximum) {
		return f.invalid("default must be within range")
	}
	return nil
}
