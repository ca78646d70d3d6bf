package fields

import (
	"math"
	"time"
)

const (
	DateLayout = "2006-01-02"

	MinDateOffset = math.MinInt32
	MaxDateOffset = math.MaxInt32
)

// DateParameters bound values relative to the current day, in days.
type DateParameters struct {
	Minimum int  `json:"minimum"`
	Maximum int  `json:"maximum"`
	Default *int `json:"default,omitempty"`
}

type date struct {
	base
	today  time.Time
	params DateParameters
}

func (f *date) Parameters() any {
	return f.params
}

func (f *date) Default() *string {
	if f.params.Default == nil {
		return nil
	}
	return ptr(f.today.AddDate(0, 0, *f.params.Default).Format(DateLayout))
}

func (f *date) Validate(value *string, required bool) (*string, error) {
	v, ok, err := f.blank(value, required)
	if !ok {
		return nil, err
	}

	d, err := time.ParseInLocation(DateLayout, v, f.today.Location())
	if err != nil {
		return nil, f.invalid("%q is not a date", v)
	}

	from := f.today.AddDate(0, 0, f.params.Minimum)
	to := f.today.AddDate(0, 0, f.params.Maximum)
	if d.Before(from) || d.After(to) {
		return nil, f.invalid("date must be between %s and %s", from.Format(DateLayout), to.Format(DateLayout))
	}

	return ptr(d.Format(DateLayout)), nil
}

func (f *date) ValidateParameters() error {
	p := f.params
	if p.Minimum < MinDateOffset || p.Maximum > MaxDateOffset {
		return f.invalid("date range is out of bounds")
	}
	if p.Minimum > p.Maximum {
		return f.invalid("minimum must not exceed maximum")
	}
	if p.Default != nil && (*p.Default < p.Minimum || *p.Default > p.Maximum) {
		return f.invalid("default must be within range")
	}
	return nil
}
