package fields

import (
	"fmt"
	"regexp"
	"strconv"
)

// MaxDuration is 999999:59 in minutes.
const MaxDuration = 59999999

var durationPattern = regexp.MustCompile(`^(\d{1,6}):([0-5]\d)$`)

// DurationParameters are in minutes.
type DurationParameters struct {
	Minimum int  `json:"minimum"`
	Maximum int  `json:"maximum"`
	Default *int `json:"default,omitempty"`
}

type duration struct {
	base
	params DurationParameters
}

func (f *duration) Parameters() any {
	return f.params
}

func (f *duration) Default() *string {
	if f.params.Default == nil {
		return nil
	}
	return ptr(FormatDuration(*f.params.Default))
}

func (f *duration) Validate(value *string, required bool) (*string, error) {
	v, ok, err := f.blank(value, required)
	if !ok {
		return nil, err
	}

	minutes, err := ParseDuration(v)
	if err != nil {
		return nil, f.invalid("%q is not a duration", v)
	}
	if minutes < f.params.Minimum || minutes > f.params.Maximum {
		return nil, f.invalid("duration must be between %s and %s",
			FormatDuration(f.params.Minimum), FormatDuration(f.params.Maximum))
	}

	return ptr(FormatDuration(minutes)), nil
}

func (f *duration) ValidateParameters() error {
	p := f.params
	if p.Minimum < 0 || p.Maximum > MaxDuration {
		return f.invalid("duration range is out of bounds")
	}
	if p.Minimum > p.Maximum {
		return f.invalid("minimum must not exceed maximum")
	}
	if p.Default != nil && (*p.Default < p.Minimum || *p.Default > p.Maximum) {
		return f.invalid("default must be within range")
	}
	return nil
}

// ParseDuration converts "H:MM" to minutes.
func ParseDuration(s string) (int, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return hours*60 + minutes, nil
}

// FormatDuration renders minutes as "H:MM".
func FormatDuration(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
