package fields

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MinDecimal = "-9999999999.9999999999"
	MaxDecimal = "9999999999.9999999999"
)

var (
	decimalPattern = regexp.MustCompile(`^[-+]?\d{1,10}(\.\d{1,10})?$`)

	errNotDecimal = errors.New("not a decimal")
)

type DecimalParameters struct {
	Minimum string  `json:"minimum"`
	Maximum string  `json:"maximum"`
	Default *string `json:"default,omitempty"`
}

type decimalField struct {
	base
	params DecimalParameters
}

func (f *decimalField) Parameters() any {
	return f.params
}

func (f *decimalField) Default() *string {
	if f.params.Default == nil {
		return nil
	}
	d, err := parseDecimal(*f.params.Default)
	if err != nil {
		return nil
	}
	return ptr(d.String())
}

func (f *decimalField) Validate(value *string, required bool) (*string, error) {
	v, ok, err := f.blank(value, required)
	if !ok {
		return nil, err
	}

	d, err := parseDecimal(v)
	if err != nil {
		return nil, f.invalid("%q is not a decimal", v)
	}

	lo, hi, err := f.bounds()
	if err != nil {
		return nil, err
	}
	if d.LessThan(lo) || d.GreaterThan(hi) {
		return nil, f.invalid("value must be between %s and %s", lo, hi)
	}

	return ptr(d.String()), nil
}

func (f *decimalField) ValidateParameters() error {
	lo, hi, err := f.bounds()
	if err != nil {
		return err
	}
	if lo.GreaterThan(hi) {
		return f.invalid("minimum must not exceed maximum")
	}
	if f.params.Default != nil {
		d, err := parseDecimal(*f.params.Default)
		if err != nil {
			return f.invalid("default %q is not a decimal", *f.params.Default)
		}
		if d.LessThan(lo) || d.GreaterThan(hi) {
			return f.invalid("default must be within range")
		}
	}
	return nil
}

func (f *decimalField) bounds() (decimal.Decimal, decimal.Decimal, error) {
	lo, err := parseDecimal(f.params.Minimum)
	if err != nil {
		return lo, lo, f.invalid("minimum %q is not a decimal", f.params.Minimum)
	}
	hi, err := parseDecimal(f.params.Maximum)
	if err != nil {
		return lo, hi, f.invalid("maximum %q is not a decimal", f.params.Maximum)
	}
	return lo, hi, nil
}

// parseDecimal accepts at most ten integer and ten fraction digits.
func parseDecimal(s string) (decimal.Decimal, error) {
	if !decimalPattern.MatchString(s) {
		return decimal.Zero, errNotDecimal
	}
	return decimal.NewFromString(strings.TrimPrefix(s, "+"))
}
