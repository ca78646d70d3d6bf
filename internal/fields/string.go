package fields

import (
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

const (
	MaxStringLength = 250
	MaxTextLength   = 10000

	patternTimeout = 100 * time.Millisecond
)

type StringParameters struct {
	Length  int     `json:"length"`
	Default *string `json:"default,omitempty"`
	Pattern *string `json:"pattern,omitempty"`
}

type stringField struct {
	base
	params StringParameters
}

func (f *stringField) Parameters() any {
	return f.params
}

func (f *stringField) Default() *string {
	return f.params.Default
}

func (f *stringField) Validate(value *string, required bool) (*string, error) {
	v, ok, err := f.blank(value, required)
	if !ok {
		return nil, err
	}

	if utf8.RuneCountInString(v) > f.params.Length {
		return nil, f.invalid("value must not exceed %d characters", f.params.Length)
	}
	if err := f.match(v); err != nil {
		return nil, err
	}

	return ptr(v), nil
}

func (f *stringField) ValidateParameters() error {
	p := f.params
	if p.Length < 1 || p.Length > MaxStringLength {
		return f.invalid("length must be between 1 and %d", MaxStringLength)
	}
	if p.Pattern != nil {
		if _, err := compilePattern(*p.Pattern); err != nil {
			return f.invalid("invalid pattern: %v", err)
		}
	}
	if p.Default != nil {
		if utf8.RuneCountInString(*p.Default) > p.Length {
			return f.invalid("default must not exceed %d characters", p.Length)
		}
		if err := f.match(*p.Default); err != nil {
			return err
		}
	}
	return nil
}

func (f *stringField) match(v string) error {
	if f.params.Pattern == nil || *f.params.Pattern == "" {
		return nil
	}
	re, err := compilePattern(*f.params.Pattern)
	if err != nil {
		return f.invalid("invalid pattern: %v", err)
	}
	ok, err := re.MatchString(v)
	if err != nil {
		return f.invalid("pattern check failed: %v", err)
	}
	if !ok {
		return f.invalid("value does not match the required format")
	}
	return nil
}

// compilePattern compiles an admin-supplied pattern. Patterns follow Perl
// syntax and are bounded by a match timeout.
func compilePattern(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = patternTimeout
	return re, nil
}

type TextParameters struct {
	Length  int     `json:"length"`
	Default *string `json:"default,omitempty"`
}

type text struct {
	base
	params TextParameters
}

func (f *text) Parameters() any {
	return f.params
}

func (f *text) Default() *string {
	return f.params.Default
}

// Validate keeps the text as entered; only blank texts collapse to nil.
func (f *text) Validate(value *string, required bool) (*string, error) {
	if _, ok, err := f.blank(value, required); !ok {
		return nil, err
	}

	if utf8.RuneCountInString(*value) > f.params.Length {
		return nil, f.invalid("value must not exceed %d characters", f.params.Length)
	}

	return ptr(*value), nil
}

func (f *text) ValidateParameters() error {
	p := f.params
	if p.Length < 1 || p.Length > MaxTextLength {
		return f.invalid("length must be between 1 and %d", MaxTextLength)
	}
	if p.Default != nil && utf8.RuneCountInString(*p.Default) > p.Length {
		return f.invalid("default must not exceed %d characters", p.Length)
	}
	return nil
}
