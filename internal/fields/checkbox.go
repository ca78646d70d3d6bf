package fields

type CheckboxParameters struct {
	Default bool `json:"default"`
}

type checkbox struct {
	base
	params CheckboxParameters
}

func (f *checkbox) Parameters() any {
	return f.params
}

func (f *checkbox) Default() *string {
	return ptr(boolValue(f.params.Default))
}

// Validate never returns nil: an absent checkbox is unchecked.
func (f *checkbox) Validate(value *string, _ bool) (*string, error) {
	if value == nil {
		return ptr("0"), nil
	}
	switch *value {
	case "1", "true", "on":
		return ptr("1"), nil
	case "0", "false", "off", "":
		return ptr("0"), nil
	}
	return nil, f.invalid("%q is not a checkbox value", *value)
}

func (f *checkbox) ValidateParameters() error {
	return nil
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
