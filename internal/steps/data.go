package steps

import "fmt"

// StepData is one raw configuration record of a step exactly as the plan
// provided it. Keys the step machinery does not know about belong to the
// selected method.
type StepData map[string]interface{}

// How returns the selected method name, falling back to the step default.
func (d StepData) How(fallback string) string {
	if how, ok := d.String("how"); ok && how != "" {
		return how
	}
	return fallback
}

// PhaseName returns the name of the phase, falling back to the given value
// when the record does not name itself.
func (d StepData) PhaseName(fallback string) string {
	if name, ok := d.String("name"); ok && name != "" {
		return name
	}
	return fallback
}

// Summary returns the optional one-line description of the record.
func (d StepData) Summary() string {
	summary, _ := d.String("summary")
	return summary
}

// Where returns the optional guest selector of the record.
func (d StepData) Where() string {
	where, _ := d.String("where")
	return where
}

// String reads a key as a string.
func (d StepData) String(key string) (string, bool) {
	value, ok := d[key]
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

// Bool reads a key as a boolean, falling back when absent or mistyped.
func (d StepData) Bool(key string, fallback bool) bool {
	value, ok := d[key]
	if !ok {
		return fallback
	}
	if b, ok := value.(bool); ok {
		return b
	}
	return fallback
}

// StringList reads a key that accepts either a single string or a list of
// strings, the usual shorthand in plan metadata.
func (d StepData) StringList(key string) []string {
	value, ok := d[key]
	if !ok {
		return nil
	}
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		var items []string
		for _, item := range v {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return items
	}
	return nil
}

// StringMap reads a key holding a mapping of strings, such as environment
// variable definitions.
func (d StepData) StringMap(key string) map[string]string {
	value, ok := d[key]
	if !ok {
		return nil
	}
	raw, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

// Clone copies the record so rewrites do not alias the plan document.
func (d StepData) Clone() StepData {
	copied := make(StepData, len(d))
	for key, value := range d {
		copied[key] = value
	}
	return copied
}
