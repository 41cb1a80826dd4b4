package attribute

import (
	"fmt"
	"strings"
)

// LocalizedText maps a language code to a display string.
type LocalizedText map[string]string

// Get resolves the text for a language, falling back to "en" and then to
// any available language. Returns "" only when the map is empty.
func (lt LocalizedText) Get(lang string) string {
	if s, ok := lt[lang]; ok && s != "" {
		return s
	}
	if s, ok := lt["en"]; ok && s != "" {
		return s
	}
	for _, s := range lt {
		if s != "" {
			return s
		}
	}
	return ""
}

// Option is one selectable value for select/multiselect attributes.
// Order is significant.
type Option struct {
	Value  string        `json:"value"`
	Labels LocalizedText `json:"labels,omitempty"`
}

// Label resolves an option's display label, falling back to its value.
func (o Option) Label(lang string) string {
	if s := o.Labels.Get(lang); s != "" {
		return s
	}
	return o.Value
}

// Definition describes a single attribute on an entity type.
// Type is immutable after creation; the store enforces that.
type Definition struct {
	Code        string        `json:"code"`
	Type        Type          `json:"type"`
	IsRequired  bool          `json:"isRequired"`
	Options     []Option      `json:"options,omitempty"`
	Rules       Rules         `json:"validations"`
	Name        LocalizedText `json:"name,omitempty"`
	Description LocalizedText `json:"description,omitempty"`
}

// DisplayName resolves the localized attribute name, falling back to code.
func (d Definition) DisplayName(lang string) string {
	if s := d.Name.Get(lang); s != "" {
		return s
	}
	return d.Code
}

// OptionValues returns the ordered option values.
func (d Definition) OptionValues() []string {
	vals := make([]string, len(d.Options))
	for i, o := range d.Options {
		vals[i] = o.Value
	}
	return vals
}

// HasOption reports whether value is one of the definition's options.
func (d Definition) HasOption(value string) bool {
	for _, o := range d.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// CheckDefinition verifies the structural invariants of a definition:
// non-empty code, and rule fields that belong to the attribute's type.
// Rule cross-field problems (min > max etc.) are authoring advisories and
// reported by Lint, not here.
func CheckDefinition(d Definition) error {
	if strings.TrimSpace(d.Code) == "" {
		return fmt.Errorf("attribute code is empty")
	}
	if foreign := d.Rules.ForeignFields(d.Type); len(foreign) > 0 {
		return fmt.Errorf("attribute %q: rule fields %s do not apply to type %q",
			d.Code, strings.Join(foreign, ", "), d.Type)
	}
	return nil
}
