package attribute

import (
	"fmt"
	"strconv"
)

// RuleEditor edits the validation rules of one attribute type. Each Set
// call applies a single field change and returns the updated rules plus
// the advisory issues for the result. Issues never block the change —
// an inconsistent rule is stored as authored so no input is lost.
type RuleEditor struct {
	attrType Type
	fields   []string
	info     string
}

// EditorFor returns the rule editor for an attribute type. Types without
// bespoke rules (boolean, time, json, expression, barcode, qr) get an
// informational no-op editor; that is the designed behavior, not a gap.
func EditorFor(t Type) RuleEditor {
	fields := RuleFieldsFor(t)
	if len(fields) == 0 {
		return RuleEditor{
			attrType: t,
			info:     fmt.Sprintf("no validation rules are supported for type %q", t),
		}
	}
	return RuleEditor{attrType: t, fields: fields}
}

// Type returns the attribute type this editor is bound to.
func (e RuleEditor) Type() Type { return e.attrType }

// Fields returns the editable rule field names, in catalogue order.
func (e RuleEditor) Fields() []string { return e.fields }

// Supported reports whether the type has any editable rules.
func (e RuleEditor) Supported() bool { return len(e.fields) > 0 }

// Info returns the informational message for no-op editors, "" otherwise.
func (e RuleEditor) Info() string { return e.info }

// Set applies one field change to a copy of r and returns it together
// with the advisory issues for the updated rule set. The change is always
// applied, even when it introduces an inconsistency; unknown or foreign
// fields report an issue and leave the rules untouched.
func (e RuleEditor) Set(r Rules, field string, value any) (Rules, []FieldIssue) {
	if !e.editable(field) {
		return r, []FieldIssue{{
			Field:   field,
			Message: fmt.Sprintf("field %q is not editable for type %q", field, e.attrType),
		}}
	}
	updated, err := setRuleField(r, field, value)
	if err != nil {
		return r, []FieldIssue{{Field: field, Message: err.Error()}}
	}
	return updated, Lint(e.attrType, updated)
}

func (e RuleEditor) editable(field string) bool {
	for _, f := range e.fields {
		if f == field {
			return true
		}
	}
	return false
}

// setRuleField writes one named field into a copy of r. Values arrive as
// raw JSON decodings (float64, string, bool, []any, nil); nil clears.
func setRuleField(r Rules, field string, value any) (Rules, error) {
	switch field {
	case "minLength":
		return r, assignIntPtr(&r.MinLength, value)
	case "maxLength":
		return r, assignIntPtr(&r.MaxLength, value)
	case "pattern":
		return r, assignString(&r.Pattern, value)
	case "min":
		return r, assignFloatPtr(&r.Min, value)
	case "max":
		return r, assignFloatPtr(&r.Max, value)
	case "isInteger":
		return r, assignBool(&r.IsInteger, value)
	case "isPositive":
		return r, assignBool(&r.IsPositive, value)
	case "isNegative":
		return r, assignBool(&r.IsNegative, value)
	case "isZero":
		return r, assignBool(&r.IsZero, value)
	case "minDate":
		return r, assignString(&r.MinDate, value)
	case "maxDate":
		return r, assignString(&r.MaxDate, value)
	case "minSelections":
		return r, assignIntPtr(&r.MinSelections, value)
	case "maxSelections":
		return r, assignIntPtr(&r.MaxSelections, value)
	case "minItems":
		return r, assignIntPtr(&r.MinItems, value)
	case "maxItems":
		return r, assignIntPtr(&r.MaxItems, value)
	case "uniqueItems":
		return r, assignBool(&r.UniqueItems, value)
	case "itemType":
		return r, assignString(&r.ItemType, value)
	case "allowEmpty":
		return r, assignBoolPtr(&r.AllowEmpty, value)
	case "requiredProperties":
		return r, assignStrings(&r.RequiredProperties, value)
	case "jsonSchema":
		return r, assignString(&r.JSONSchema, value)
	case "strictMode":
		return r, assignBool(&r.StrictMode, value)
	case "allowEmptyObject":
		return r, assignBoolPtr(&r.AllowEmptyObject, value)
	case "minRows":
		return r, assignIntPtr(&r.MinRows, value)
	case "maxRows":
		return r, assignIntPtr(&r.MaxRows, value)
	case "allowAddRows":
		return r, assignBoolPtr(&r.AllowAddRows, value)
	case "allowDeleteRows":
		return r, assignBoolPtr(&r.AllowDeleteRows, value)
	case "allowEditRows":
		return r, assignBoolPtr(&r.AllowEditRows, value)
	case "columns":
		return r, assignColumns(&r.Columns, value)
	case "variables":
		return r, assignStrings(&r.Variables, value)
	case "functions":
		return r, assignStrings(&r.Functions, value)
	case "defaultFormula":
		return r, assignString(&r.DefaultFormula, value)
	case "requireValidSyntax":
		return r, assignBool(&r.RequireValidSyntax, value)
	case "allowEmptyFormula":
		return r, assignBoolPtr(&r.AllowEmptyFormula, value)
	}
	return r, fmt.Errorf("unknown rule field %q", field)
}

func assignIntPtr(dst **int, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	switch v := value.(type) {
	case int:
		n := v
		*dst = &n
	case float64:
		n := int(v)
		*dst = &n
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		*dst = &n
	default:
		return fmt.Errorf("not an integer: %v", value)
	}
	return nil
}

func assignFloatPtr(dst **float64, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	switch v := value.(type) {
	case int:
		f := float64(v)
		*dst = &f
	case float64:
		f := v
		*dst = &f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		*dst = &f
	default:
		return fmt.Errorf("not a number: %v", value)
	}
	return nil
}

func assignString(dst *string, value any) error {
	if value == nil {
		*dst = ""
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("not a string: %v", value)
	}
	*dst = s
	return nil
}

func assignBool(dst *bool, value any) error {
	if value == nil {
		*dst = false
		return nil
	}
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("not a boolean: %v", value)
	}
	*dst = b
	return nil
}

func assignBoolPtr(dst **bool, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("not a boolean: %v", value)
	}
	*dst = &b
	return nil
}

func assignStrings(dst *[]string, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	switch v := value.(type) {
	case []string:
		*dst = append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("not a string list element: %v", item)
			}
			out = append(out, s)
		}
		*dst = out
	default:
		return fmt.Errorf("not a string list: %v", value)
	}
	return nil
}

func assignColumns(dst *[]TableColumn, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	switch v := value.(type) {
	case []TableColumn:
		*dst = append([]TableColumn(nil), v...)
	case []any:
		out := make([]TableColumn, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("not a column object: %v", item)
			}
			col := TableColumn{}
			if s, ok := m["name"].(string); ok {
				col.Name = s
			}
			if s, ok := m["type"].(string); ok {
				col.Type = s
			}
			if b, ok := m["required"].(bool); ok {
				col.Required = b
			}
			if w, ok := m["width"].(float64); ok {
				col.Width = int(w)
			}
			if opts, ok := m["options"].([]any); ok {
				for _, o := range opts {
					if s, ok := o.(string); ok {
						col.Options = append(col.Options, s)
					}
				}
			}
			out = append(out, col)
		}
		*dst = out
	default:
		return fmt.Errorf("not a column list: %v", value)
	}
	return nil
}
