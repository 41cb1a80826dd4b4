package attribute

import (
	"fmt"
	"regexp"
	"time"
)

// FieldIssue is an advisory authoring problem tied to one rule field.
// Issues never block storing the rule — validation-of-validation warns
// the schema administrator without losing their input.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Lint checks the cross-field consistency of a rule set for an attribute
// type. It is pure: same input, same issues, no side effects. A min/max
// inversion reports an issue on both fields so each input can surface it.
func Lint(t Type, r Rules) []FieldIssue {
	var issues []FieldIssue

	add := func(field, format string, args ...any) {
		issues = append(issues, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for _, name := range r.ForeignFields(t) {
		add(name, "field does not apply to type %q", t)
	}

	if r.MinLength != nil && r.MaxLength != nil && *r.MinLength > *r.MaxLength {
		add("minLength", "minLength %d exceeds maxLength %d", *r.MinLength, *r.MaxLength)
		add("maxLength", "maxLength %d is below minLength %d", *r.MaxLength, *r.MinLength)
	}
	if r.MinLength != nil && *r.MinLength < 0 {
		add("minLength", "minLength must not be negative")
	}
	if r.Pattern != "" {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			add("pattern", "invalid pattern: %v", err)
		}
	}

	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		add("min", "min %v exceeds max %v", *r.Min, *r.Max)
		add("max", "max %v is below min %v", *r.Max, *r.Min)
	}
	if r.IsPositive && r.IsNegative {
		add("isPositive", "isPositive conflicts with isNegative")
		add("isNegative", "isNegative conflicts with isPositive")
	}

	if r.MinDate != "" && r.MaxDate != "" {
		minD, errMin := time.Parse("2006-01-02", r.MinDate)
		maxD, errMax := time.Parse("2006-01-02", r.MaxDate)
		if errMin != nil {
			add("minDate", "invalid date %q", r.MinDate)
		}
		if errMax != nil {
			add("maxDate", "invalid date %q", r.MaxDate)
		}
		if errMin == nil && errMax == nil && minD.After(maxD) {
			add("minDate", "minDate %s is after maxDate %s", r.MinDate, r.MaxDate)
			add("maxDate", "maxDate %s is before minDate %s", r.MaxDate, r.MinDate)
		}
	}

	if r.MinSelections != nil && *r.MinSelections < 0 {
		add("minSelections", "minSelections must not be negative")
	}
	if r.MaxSelections != nil && *r.MaxSelections < 0 {
		add("maxSelections", "maxSelections must not be negative")
	}
	if r.MinSelections != nil && r.MaxSelections != nil && *r.MinSelections > *r.MaxSelections {
		add("minSelections", "minSelections %d exceeds maxSelections %d", *r.MinSelections, *r.MaxSelections)
		add("maxSelections", "maxSelections %d is below minSelections %d", *r.MaxSelections, *r.MinSelections)
	}

	if r.MinItems != nil && r.MaxItems != nil && *r.MinItems > *r.MaxItems {
		add("minItems", "minItems %d exceeds maxItems %d", *r.MinItems, *r.MaxItems)
		add("maxItems", "maxItems %d is below minItems %d", *r.MaxItems, *r.MinItems)
	}
	if r.ItemType != "" {
		if _, ok := ParseType(r.ItemType); !ok {
			add("itemType", "unknown item type %q", r.ItemType)
		}
	}

	if r.MinRows != nil && r.MaxRows != nil && *r.MinRows > *r.MaxRows {
		add("minRows", "minRows %d exceeds maxRows %d", *r.MinRows, *r.MaxRows)
		add("maxRows", "maxRows %d is below minRows %d", *r.MaxRows, *r.MinRows)
	}
	if t == TypeTable {
		for i, col := range r.Columns {
			switch col.Type {
			case "text", "number", "date", "select":
			default:
				add("columns", "column %d (%q): unknown column type %q", i, col.Name, col.Type)
			}
			if col.Type == "select" && len(col.Options) == 0 {
				add("columns", "column %d (%q): select column has no options", i, col.Name)
			}
		}
	}

	if t == TypeFormula && r.RequireValidSyntax && r.DefaultFormula != "" {
		if err := CheckFormulaSyntax(r.DefaultFormula); err != nil {
			add("defaultFormula", "default formula: %v", err)
		}
	}

	return issues
}

// CheckFormulaSyntax is the advisory syntax pre-check used when a formula
// rule demands valid syntax: balanced parentheses and no empty body.
func CheckFormulaSyntax(formula string) error {
	depth := 0
	for i, ch := range formula {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced ')' at position %d", i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced '(': %d left open", depth)
	}
	return nil
}
