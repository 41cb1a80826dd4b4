package attribute

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Coerce converts a raw external value (typically a JSON decoding) into
// the native shape for an attribute type: numbers become float64, dates
// become ISO strings, booleans become bool, selects become string or
// []string, composites keep their structural shape. nil passes through
// for every category — absence is represented, not invented.
func Coerce(t Type, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch t.Category() {
	case CategoryNumeric:
		return coerceNumber(raw)
	case CategoryBoolean:
		return coerceBool(raw)
	case CategoryDate:
		return coerceDate(t, raw)
	case CategorySelect:
		if t == TypeMultiselect {
			return coerceStringList(raw)
		}
		return coerceString(raw)
	case CategoryComposite:
		return coerceComposite(t, raw)
	default:
		return coerceString(raw)
	}
}

func coerceNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("empty string is not a number")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%T is not a number", raw)
	}
}

func coerceBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		case "":
			return nil, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", v)
	default:
		return nil, fmt.Errorf("%T is not a boolean", raw)
	}
}

// dateLayouts are accepted on input; output is normalised per type.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "15:04:05", "15:04"}

func coerceDate(t Type, raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%T is not a date string", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		switch t {
		case TypeDate:
			return parsed.Format("2006-01-02"), nil
		case TypeTime:
			return parsed.Format("15:04:05"), nil
		default:
			return parsed.Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("%q is not a recognised date/time", s)
}

func coerceString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("%T is not a string", raw)
	}
}

func coerceStringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%T is not a string element", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("%T is not a string list", raw)
	}
}

func coerceComposite(t Type, raw any) (any, error) {
	switch t {
	case TypeObject:
		if m, ok := raw.(map[string]any); ok {
			return m, nil
		}
		return nil, fmt.Errorf("%T is not an object", raw)
	case TypeArray:
		if l, ok := raw.([]any); ok {
			return l, nil
		}
		return nil, fmt.Errorf("%T is not an array", raw)
	case TypeTable:
		return coerceTable(raw)
	default: // json accepts anything structural
		return raw, nil
	}
}

func coerceTable(raw any) ([][]any, error) {
	switch v := raw.(type) {
	case [][]any:
		return v, nil
	case []any:
		rows := make([][]any, 0, len(v))
		for _, item := range v {
			row, ok := item.([]any)
			if !ok {
				return nil, fmt.Errorf("%T is not a table row", item)
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%T is not a table", raw)
	}
}

// IsEmpty reports whether a coerced value counts as absent for required
// checks: nil, empty string, or empty slice/map.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case [][]any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

// ValidateValue checks a raw value against a definition and returns the
// value-level error messages. Errors are data, never panics: a failed
// coercion is itself a validation error. An empty result means the value
// may be submitted.
func ValidateValue(def Definition, raw any) []string {
	val, err := Coerce(def.Type, raw)
	if err != nil {
		return []string{err.Error()}
	}

	var errs []string
	if IsEmpty(val) {
		if def.IsRequired {
			errs = append(errs, fmt.Sprintf("%s is required", def.Code))
		}
		return errs
	}

	r := def.Rules
	switch def.Type.Category() {
	case CategoryNumeric:
		errs = append(errs, validateNumber(def.Type, r, val.(float64))...)
	case CategoryDate:
		errs = append(errs, validateDate(r, val.(string))...)
	case CategorySelect:
		errs = append(errs, validateSelect(def, val)...)
	case CategoryComposite:
		errs = append(errs, validateComposite(def.Type, r, val)...)
	default:
		errs = append(errs, validateText(def.Type, r, val.(string))...)
	}
	return errs
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlPattern   = regexp.MustCompile(`^https?://\S+$`)
	colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

func validateText(t Type, r Rules, s string) []string {
	var errs []string
	length := len([]rune(s))
	if r.MinLength != nil && length < *r.MinLength {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", *r.MinLength))
	}
	if r.MaxLength != nil && length > *r.MaxLength {
		errs = append(errs, fmt.Sprintf("must be at most %d characters", *r.MaxLength))
	}
	if r.Pattern != "" {
		if re, err := regexp.Compile(r.Pattern); err == nil && !re.MatchString(s) {
			errs = append(errs, fmt.Sprintf("does not match pattern %s", r.Pattern))
		}
	}
	switch t {
	case TypeEmail:
		if !emailPattern.MatchString(s) {
			errs = append(errs, "is not a valid email address")
		}
	case TypeURL:
		if !urlPattern.MatchString(s) {
			errs = append(errs, "is not a valid URL")
		}
	case TypeColor:
		if !colorPattern.MatchString(s) {
			errs = append(errs, "is not a valid hex color")
		}
	case TypeFormula:
		if r.RequireValidSyntax {
			if err := CheckFormulaSyntax(s); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	return errs
}

func validateNumber(t Type, r Rules, f float64) []string {
	var errs []string
	if r.Min != nil && f < *r.Min {
		errs = append(errs, fmt.Sprintf("must be at least %v", *r.Min))
	}
	if r.Max != nil && f > *r.Max {
		errs = append(errs, fmt.Sprintf("must be at most %v", *r.Max))
	}
	integral := f == math.Trunc(f)
	if (r.IsInteger || t == TypeInteger || t == TypeRating) && !integral {
		errs = append(errs, "must be an integer")
	}
	if r.IsPositive && f <= 0 {
		errs = append(errs, "must be positive")
	}
	if r.IsNegative && f >= 0 {
		errs = append(errs, "must be negative")
	}
	if r.IsZero && f != 0 {
		errs = append(errs, "must be zero")
	}
	return errs
}

func validateDate(r Rules, iso string) []string {
	var errs []string
	val, err := time.Parse("2006-01-02", iso[:min(len(iso), 10)])
	if err != nil {
		return errs
	}
	if r.MinDate != "" {
		if minD, err := time.Parse("2006-01-02", r.MinDate); err == nil && val.Before(minD) {
			errs = append(errs, fmt.Sprintf("must not be before %s", r.MinDate))
		}
	}
	if r.MaxDate != "" {
		if maxD, err := time.Parse("2006-01-02", r.MaxDate); err == nil && val.After(maxD) {
			errs = append(errs, fmt.Sprintf("must not be after %s", r.MaxDate))
		}
	}
	return errs
}

func validateSelect(def Definition, val any) []string {
	var errs []string
	r := def.Rules
	var chosen []string
	switch v := val.(type) {
	case string:
		chosen = []string{v}
	case []string:
		chosen = v
	}
	for _, c := range chosen {
		if len(def.Options) > 0 && !def.HasOption(c) {
			errs = append(errs, fmt.Sprintf("%q is not one of the allowed options", c))
		}
	}
	if def.Type == TypeMultiselect {
		if r.MinSelections != nil && len(chosen) < *r.MinSelections {
			errs = append(errs, fmt.Sprintf("select at least %d options", *r.MinSelections))
		}
		if r.MaxSelections != nil && len(chosen) > *r.MaxSelections {
			errs = append(errs, fmt.Sprintf("select at most %d options", *r.MaxSelections))
		}
	}
	return errs
}

func validateComposite(t Type, r Rules, val any) []string {
	switch t {
	case TypeArray:
		return validateArray(r, val.([]any))
	case TypeObject:
		return validateObject(r, val.(map[string]any))
	case TypeTable:
		return validateTable(r, val.([][]any))
	default:
		return nil
	}
}

func validateArray(r Rules, items []any) []string {
	var errs []string
	if len(items) == 0 && !r.EmptyAllowed() {
		errs = append(errs, "must not be empty")
	}
	if r.MinItems != nil && len(items) < *r.MinItems {
		errs = append(errs, fmt.Sprintf("must have at least %d items", *r.MinItems))
	}
	if r.MaxItems != nil && len(items) > *r.MaxItems {
		errs = append(errs, fmt.Sprintf("must have at most %d items", *r.MaxItems))
	}
	if r.UniqueItems {
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			key := fmt.Sprintf("%v", item)
			if seen[key] {
				errs = append(errs, "items must be unique")
				break
			}
			seen[key] = true
		}
	}
	if r.ItemType != "" {
		it, _ := ParseType(r.ItemType)
		for i, item := range items {
			if _, err := Coerce(it, item); err != nil {
				errs = append(errs, fmt.Sprintf("item %d: %v", i, err))
			}
		}
	}
	return errs
}

func validateObject(r Rules, obj map[string]any) []string {
	var errs []string
	if len(obj) == 0 && !r.EmptyObjectAllowed() {
		errs = append(errs, "must not be empty")
	}
	for _, prop := range r.RequiredProperties {
		if _, ok := obj[prop]; !ok {
			errs = append(errs, fmt.Sprintf("missing required property %q", prop))
		}
	}
	if r.StrictMode && len(r.RequiredProperties) > 0 {
		allowed := make(map[string]bool, len(r.RequiredProperties))
		for _, prop := range r.RequiredProperties {
			allowed[prop] = true
		}
		for key := range obj {
			if !allowed[key] {
				errs = append(errs, fmt.Sprintf("unexpected property %q", key))
			}
		}
	}
	if r.JSONSchema != "" {
		result, err := gojsonschema.Validate(
			gojsonschema.NewStringLoader(r.JSONSchema),
			gojsonschema.NewGoLoader(obj),
		)
		if err != nil {
			errs = append(errs, fmt.Sprintf("schema validation failed: %v", err))
		} else if !result.Valid() {
			for _, re := range result.Errors() {
				errs = append(errs, re.String())
			}
		}
	}
	return errs
}

func validateTable(r Rules, rows [][]any) []string {
	var errs []string
	if r.MinRows != nil && len(rows) < *r.MinRows {
		errs = append(errs, fmt.Sprintf("row count below minimum of %d", *r.MinRows))
	}
	if r.MaxRows != nil && len(rows) > *r.MaxRows {
		errs = append(errs, fmt.Sprintf("row count above maximum of %d", *r.MaxRows))
	}
	for i, row := range rows {
		if len(r.Columns) > 0 && len(row) != len(r.Columns) {
			errs = append(errs, fmt.Sprintf("row %d has %d cells, want %d", i, len(row), len(r.Columns)))
		}
	}
	// Per-column required is deliberately not enforced here; only row
	// shape and count bounds are checked at the value level.
	return errs
}
