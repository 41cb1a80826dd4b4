package render

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/pimkit/pimkit/internal/attribute"
)

// placeholder is rendered for nil/empty values in cell mode.
const placeholder = "—"

// Builtin returns a registry populated with a renderer for every declared
// attribute type. Called once at startup.
func Builtin() *Registry {
	reg := NewRegistry()

	for _, t := range attribute.AllTypes {
		reg.Register(t, Renderer{
			Cell:   cellFor(t),
			Edit:   editFor(t),
			Detail: detailFor(t),
		})
	}
	return reg
}

// cellFor picks the cell strategy for a type. Every strategy tolerates
// nil and wrong-shaped input by falling back to the placeholder.
func cellFor(t attribute.Type) CellFunc {
	switch t {
	case attribute.TypeBoolean:
		return boolCell
	case attribute.TypePassword:
		return passwordCell
	case attribute.TypeSelect:
		return selectCell
	case attribute.TypeMultiselect:
		return multiselectCell
	case attribute.TypeTable:
		return tableCell
	case attribute.TypeObject, attribute.TypeArray, attribute.TypeJSON:
		return jsonCell
	case attribute.TypeRating:
		return ratingCell
	case attribute.TypeFile, attribute.TypeImage, attribute.TypeAttachment:
		return fileCell
	case attribute.TypeRichText:
		return richTextCell
	default:
		return textCell(t)
	}
}

func textCell(t attribute.Type) CellFunc {
	return func(value any, def attribute.Definition, lang string) string {
		coerced, err := attribute.Coerce(t, value)
		if err != nil || attribute.IsEmpty(coerced) {
			return placeholder
		}
		switch v := coerced.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			return v
		default:
			return fmt.Sprintf("%v", v)
		}
	}
}

func boolCell(value any, _ attribute.Definition, _ string) string {
	coerced, err := attribute.Coerce(attribute.TypeBoolean, value)
	if err != nil || coerced == nil {
		return placeholder
	}
	if coerced.(bool) {
		return "Yes"
	}
	return "No"
}

func passwordCell(value any, _ attribute.Definition, _ string) string {
	if attribute.IsEmpty(value) {
		return placeholder
	}
	return "••••••"
}

func selectCell(value any, def attribute.Definition, lang string) string {
	s, ok := value.(string)
	if !ok || s == "" {
		return placeholder
	}
	for _, o := range def.Options {
		if o.Value == s {
			return o.Label(lang)
		}
	}
	return s
}

func multiselectCell(value any, def attribute.Definition, lang string) string {
	vals, err := attribute.Coerce(attribute.TypeMultiselect, value)
	if err != nil {
		return placeholder
	}
	list, _ := vals.([]string)
	if len(list) == 0 {
		return placeholder
	}
	labels := make([]string, len(list))
	for i, v := range list {
		labels[i] = v
		for _, o := range def.Options {
			if o.Value == v {
				labels[i] = o.Label(lang)
				break
			}
		}
	}
	return strings.Join(labels, ", ")
}

func tableCell(value any, _ attribute.Definition, _ string) string {
	rows, err := attribute.Coerce(attribute.TypeTable, value)
	if err != nil {
		return placeholder
	}
	table, _ := rows.([][]any)
	switch len(table) {
	case 0:
		return placeholder
	case 1:
		return "1 row"
	default:
		return fmt.Sprintf("%d rows", len(table))
	}
}

func jsonCell(value any, _ attribute.Definition, _ string) string {
	if attribute.IsEmpty(value) {
		return placeholder
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return placeholder
	}
	s := string(raw)
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return s
}

func ratingCell(value any, _ attribute.Definition, _ string) string {
	coerced, err := attribute.Coerce(attribute.TypeRating, value)
	if err != nil || coerced == nil {
		return placeholder
	}
	n := int(coerced.(float64))
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func fileCell(value any, _ attribute.Definition, _ string) string {
	s, ok := value.(string)
	if !ok || s == "" {
		return placeholder
	}
	return path.Base(s)
}

func richTextCell(value any, _ attribute.Definition, _ string) string {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return placeholder
	}
	plain := stripTags(s)
	if len([]rune(plain)) > 60 {
		plain = string([]rune(plain)[:57]) + "..."
	}
	return plain
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, ch := range s {
		switch {
		case ch == '<':
			inTag = true
		case ch == '>':
			inTag = false
		case !inTag:
			b.WriteRune(ch)
		}
	}
	return strings.TrimSpace(b.String())
}

// editFor picks the edit strategy. All edit strategies share one shape:
// no-op when disabled, coerce, propagate the coerced value, return the
// value-validation errors.
func editFor(t attribute.Type) EditFunc {
	if t == attribute.TypeReadonly {
		return readonlyEdit
	}
	return func(raw any, onChange func(any), disabled bool, def attribute.Definition) []string {
		if disabled {
			return nil
		}
		coerced, err := attribute.Coerce(t, raw)
		if err != nil {
			return []string{err.Error()}
		}
		if onChange != nil {
			onChange(coerced)
		}
		return attribute.ValidateValue(def, coerced)
	}
}

// readonlyEdit never propagates a change; the value is display-only.
func readonlyEdit(_ any, _ func(any), _ bool, _ attribute.Definition) []string {
	return nil
}

// detailFor composes label, required marker, body, localized description,
// and the caller-provided error string.
func detailFor(t attribute.Type) DetailFunc {
	cell := cellFor(t)
	return func(value any, def attribute.Definition, lang string, errMsg string) string {
		var b strings.Builder
		b.WriteString(def.DisplayName(lang))
		if def.IsRequired {
			b.WriteString(" *")
		}
		b.WriteString("\n")
		b.WriteString(cell(value, def, lang))
		if desc := def.Description.Get(lang); desc != "" {
			b.WriteString("\n")
			b.WriteString(desc)
		}
		if errMsg != "" {
			b.WriteString("\n! ")
			b.WriteString(errMsg)
		}
		return b.String()
	}
}
