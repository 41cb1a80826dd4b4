// Package attribute defines the closed attribute type catalogue, the
// per-type validation rule shapes, and value coercion for a PIM schema.
//
// Attribute definitions are authored by schema administrators and stored
// as data; nothing here is generated at compile time. The type set is
// closed but forward-compatible: an unrecognized type string degrades to
// text behavior at dispatch time instead of failing.
package attribute

// Type identifies one of the declared attribute types.
type Type string

const (
	TypeText        Type = "text"
	TypeTextarea    Type = "textarea"
	TypeNumber      Type = "number"
	TypeInteger     Type = "integer"
	TypeDecimal     Type = "decimal"
	TypeBoolean     Type = "boolean"
	TypeEmail       Type = "email"
	TypeURL         Type = "url"
	TypePassword    Type = "password"
	TypeDate        Type = "date"
	TypeDatetime    Type = "datetime"
	TypeTime        Type = "time"
	TypeSelect      Type = "select"
	TypeMultiselect Type = "multiselect"
	TypeTable       Type = "table"
	TypeFile        Type = "file"
	TypeImage       Type = "image"
	TypeAttachment  Type = "attachment"
	TypeColor       Type = "color"
	TypeRating      Type = "rating"
	TypeReadonly    Type = "readonly"
	TypePhone       Type = "phone"
	TypeRichText    Type = "richText"
	TypeBarcode     Type = "barcode"
	TypeQR          Type = "qr"
	TypeObject      Type = "object"
	TypeArray       Type = "array"
	TypeJSON        Type = "json"
	TypeFormula     Type = "formula"
	TypeExpression  Type = "expression"
)

// AllTypes lists every declared type in catalogue order.
var AllTypes = []Type{
	TypeText, TypeTextarea, TypeNumber, TypeInteger, TypeDecimal,
	TypeBoolean, TypeEmail, TypeURL, TypePassword,
	TypeDate, TypeDatetime, TypeTime,
	TypeSelect, TypeMultiselect, TypeTable,
	TypeFile, TypeImage, TypeAttachment,
	TypeColor, TypeRating, TypeReadonly, TypePhone, TypeRichText,
	TypeBarcode, TypeQR,
	TypeObject, TypeArray, TypeJSON,
	TypeFormula, TypeExpression,
}

var declared = func() map[Type]bool {
	m := make(map[Type]bool, len(AllTypes))
	for _, t := range AllTypes {
		m[t] = true
	}
	return m
}()

// Declared returns true if t is part of the closed catalogue.
func (t Type) Declared() bool {
	return declared[t]
}

// ParseType maps a raw type string to a declared Type. Unknown strings
// return TypeText with ok=false — callers that care about forward
// compatibility treat the result as text, never as an error.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	if t.Declared() {
		return t, true
	}
	return TypeText, false
}

// Category groups types by the native shape their values take.
type Category int

const (
	CategoryText Category = iota
	CategoryNumeric
	CategoryBoolean
	CategoryDate
	CategorySelect
	CategoryComposite
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryText:
		return "text"
	case CategoryNumeric:
		return "numeric"
	case CategoryBoolean:
		return "boolean"
	case CategoryDate:
		return "date"
	case CategorySelect:
		return "select"
	case CategoryComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Category returns the value category for a type. Unknown types fall in
// CategoryText, mirroring the text fallback at render dispatch.
func (t Type) Category() Category {
	switch t {
	case TypeNumber, TypeInteger, TypeDecimal, TypeRating:
		return CategoryNumeric
	case TypeBoolean:
		return CategoryBoolean
	case TypeDate, TypeDatetime, TypeTime:
		return CategoryDate
	case TypeSelect, TypeMultiselect:
		return CategorySelect
	case TypeObject, TypeArray, TypeJSON, TypeTable:
		return CategoryComposite
	default:
		return CategoryText
	}
}

// HasOptions returns true for types whose Options list is meaningful.
func (t Type) HasOptions() bool {
	return t == TypeSelect || t == TypeMultiselect
}
