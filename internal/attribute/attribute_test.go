package attribute

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func TestParseType_UnknownFallsBackToText(t *testing.T) {
	typ, ok := ParseType("geo_point")
	assert.False(t, ok)
	assert.Equal(t, TypeText, typ)

	typ, ok = ParseType("multiselect")
	assert.True(t, ok)
	assert.Equal(t, TypeMultiselect, typ)
}

func TestDefinition_RoundTrip(t *testing.T) {
	defs := []Definition{
		{
			Code: "sku", Type: TypeText, IsRequired: true,
			Rules: Rules{MinLength: intPtr(3), MaxLength: intPtr(64), Pattern: `^[A-Z0-9-]+$`},
			Name:  LocalizedText{"en": "SKU", "de": "Artikelnummer"},
		},
		{
			Code: "weight", Type: TypeDecimal,
			Rules: Rules{Min: floatPtr(0), Max: floatPtr(500), IsPositive: true},
		},
		{
			Code: "release", Type: TypeDate,
			Rules: Rules{MinDate: "2020-01-01", MaxDate: "2030-12-31"},
		},
		{
			Code: "tags", Type: TypeMultiselect,
			Options: []Option{{Value: "new"}, {Value: "sale", Labels: LocalizedText{"en": "Sale"}}},
			Rules:   Rules{MinSelections: intPtr(0), MaxSelections: intPtr(3)},
		},
		{
			Code: "aliases", Type: TypeArray,
			Rules: Rules{MinItems: intPtr(1), MaxItems: intPtr(10), UniqueItems: true, ItemType: "text", AllowEmpty: boolPtr(false)},
		},
		{
			Code: "dimensions", Type: TypeObject,
			Rules: Rules{RequiredProperties: []string{"w", "h"}, StrictMode: true, AllowEmptyObject: boolPtr(false), JSONSchema: `{"type":"object"}`},
		},
		{
			Code: "price_tiers", Type: TypeTable,
			Rules: Rules{
				Columns: []TableColumn{
					{Name: "qty", Type: "number", Required: true},
					{Name: "currency", Type: "select", Options: []string{"EUR", "USD"}},
				},
				MinRows: intPtr(1), MaxRows: intPtr(20),
				AllowAddRows: boolPtr(true), AllowDeleteRows: boolPtr(false), AllowEditRows: boolPtr(true),
			},
		},
		{
			Code: "margin", Type: TypeFormula,
			Rules: Rules{Variables: []string{"price", "cost"}, Functions: []string{"round"}, DefaultFormula: "round(price - cost)", RequireValidSyntax: true, AllowEmptyFormula: boolPtr(true)},
		},
	}

	for _, def := range defs {
		raw, err := json.Marshal(def)
		require.NoError(t, err, def.Code)

		var back Definition
		require.NoError(t, json.Unmarshal(raw, &back), def.Code)
		assert.Equal(t, def, back, "round trip for %s", def.Code)
	}
}

func TestLint_MinMaxInversionFlagsBothFields(t *testing.T) {
	issues := Lint(TypeNumber, Rules{Min: floatPtr(10), Max: floatPtr(5)})
	require.Len(t, issues, 2)

	fields := []string{issues[0].Field, issues[1].Field}
	assert.Contains(t, fields, "min")
	assert.Contains(t, fields, "max")
}

func TestLint_ForeignFieldReported(t *testing.T) {
	issues := Lint(TypeText, Rules{MinRows: intPtr(1)})
	require.Len(t, issues, 1)
	assert.Equal(t, "minRows", issues[0].Field)
}

func TestLint_DateInversion(t *testing.T) {
	issues := Lint(TypeDate, Rules{MinDate: "2025-06-01", MaxDate: "2025-01-01"})
	require.Len(t, issues, 2)
}

func TestEditorFor_NoRuleTypes(t *testing.T) {
	for _, typ := range []Type{TypeBoolean, TypeTime, TypeJSON, TypeExpression, TypeBarcode, TypeQR} {
		ed := EditorFor(typ)
		assert.False(t, ed.Supported(), "type %s", typ)
		assert.NotEmpty(t, ed.Info(), "type %s", typ)
	}
	assert.True(t, EditorFor(TypeNumber).Supported())
}

func TestEditor_SetIsNonBlocking(t *testing.T) {
	ed := EditorFor(TypeNumber)

	rules, issues := ed.Set(Rules{}, "min", 10.0)
	require.Empty(t, issues)
	require.NotNil(t, rules.Min)

	// Introducing max < min stores the value and reports the conflict
	// on both fields instead of rejecting the edit.
	rules, issues = ed.Set(rules, "max", 5.0)
	require.NotNil(t, rules.Max)
	assert.Equal(t, 5.0, *rules.Max)
	require.Len(t, issues, 2)
}

func TestEditor_RejectsForeignField(t *testing.T) {
	ed := EditorFor(TypeText)
	rules, issues := ed.Set(Rules{}, "minRows", 1)
	assert.Nil(t, rules.MinRows)
	require.Len(t, issues, 1)
	assert.Equal(t, "minRows", issues[0].Field)
}

func TestCoerce_NativeShapes(t *testing.T) {
	n, err := Coerce(TypeNumber, "12.5")
	require.NoError(t, err)
	assert.Equal(t, 12.5, n)

	b, err := Coerce(TypeBoolean, "true")
	require.NoError(t, err)
	assert.Equal(t, true, b)

	d, err := Coerce(TypeDate, "2025-03-01T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", d)

	ms, err := Coerce(TypeMultiselect, []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ms)

	nilVal, err := Coerce(TypeInteger, nil)
	require.NoError(t, err)
	assert.Nil(t, nilVal)
}

func TestValidateValue_Required(t *testing.T) {
	def := Definition{Code: "name", Type: TypeText, IsRequired: true}
	errs := ValidateValue(def, "")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "required")

	assert.Empty(t, ValidateValue(def, "Widget"))
}

func TestValidateValue_NumberBounds(t *testing.T) {
	def := Definition{Code: "qty", Type: TypeInteger, Rules: Rules{Min: floatPtr(1), Max: floatPtr(100)}}
	assert.Empty(t, ValidateValue(def, 50))
	assert.NotEmpty(t, ValidateValue(def, 0))
	assert.NotEmpty(t, ValidateValue(def, 101))
	assert.NotEmpty(t, ValidateValue(def, 2.5)) // integer type rejects fractions
}

func TestValidateValue_SelectMembership(t *testing.T) {
	def := Definition{
		Code: "status", Type: TypeSelect,
		Options: []Option{{Value: "draft"}, {Value: "live"}},
	}
	assert.Empty(t, ValidateValue(def, "draft"))
	assert.NotEmpty(t, ValidateValue(def, "retired"))
}

func TestValidateValue_ObjectRules(t *testing.T) {
	def := Definition{
		Code: "dims", Type: TypeObject,
		Rules: Rules{RequiredProperties: []string{"w", "h"}, StrictMode: true},
	}
	assert.Empty(t, ValidateValue(def, map[string]any{"w": 1, "h": 2}))
	assert.NotEmpty(t, ValidateValue(def, map[string]any{"w": 1}))
	assert.NotEmpty(t, ValidateValue(def, map[string]any{"w": 1, "h": 2, "d": 3}))
}

func TestValidateValue_TableRowBounds(t *testing.T) {
	def := Definition{
		Code: "tiers", Type: TypeTable,
		Rules: Rules{
			Columns: []TableColumn{{Name: "qty", Type: "number"}, {Name: "price", Type: "number"}},
			MinRows: intPtr(1), MaxRows: intPtr(2),
		},
	}
	assert.Empty(t, ValidateValue(def, []any{[]any{1.0, 9.99}}))

	errs := ValidateValue(def, []any{[]any{1.0, 9.99}, []any{5.0, 8.99}, []any{10.0, 7.99}})
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "maximum")
}

func TestCheckFormulaSyntax(t *testing.T) {
	assert.NoError(t, CheckFormulaSyntax("round(price * (1 - discount))"))
	assert.Error(t, CheckFormulaSyntax("round(price"))
	assert.Error(t, CheckFormulaSyntax("price)("))
}

func TestCheckDefinition(t *testing.T) {
	assert.Error(t, CheckDefinition(Definition{Code: " "}))
	assert.Error(t, CheckDefinition(Definition{Code: "name", Type: TypeText, Rules: Rules{MinRows: intPtr(1)}}))
	assert.NoError(t, CheckDefinition(Definition{Code: "name", Type: TypeText}))
}
