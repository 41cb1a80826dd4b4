package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimkit/pimkit/internal/attribute"
)

func TestResolve_UnknownTypeFallsBackToText(t *testing.T) {
	reg := Builtin()

	for _, unknown := range []string{"geo_point", "matrix", ""} {
		got := reg.Resolve(unknown)
		want := reg.Resolve("text")
		assert.Equal(t, want.Type, got.Type, "type %q", unknown)
		assert.Equal(t, attribute.TypeText, got.Type)
	}
}

func TestResolve_EveryDeclaredTypeHasAllModes(t *testing.T) {
	reg := Builtin()
	for _, typ := range attribute.AllTypes {
		r := reg.Resolve(string(typ))
		assert.Equal(t, typ, r.Type)
		assert.NotNil(t, r.Cell, "cell for %s", typ)
		assert.NotNil(t, r.Edit, "edit for %s", typ)
		assert.NotNil(t, r.Detail, "detail for %s", typ)
	}
}

func TestCell_NeutralPlaceholderOnEmpty(t *testing.T) {
	reg := Builtin()
	def := attribute.Definition{Code: "x"}

	for _, typ := range attribute.AllTypes {
		for _, empty := range []any{nil, ""} {
			out := reg.RenderCell(string(typ), empty, def, "en")
			assert.Equal(t, placeholder, out, "type %s with %#v", typ, empty)
		}
	}
}

func TestCell_SelectShowsLocalizedLabel(t *testing.T) {
	reg := Builtin()
	def := attribute.Definition{
		Code: "status", Type: attribute.TypeSelect,
		Options: []attribute.Option{
			{Value: "live", Labels: attribute.LocalizedText{"en": "Live", "de": "Aktiv"}},
		},
	}
	assert.Equal(t, "Aktiv", reg.RenderCell("select", "live", def, "de"))
	assert.Equal(t, "Live", reg.RenderCell("select", "live", def, "en"))
	// Unknown option value degrades to the raw value.
	assert.Equal(t, "draft", reg.RenderCell("select", "draft", def, "en"))
}

func TestCell_Formats(t *testing.T) {
	reg := Builtin()
	def := attribute.Definition{Code: "x"}

	assert.Equal(t, "Yes", reg.RenderCell("boolean", true, def, "en"))
	assert.Equal(t, "No", reg.RenderCell("boolean", false, def, "en"))
	assert.Equal(t, "••••••", reg.RenderCell("password", "hunter2", def, "en"))
	assert.Equal(t, "2 rows", reg.RenderCell("table", []any{[]any{"a"}, []any{"b"}}, def, "en"))
	assert.Equal(t, "★★★☆☆", reg.RenderCell("rating", 3, def, "en"))
	assert.Equal(t, "manual.pdf", reg.RenderCell("file", "/docs/2024/manual.pdf", def, "en"))
}

func TestEdit_CoercesBeforeOnChange(t *testing.T) {
	reg := Builtin()
	def := attribute.Definition{Code: "qty", Type: attribute.TypeNumber}

	var got any
	errs := reg.ApplyEdit("number", "42", func(v any) { got = v }, false, def)
	assert.Empty(t, errs)
	assert.Equal(t, 42.0, got)
}

func TestEdit_DisabledIsNoOp(t *testing.T) {
	reg := Builtin()
	def := attribute.Definition{Code: "qty", Type: attribute.TypeNumber}

	called := false
	errs := reg.ApplyEdit("number", "42", func(any) { called = true }, true, def)
	assert.Empty(t, errs)
	assert.False(t, called)
}

func TestEdit_CoercionFailureDoesNotPropagate(t *testing.T) {
	reg := Builtin()
	def := attribute.Definition{Code: "qty", Type: attribute.TypeNumber}

	called := false
	errs := reg.ApplyEdit("number", "not-a-number", func(any) { called = true }, false, def)
	require.NotEmpty(t, errs)
	assert.False(t, called)
}

func TestEdit_ValidationErrorsStillPropagate(t *testing.T) {
	reg := Builtin()
	maxVal := 10.0
	def := attribute.Definition{
		Code: "qty", Type: attribute.TypeNumber,
		Rules: attribute.Rules{Max: &maxVal},
	}

	var got any
	errs := reg.ApplyEdit("number", 99, func(v any) { got = v }, false, def)
	// The edit is accepted (value propagated) but blocks submission.
	assert.Equal(t, 99.0, got)
	require.Len(t, errs, 1)
}

func TestEdit_ReadonlyNeverChanges(t *testing.T) {
	reg := Builtin()
	def := attribute.Definition{Code: "id", Type: attribute.TypeReadonly}

	called := false
	errs := reg.ApplyEdit("readonly", "anything", func(any) { called = true }, false, def)
	assert.Empty(t, errs)
	assert.False(t, called)
}

func TestDetail_ComposesLabelAndError(t *testing.T) {
	reg := Builtin()
	def := attribute.Definition{
		Code: "name", Type: attribute.TypeText, IsRequired: true,
		Name:        attribute.LocalizedText{"en": "Product name"},
		Description: attribute.LocalizedText{"en": "Shown on the storefront"},
	}

	out := reg.RenderDetail("text", "Widget", def, "en", "too short")
	assert.Contains(t, out, "Product name *")
	assert.Contains(t, out, "Widget")
	assert.Contains(t, out, "Shown on the storefront")
	assert.Contains(t, out, "! too short")
}
