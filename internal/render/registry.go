// Package render provides the attribute render registry: one renderer per
// (attribute type, mode) pair, resolved through a single dispatch point.
//
// The registry is populated once at startup by Builtin(). Adding a type
// means registering a renderer, not growing a switch. An unrecognized
// attribute type resolves to the text renderer — schema extensions the
// server does not know yet degrade instead of failing.
package render

import (
	"github.com/pimkit/pimkit/internal/attribute"
)

// Mode selects the rendering context.
type Mode string

const (
	ModeCell   Mode = "cell"   // compact, read-only list cell
	ModeEdit   Mode = "edit"   // editable input
	ModeDetail Mode = "detail" // full view with label and description
)

// CellFunc formats a value for a compact read-only cell. It must accept
// nil/empty input and render a neutral placeholder, never panic.
type CellFunc func(value any, def attribute.Definition, lang string) string

// EditFunc drives an editable input. It coerces the raw value to the
// type's native shape and invokes onChange only with coerced values; the
// returned messages are value-validation errors (they block submission,
// not editing). disabled suppresses the onChange entirely.
type EditFunc func(raw any, onChange func(any), disabled bool, def attribute.Definition) []string

// DetailFunc composes the full detail view: localized label, required
// marker, body, description, and a caller-provided error string.
type DetailFunc func(value any, def attribute.Definition, lang string, errMsg string) string

// Renderer bundles the three mode strategies for one attribute type.
type Renderer struct {
	Type   attribute.Type
	Cell   CellFunc
	Edit   EditFunc
	Detail DetailFunc
}

// Registry maps attribute types to renderers.
type Registry struct {
	renderers map[attribute.Type]Renderer
}

// NewRegistry creates an empty registry. Resolve on an empty registry
// returns a zero Renderer; callers normally start from Builtin().
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[attribute.Type]Renderer)}
}

// Register adds or replaces the renderer for a type.
func (r *Registry) Register(t attribute.Type, renderer Renderer) {
	renderer.Type = t
	r.renderers[t] = renderer
}

// Resolve returns the renderer for a raw attribute type string. Unknown
// types resolve to the text renderer for every mode.
func (r *Registry) Resolve(attrType string) Renderer {
	if renderer, ok := r.renderers[attribute.Type(attrType)]; ok {
		return renderer
	}
	return r.renderers[attribute.TypeText]
}

// RenderCell resolves and runs the cell renderer.
func (r *Registry) RenderCell(attrType string, value any, def attribute.Definition, lang string) string {
	return r.Resolve(attrType).Cell(value, def, lang)
}

// RenderDetail resolves and runs the detail renderer.
func (r *Registry) RenderDetail(attrType string, value any, def attribute.Definition, lang, errMsg string) string {
	return r.Resolve(attrType).Detail(value, def, lang, errMsg)
}

// ApplyEdit resolves the edit renderer and applies a change.
func (r *Registry) ApplyEdit(attrType string, raw any, onChange func(any), disabled bool, def attribute.Definition) []string {
	return r.Resolve(attrType).Edit(raw, onChange, disabled, def)
}
