// Package entity holds the lightweight entity reference used across the
// association and selection subsystems, plus localized label resolution.
package entity

import "github.com/pimkit/pimkit/internal/attribute"

// Entity is a candidate or linked entity as seen by the selection and
// association machinery. Fields carries the raw attribute values used for
// display-field lookup and searching.
type Entity struct {
	ID       string                  `json:"id"`
	TypeCode string                  `json:"typeCode"`
	Labels   attribute.LocalizedText `json:"labels,omitempty"`
	Fields   map[string]any          `json:"fields,omitempty"`
}

// Page is one page of entities plus the total match count.
type Page struct {
	Items []Entity `json:"items"`
	Total int      `json:"total"`
}

// Name resolves a human label for an entity. It never fails: localized
// labels first, then a display field, then the entity ID.
func Name(e Entity, displayField, lang string) string {
	if s := e.Labels.Get(lang); s != "" {
		return s
	}
	if displayField != "" {
		if v, ok := e.Fields[displayField]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	if v, ok := e.Fields["name"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return e.ID
}
