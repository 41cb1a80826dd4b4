// Package association models the relationship slots between entity types:
// declarative cardinality rules, the coarser relationship-type catalogue,
// relationship instances, and the validation engine that checks a
// selection map against the rules.
package association

import (
	"fmt"
	"time"
)

// Kind is the cardinality kind of a relationship slot, seen from the
// current entity's side.
type Kind string

const (
	OneToOne   Kind = "one-to-one"
	OneToMany  Kind = "one-to-many"
	ManyToOne  Kind = "many-to-one"
	ManyToMany Kind = "many-to-many"
)

// Valid reports whether k is a declared cardinality kind.
func (k Kind) Valid() bool {
	switch k {
	case OneToOne, OneToMany, ManyToOne, ManyToMany:
		return true
	}
	return false
}

// ToOne reports whether the current side holds at most one target.
func (k Kind) ToOne() bool {
	return k == OneToOne || k == ManyToOne
}

// Cardinality bounds the permitted count of linked entities.
type Cardinality struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// Rule describes one relationship slot on an entity type.
type Rule struct {
	Code               string         `json:"code"`
	SourceItemTypeCode string         `json:"sourceItemTypeCode"`
	TargetItemTypeCode string         `json:"targetItemTypeCode"`
	Kind               Kind           `json:"association"`
	Cardinality        Cardinality    `json:"cardinality"`
	IsRequired         bool           `json:"isRequired"`
	DisplayField       string         `json:"displayField,omitempty"`
	SearchableFields   []string       `json:"searchableFields,omitempty"`
	FilterBy           map[string]any `json:"filterBy,omitempty"`
	UIConfig           map[string]any `json:"uiConfig,omitempty"`
	CascadeDelete      bool           `json:"cascadeDelete,omitempty"`
}

// Key returns the association key used to route validation messages to
// the input they concern: targetItemTypeCode + "_" + kind.
func (r Rule) Key() string {
	return r.TargetItemTypeCode + "_" + string(r.Kind)
}

// EffectiveMax is the hard selection ceiling: 1 for any "-to-one" kind on
// the current side regardless of the authored cardinality, otherwise the
// authored max (nil means unbounded).
func (r Rule) EffectiveMax() *int {
	if r.Kind.ToOne() {
		one := 1
		return &one
	}
	return r.Cardinality.Max
}

// CheckRule verifies structural invariants of an authored rule.
func CheckRule(r Rule) error {
	if r.TargetItemTypeCode == "" {
		return fmt.Errorf("association rule %q: target item type is empty", r.Code)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("association rule %q: unknown cardinality kind %q", r.Code, r.Kind)
	}
	if r.Cardinality.Min != nil && *r.Cardinality.Min < 0 {
		return fmt.Errorf("association rule %q: cardinality min is negative", r.Code)
	}
	if r.Cardinality.Min != nil && r.Cardinality.Max != nil && *r.Cardinality.Min > *r.Cardinality.Max {
		return fmt.Errorf("association rule %q: cardinality min %d exceeds max %d",
			r.Code, *r.Cardinality.Min, *r.Cardinality.Max)
	}
	return nil
}

// RelationshipType is a coarser, directional link-kind catalogue entry,
// distinct from per-slot rules.
type RelationshipType struct {
	Code               string   `json:"code"`
	Name               string   `json:"name"`
	IsDirectional      bool     `json:"isDirectional"`
	AllowedSourceTypes []string `json:"allowedSourceTypes,omitempty"`
	AllowedTargetTypes []string `json:"allowedTargetTypes,omitempty"`
}

// AllowsLink reports whether a source/target entity type pair is
// permitted by this relationship type. Empty allow-lists permit any type.
func (rt RelationshipType) AllowsLink(sourceType, targetType string) bool {
	return typeAllowed(rt.AllowedSourceTypes, sourceType) &&
		typeAllowed(rt.AllowedTargetTypes, targetType)
}

func typeAllowed(allowed []string, t string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a relationship instance.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a declared status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusArchived:
		return true
	}
	return false
}

// statusTransitions maps each status to its valid targets. Archived is
// terminal.
var statusTransitions = map[Status][]Status{
	StatusPending:  {StatusActive, StatusInactive, StatusArchived},
	StatusActive:   {StatusInactive, StatusArchived},
	StatusInactive: {StatusActive, StatusArchived},
	StatusArchived: {},
}

// CanTransition reports whether a relationship may move from one status
// to another.
func CanTransition(from, to Status) bool {
	for _, t := range statusTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Relationship is one link instance between two entities. Created via an
// explicit link action, mutated by status transitions, deleted explicitly.
type Relationship struct {
	ID               string         `json:"id"`
	AssociationID    string         `json:"associationId"`
	SourceEntityID   string         `json:"sourceEntityId"`
	SourceEntityType string         `json:"sourceEntityType"`
	TargetEntityID   string         `json:"targetEntityId"`
	TargetEntityType string         `json:"targetEntityType"`
	Status           Status         `json:"status"`
	Priority         int            `json:"priority"`
	Attributes       map[string]any `json:"attributes,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}
