// Package event defines the domain events published by the catalog:
// relationship lifecycle changes and schema saves.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pimkit/pimkit/internal/association"
)

// EntityRef identifies an entity touched by a domain event.
type EntityRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "target", "related"
}

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string          `json:"id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	AffectedEntities []EntityRef     `json:"affected_entities"`
	Summary          string          `json:"summary"`
	Payload          json.RawMessage `json:"payload"`
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// RelationshipPayload carries the relationship snapshot for link events.
type RelationshipPayload struct {
	Relationship association.Relationship `json:"relationship"`
	RuleCode     string                   `json:"rule_code,omitempty"`
}

// NewRelationshipCreated records an explicit link action.
func NewRelationshipCreated(rel association.Relationship, ruleCode string) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "relationship_created",
		OccurredAt: time.Now(),
		AffectedEntities: []EntityRef{
			{EntityType: rel.SourceEntityType, EntityID: rel.SourceEntityID, Role: "subject"},
			{EntityType: rel.TargetEntityType, EntityID: rel.TargetEntityID, Role: "target"},
		},
		Summary: fmt.Sprintf("Linked %s %s to %s %s",
			rel.SourceEntityType, rel.SourceEntityID, rel.TargetEntityType, rel.TargetEntityID),
		Payload: mustJSON(RelationshipPayload{Relationship: rel, RuleCode: ruleCode}),
	}
}

// StatusChangedPayload carries the transition for status events.
type StatusChangedPayload struct {
	RelationshipID string             `json:"relationship_id"`
	From           association.Status `json:"from"`
	To             association.Status `json:"to"`
}

// NewRelationshipStatusChanged records a status transition.
func NewRelationshipStatusChanged(rel association.Relationship, from association.Status) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "relationship_status_changed",
		OccurredAt: time.Now(),
		AffectedEntities: []EntityRef{
			{EntityType: rel.SourceEntityType, EntityID: rel.SourceEntityID, Role: "subject"},
			{EntityType: rel.TargetEntityType, EntityID: rel.TargetEntityID, Role: "target"},
		},
		Summary: fmt.Sprintf("Relationship %s moved %s -> %s", rel.ID, from, rel.Status),
		Payload: mustJSON(StatusChangedPayload{RelationshipID: rel.ID, From: from, To: rel.Status}),
	}
}

// NewRelationshipDeleted records an explicit unlink, including cascades.
func NewRelationshipDeleted(rel association.Relationship, cascaded bool) DomainEvent {
	summary := fmt.Sprintf("Unlinked %s %s from %s %s",
		rel.SourceEntityType, rel.SourceEntityID, rel.TargetEntityType, rel.TargetEntityID)
	if cascaded {
		summary += " (cascade)"
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  "relationship_deleted",
		OccurredAt: time.Now(),
		AffectedEntities: []EntityRef{
			{EntityType: rel.SourceEntityType, EntityID: rel.SourceEntityID, Role: "subject"},
			{EntityType: rel.TargetEntityType, EntityID: rel.TargetEntityID, Role: "target"},
		},
		Summary: summary,
		Payload: mustJSON(RelationshipPayload{Relationship: rel}),
	}
}

// DefinitionSavedPayload carries the attribute code for schema events.
type DefinitionSavedPayload struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

// NewDefinitionSaved records an attribute definition create or update.
func NewDefinitionSaved(code, attrType string) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "attribute_definition_saved",
		OccurredAt: time.Now(),
		AffectedEntities: []EntityRef{
			{EntityType: "attribute_definition", EntityID: code, Role: "subject"},
		},
		Summary: fmt.Sprintf("Attribute definition %s (%s) saved", code, attrType),
		Payload: mustJSON(DefinitionSavedPayload{Code: code, Type: attrType}),
	}
}
