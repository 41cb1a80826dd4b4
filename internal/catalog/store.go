// Package catalog persists the schema catalogue — attribute definitions,
// association rules, relationship types — plus relationship instances and
// the entities they link. Two implementations exist: a gorm/SQLite store
// for the server and an in-memory store for demos and tests.
package catalog

import (
	"context"
	"errors"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/attribute"
	"github.com/pimkit/pimkit/internal/entity"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTypeImmutable is returned when a definition update attempts to
	// change the attribute type of an existing definition.
	ErrTypeImmutable = errors.New("attribute type is immutable once created")
)

// EntityQuery selects a page of entities of one type. Query is matched
// case-insensitively against the searchable fields; FilterBy is exact
// field equality.
type EntityQuery struct {
	TypeCode         string
	Query            string
	SearchableFields []string
	FilterBy         map[string]any
	Page             int
	PageSize         int
}

// RelationshipQuery selects relationships touching an entity, optionally
// narrowed by association code and status.
type RelationshipQuery struct {
	SourceEntityID string
	TargetEntityID string
	AssociationID  string
	Status         association.Status
	Page           int
	PageSize       int
}

// Store is the persistence interface for the catalogue.
type Store interface {
	// Attribute definitions. Save upserts; the attribute type of an
	// existing definition must not change (ErrTypeImmutable).
	SaveDefinition(ctx context.Context, def attribute.Definition) error
	GetDefinition(ctx context.Context, code string) (attribute.Definition, error)
	ListDefinitions(ctx context.Context) ([]attribute.Definition, error)
	DeleteDefinition(ctx context.Context, code string) error

	// Association rules. Save upserts by code.
	SaveRule(ctx context.Context, rule association.Rule) error
	GetRule(ctx context.Context, code string) (association.Rule, error)
	ListRules(ctx context.Context, sourceTypeCode string) ([]association.Rule, error)
	DeleteRule(ctx context.Context, code string) error

	// Relationship types. Save upserts by code.
	SaveRelationshipType(ctx context.Context, rt association.RelationshipType) error
	GetRelationshipType(ctx context.Context, code string) (association.RelationshipType, error)
	ListRelationshipTypes(ctx context.Context) ([]association.RelationshipType, error)

	// Relationship instances.
	CreateRelationship(ctx context.Context, rel association.Relationship) (association.Relationship, error)
	GetRelationship(ctx context.Context, id string) (association.Relationship, error)
	ListRelationships(ctx context.Context, q RelationshipQuery) ([]association.Relationship, int, error)
	UpdateRelationshipStatus(ctx context.Context, id string, status association.Status) (association.Relationship, error)
	DeleteRelationship(ctx context.Context, id string) error
	// DeleteRelationshipsForEntity removes every relationship touching the
	// entity and returns the deleted rows, for cascade handling.
	DeleteRelationshipsForEntity(ctx context.Context, entityType, entityID string) ([]association.Relationship, error)

	// Entities, as association candidates and link endpoints.
	SaveEntity(ctx context.Context, e entity.Entity) error
	GetEntity(ctx context.Context, id string) (entity.Entity, error)
	DeleteEntity(ctx context.Context, id string) error
	SearchEntities(ctx context.Context, q EntityQuery) (entity.Page, error)
}
