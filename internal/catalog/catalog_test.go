package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/attribute"
	"github.com/pimkit/pimkit/internal/entity"
	"github.com/pimkit/pimkit/internal/event"
)

type capturedEvents struct {
	types []string
}

func (c *capturedEvents) Publish(_ context.Context, evt event.DomainEvent) {
	c.types = append(c.types, evt.EventType)
}

func intPtr(n int) *int { return &n }

func seedEntities(t *testing.T, store Store, typeCode string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.SaveEntity(context.Background(), entity.Entity{
			ID:       id,
			TypeCode: typeCode,
			Fields:   map[string]any{"name": "Entity " + id},
		}))
	}
}

func TestSaveDefinition_TypeIsImmutable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SaveDefinition(ctx, attribute.Definition{Code: "weight", Type: attribute.TypeNumber}))
	require.NoError(t, store.SaveDefinition(ctx, attribute.Definition{Code: "weight", Type: attribute.TypeNumber, IsRequired: true}))

	err := store.SaveDefinition(ctx, attribute.Definition{Code: "weight", Type: attribute.TypeText})
	assert.ErrorIs(t, err, ErrTypeImmutable)

	def, err := store.GetDefinition(ctx, "weight")
	require.NoError(t, err)
	assert.Equal(t, attribute.TypeNumber, def.Type)
	assert.True(t, def.IsRequired)
}

func TestServiceSaveDefinition_LintIsAdvisory(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)

	minV, maxV := 10.0, 2.0
	issues, err := svc.SaveDefinition(ctx, attribute.Definition{
		Code:  "price",
		Type:  attribute.TypeNumber,
		Rules: attribute.Rules{Min: &minV, Max: &maxV},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, issues)

	// Saved despite the advisory finding.
	_, err = svc.Store().GetDefinition(ctx, "price")
	assert.NoError(t, err)
}

func TestCreateAssociation_ToOneReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	bus := &capturedEvents{}
	svc := NewService(store, bus)

	require.NoError(t, store.SaveRule(ctx, association.Rule{
		Code: "product_brand", SourceItemTypeCode: "product",
		TargetItemTypeCode: "brand", Kind: association.ManyToOne,
	}))
	seedEntities(t, store, "product", "p1")
	seedEntities(t, store, "brand", "b1", "b2")

	require.NoError(t, svc.CreateAssociation(ctx, "p1", "product_brand", []string{"b1"}))
	require.NoError(t, svc.CreateAssociation(ctx, "p1", "product_brand", []string{"b2"}))

	rels, total, err := store.ListRelationships(ctx, RelationshipQuery{SourceEntityID: "p1", AssociationID: "product_brand"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "b2", rels[0].TargetEntityID)
	assert.Equal(t, association.StatusActive, rels[0].Status)

	assert.Contains(t, bus.types, "relationship_created")
	assert.Contains(t, bus.types, "relationship_deleted")
}

func TestCreateAssociation_ToManyEnforcesMax(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil)

	require.NoError(t, store.SaveRule(ctx, association.Rule{
		Code: "product_categories", SourceItemTypeCode: "product",
		TargetItemTypeCode: "category", Kind: association.ManyToMany,
		Cardinality: association.Cardinality{Max: intPtr(2)},
	}))
	seedEntities(t, store, "product", "p1")
	seedEntities(t, store, "category", "c1", "c2", "c3")

	require.NoError(t, svc.CreateAssociation(ctx, "p1", "product_categories", []string{"c1", "c2"}))

	err := svc.CreateAssociation(ctx, "p1", "product_categories", []string{"c3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 2")

	// Re-linking an existing target is a no-op, not a duplicate.
	require.NoError(t, svc.CreateAssociation(ctx, "p1", "product_categories", []string{"c1"}))
	_, total, err := store.ListRelationships(ctx, RelationshipQuery{SourceEntityID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestCreateAssociation_RejectsWrongTargetType(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil)

	require.NoError(t, store.SaveRule(ctx, association.Rule{
		Code: "product_brand", SourceItemTypeCode: "product",
		TargetItemTypeCode: "brand", Kind: association.ManyToOne,
	}))
	seedEntities(t, store, "product", "p1")
	seedEntities(t, store, "category", "c1")

	err := svc.CreateAssociation(ctx, "p1", "product_brand", []string{"c1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has type category")
}

func TestChangeRelationshipStatus_Transitions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	bus := &capturedEvents{}
	svc := NewService(store, bus)

	rel, err := store.CreateRelationship(ctx, association.Relationship{
		AssociationID:  "product_brand",
		SourceEntityID: "p1", SourceEntityType: "product",
		TargetEntityID: "b1", TargetEntityType: "brand",
		Status: association.StatusPending,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ChangeRelationshipStatus(ctx, rel.ID, association.StatusActive))
	require.NoError(t, svc.ChangeRelationshipStatus(ctx, rel.ID, association.StatusArchived))

	// Archived is terminal.
	err = svc.ChangeRelationshipStatus(ctx, rel.ID, association.StatusActive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot move from archived")

	got, err := store.GetRelationship(ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, association.StatusArchived, got.Status)
	assert.Contains(t, bus.types, "relationship_status_changed")
}

func TestDeleteEntity_CascadesThroughRule(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil)

	require.NoError(t, store.SaveRule(ctx, association.Rule{
		Code: "product_variants", SourceItemTypeCode: "product",
		TargetItemTypeCode: "variant", Kind: association.OneToMany,
		CascadeDelete: true,
	}))
	require.NoError(t, store.SaveRule(ctx, association.Rule{
		Code: "product_brand", SourceItemTypeCode: "product",
		TargetItemTypeCode: "brand", Kind: association.ManyToOne,
	}))
	seedEntities(t, store, "product", "p1")
	seedEntities(t, store, "variant", "v1", "v2")
	seedEntities(t, store, "brand", "b1")

	require.NoError(t, svc.CreateAssociation(ctx, "p1", "product_variants", []string{"v1", "v2"}))
	require.NoError(t, svc.CreateAssociation(ctx, "p1", "product_brand", []string{"b1"}))

	require.NoError(t, svc.DeleteEntity(ctx, "p1"))

	_, err := store.GetEntity(ctx, "v1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetEntity(ctx, "v2")
	assert.ErrorIs(t, err, ErrNotFound)

	// No cascade on the brand side: the rule does not declare it.
	_, err = store.GetEntity(ctx, "b1")
	assert.NoError(t, err)

	_, total, err := store.ListRelationships(ctx, RelationshipQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSearchEntities_FieldsAndPagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SaveEntity(ctx, entity.Entity{
		ID: "s1", TypeCode: "supplier",
		Fields: map[string]any{"name": "Acme Metals", "sku": "AM-1", "region": "eu"},
	}))
	require.NoError(t, store.SaveEntity(ctx, entity.Entity{
		ID: "s2", TypeCode: "supplier",
		Fields: map[string]any{"name": "Nordic Timber", "sku": "NT-7", "region": "eu"},
	}))
	require.NoError(t, store.SaveEntity(ctx, entity.Entity{
		ID: "s3", TypeCode: "supplier",
		Fields: map[string]any{"name": "Acme Plastics", "sku": "AP-2", "region": "us"},
	}))

	page, err := store.SearchEntities(ctx, EntityQuery{
		TypeCode: "supplier", Query: "acme",
		SearchableFields: []string{"name", "sku"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = store.SearchEntities(ctx, EntityQuery{
		TypeCode: "supplier", Query: "acme",
		SearchableFields: []string{"name"},
		FilterBy:         map[string]any{"region": "eu"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "s1", page.Items[0].ID)

	page, err = store.SearchEntities(ctx, EntityQuery{TypeCode: "supplier", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "s3", page.Items[0].ID)
}

func TestFetchMetadata(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil)

	require.NoError(t, store.SaveRule(ctx, association.Rule{
		Code: "product_brand", SourceItemTypeCode: "product",
		TargetItemTypeCode: "brand", Kind: association.ManyToOne, IsRequired: true,
	}))
	seedEntities(t, store, "product", "p1")
	seedEntities(t, store, "brand", "b1", "b2")

	md, err := svc.FetchMetadata(ctx, "p1", "product_brand")
	require.NoError(t, err)
	assert.Equal(t, 2, md.AvailableCount)
	assert.Zero(t, md.SelectedCount)
	assert.True(t, md.CanAddMore)
	assert.Equal(t, "invalid", md.ValidationStatus)

	require.NoError(t, svc.CreateAssociation(ctx, "p1", "product_brand", []string{"b1"}))

	md, err = svc.FetchMetadata(ctx, "p1", "product_brand")
	require.NoError(t, err)
	assert.Equal(t, 1, md.SelectedCount)
	assert.False(t, md.CanAddMore)
	assert.Equal(t, "valid", md.ValidationStatus)
}

func TestCandidateSource_UsesRuleSearchFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil)

	require.NoError(t, store.SaveEntity(ctx, entity.Entity{
		ID: "b1", TypeCode: "brand",
		Fields: map[string]any{"name": "Helios", "code": "HL"},
	}))

	rule := association.Rule{
		Code: "product_brand", TargetItemTypeCode: "brand",
		Kind: association.ManyToOne, SearchableFields: []string{"code"},
	}
	src := svc.CandidateSource(rule)

	page, err := src.FetchCandidates(ctx, "brand", nil, "hl", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// "helios" only matches via the name field, which the rule does not search.
	page, err = src.FetchCandidates(ctx, "brand", nil, "helios", 0, 20)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
