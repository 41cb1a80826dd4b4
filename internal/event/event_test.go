package event

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimkit/pimkit/internal/association"
)

func TestNewRelationshipDeleted_CascadeSummary(t *testing.T) {
	rel := association.Relationship{
		ID:             "r1",
		SourceEntityID: "p1", SourceEntityType: "product",
		TargetEntityID: "v1", TargetEntityType: "variant",
	}

	evt := NewRelationshipDeleted(rel, true)
	assert.Equal(t, "relationship_deleted", evt.EventType)
	assert.Contains(t, evt.Summary, "(cascade)")
	require.Len(t, evt.AffectedEntities, 2)

	evt = NewRelationshipDeleted(rel, false)
	assert.NotContains(t, evt.Summary, "(cascade)")
}

func TestHistory_NewestFirstAndEviction(t *testing.T) {
	h := NewHistory(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, h.HandleEvent(ctx, DomainEvent{ID: fmt.Sprintf("e%d", i)}))
	}

	recent := h.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "e4", recent[0].ID)
	assert.Equal(t, "e2", recent[2].ID)

	assert.Len(t, h.Recent(2), 2)
}
