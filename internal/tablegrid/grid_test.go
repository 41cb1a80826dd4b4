package tablegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimkit/pimkit/internal/attribute"
)

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func threeColRules() attribute.Rules {
	return attribute.Rules{
		Columns: []attribute.TableColumn{
			{Name: "sku", Type: "text"},
			{Name: "qty", Type: "number"},
			{Name: "unit", Type: "select", Options: []string{"piece", "box"}},
		},
		MinRows: intPtr(1),
		MaxRows: intPtr(3),
	}
}

func TestNew_SynthesizesOneEmptyRow(t *testing.T) {
	g := New(threeColRules(), nil)
	require.Len(t, g.Rows(), 1)
	assert.Equal(t, []any{"", "", ""}, g.Rows()[0])
}

func TestNew_KeepsExistingRows(t *testing.T) {
	initial := [][]any{{"A-1", 2.0, "box"}}
	g := New(threeColRules(), initial)
	assert.Equal(t, initial, g.Rows())
}

func TestNew_NoColumnsNoSynthesis(t *testing.T) {
	g := New(attribute.Rules{}, nil)
	assert.Empty(t, g.Rows())
}

func TestAddDelete_StayWithinBounds(t *testing.T) {
	g := New(threeColRules(), nil)

	assert.True(t, g.AddRow())
	assert.True(t, g.AddRow())
	assert.Len(t, g.Rows(), 3)

	// At the ceiling: Add is a no-op.
	assert.False(t, g.AddRow())
	assert.Len(t, g.Rows(), 3)

	assert.True(t, g.DeleteRow(2))
	assert.True(t, g.DeleteRow(1))
	assert.Len(t, g.Rows(), 1)

	// At the floor: Delete is a no-op.
	assert.False(t, g.DeleteRow(0))
	assert.Len(t, g.Rows(), 1)
	assert.Empty(t, g.Error())
}

func TestAddDelete_ArbitrarySequenceKeepsInvariant(t *testing.T) {
	g := New(threeColRules(), nil)
	ops := []func() bool{
		g.AddRow,
		func() bool { return g.DeleteRow(0) },
		g.AddRow, g.AddRow, g.AddRow,
		func() bool { return g.DeleteRow(1) },
		func() bool { return g.DeleteRow(0) },
		func() bool { return g.DeleteRow(0) },
		g.AddRow,
	}
	for _, op := range ops {
		op()
		n := len(g.Rows())
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 3)
	}
}

func TestDeleteRow_PreservesOrder(t *testing.T) {
	rules := threeColRules()
	rules.MinRows = nil
	g := New(rules, [][]any{{"a", 1.0, "piece"}, {"b", 2.0, "box"}, {"c", 3.0, "piece"}})

	require.True(t, g.DeleteRow(1))
	require.Len(t, g.Rows(), 2)
	assert.Equal(t, "a", g.Rows()[0][0])
	assert.Equal(t, "c", g.Rows()[1][0])
}

func TestEditCell_StructuralSharing(t *testing.T) {
	g := New(threeColRules(), [][]any{{"a", 1.0, "piece"}, {"b", 2.0, "box"}})
	before := g.Rows()

	require.True(t, g.EditCell(0, 0, "a2"))
	after := g.Rows()

	assert.Equal(t, "a2", after[0][0])
	// The untouched row keeps its identity.
	assert.Same(t, &before[1][0], &after[1][0])
	// The prior snapshot is unchanged.
	assert.Equal(t, "a", before[0][0])
}

func TestEditCell_ColumnCoercion(t *testing.T) {
	g := New(threeColRules(), nil)

	assert.True(t, g.EditCell(0, 1, "7"))
	assert.Equal(t, 7.0, g.Rows()[0][1])

	// Select cells are constrained to the column options.
	assert.True(t, g.EditCell(0, 2, "box"))
	assert.False(t, g.EditCell(0, 2, "pallet"))
	assert.Equal(t, "box", g.Rows()[0][2])

	// Non-numeric input into a number column is rejected.
	assert.False(t, g.EditCell(0, 1, "many"))
	assert.Equal(t, 7.0, g.Rows()[0][1])
}

func TestEditCell_NoOpWhenEditingDisallowed(t *testing.T) {
	rules := threeColRules()
	rules.AllowEditRows = boolPtr(false)
	g := New(rules, nil)

	assert.False(t, g.EditCell(0, 0, "x"))
	assert.Equal(t, "", g.Rows()[0][0])
}

func TestMutations_NoOpWhenDisabled(t *testing.T) {
	g := New(threeColRules(), nil)
	g.SetDisabled(true)

	assert.False(t, g.AddRow())
	assert.False(t, g.DeleteRow(0))
	assert.False(t, g.EditCell(0, 0, "x"))

	g.SetDisabled(false)
	assert.True(t, g.AddRow())
}

func TestPermissionFlags(t *testing.T) {
	rules := threeColRules()
	rules.MinRows = nil
	rules.AllowAddRows = boolPtr(false)
	rules.AllowDeleteRows = boolPtr(false)
	g := New(rules, [][]any{{"a", 1.0, "piece"}})

	assert.False(t, g.AddRow())
	assert.False(t, g.DeleteRow(0))
	assert.Len(t, g.Rows(), 1)
}

func TestError_RowCountBounds(t *testing.T) {
	rules := threeColRules()
	g := New(rules, [][]any{}) // synthesized to one row, within bounds
	assert.Empty(t, g.Error())

	over := New(rules, [][]any{{"a", 1.0, ""}, {"b", 2.0, ""}, {"c", 3.0, ""}, {"d", 4.0, ""}})
	assert.Contains(t, over.Error(), "maximum")

	rules.MinRows = intPtr(2)
	under := New(rules, [][]any{{"a", 1.0, ""}})
	assert.Contains(t, under.Error(), "minimum")
}
