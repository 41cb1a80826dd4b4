// Package tablegrid implements the nested record grid behind table-typed
// attributes: a row/column matrix governed by the table validation rules.
package tablegrid

import (
	"fmt"

	"github.com/pimkit/pimkit/internal/attribute"
)

// Grid holds the editable state of one table-typed attribute value.
// All mutation methods are no-ops outside the configured permissions and
// row bounds; after any sequence of AddRow/DeleteRow calls the row count
// stays within [minRows, maxRows].
//
// Grid is not safe for concurrent use; a single owner drives it.
type Grid struct {
	rules    attribute.Rules
	rows     [][]any
	disabled bool
}

// New creates a grid from the table rules and an initial value. When the
// initial value is empty and columns are configured, exactly one row of
// empty cells is synthesized — only here at construction; deleting down
// to zero later is prevented by minRows, not by re-initialization.
func New(rules attribute.Rules, initial [][]any) *Grid {
	g := &Grid{rules: rules}
	if len(initial) == 0 && len(rules.Columns) > 0 {
		g.rows = [][]any{emptyRow(len(rules.Columns))}
	} else {
		g.rows = initial
	}
	return g
}

func emptyRow(width int) []any {
	row := make([]any, width)
	for i := range row {
		row[i] = ""
	}
	return row
}

// Rows returns the current matrix. Untouched rows are shared with prior
// snapshots so change detection stays cheap.
func (g *Grid) Rows() [][]any { return g.rows }

// Columns returns the column definitions.
func (g *Grid) Columns() []attribute.TableColumn { return g.rules.Columns }

// SetDisabled toggles the grid-wide disabled state.
func (g *Grid) SetDisabled(disabled bool) { g.disabled = disabled }

// EditCell replaces a single cell. Returns false without modifying
// anything when editing is disallowed, the grid is disabled, the indexes
// are out of range, or the value does not fit the column type.
func (g *Grid) EditCell(rowIdx, colIdx int, value any) bool {
	if g.disabled || !g.rules.EditRowsAllowed() {
		return false
	}
	if rowIdx < 0 || rowIdx >= len(g.rows) {
		return false
	}
	if colIdx < 0 || colIdx >= len(g.rules.Columns) || colIdx >= len(g.rows[rowIdx]) {
		return false
	}
	cell, ok := coerceCell(g.rules.Columns[colIdx], value)
	if !ok {
		return false
	}

	// Copy only the touched row; all other rows keep their identity.
	rows := make([][]any, len(g.rows))
	copy(rows, g.rows)
	row := make([]any, len(g.rows[rowIdx]))
	copy(row, g.rows[rowIdx])
	row[colIdx] = cell
	rows[rowIdx] = row
	g.rows = rows
	return true
}

// AddRow appends one row of empty cells. Returns false when adding is
// disallowed, the grid is disabled, or the row count is at maxRows.
func (g *Grid) AddRow() bool {
	if g.disabled || !g.rules.AddRowsAllowed() {
		return false
	}
	if g.rules.MaxRows != nil && len(g.rows) >= *g.rules.MaxRows {
		return false
	}
	rows := make([][]any, len(g.rows), len(g.rows)+1)
	copy(rows, g.rows)
	g.rows = append(rows, emptyRow(len(g.rules.Columns)))
	return true
}

// DeleteRow removes the row at the given index, preserving the order of
// the rest. Returns false when deleting is disallowed, the grid is
// disabled, the index is out of range, or the row count is at minRows.
func (g *Grid) DeleteRow(rowIdx int) bool {
	if g.disabled || !g.rules.DeleteRowsAllowed() {
		return false
	}
	if rowIdx < 0 || rowIdx >= len(g.rows) {
		return false
	}
	if g.rules.MinRows != nil && len(g.rows) <= *g.rules.MinRows {
		return false
	}
	rows := make([][]any, 0, len(g.rows)-1)
	rows = append(rows, g.rows[:rowIdx]...)
	rows = append(rows, g.rows[rowIdx+1:]...)
	g.rows = rows
	return true
}

// Error returns the single grid-level error string, or "" when the row
// count is within bounds. Per-column required is deliberately not checked
// here; cell-level validation is the caller's concern.
func (g *Grid) Error() string {
	if g.rules.MinRows != nil && len(g.rows) < *g.rules.MinRows {
		return fmt.Sprintf("row count below minimum of %d", *g.rules.MinRows)
	}
	if g.rules.MaxRows != nil && len(g.rows) > *g.rules.MaxRows {
		return fmt.Sprintf("row count above maximum of %d", *g.rules.MaxRows)
	}
	return ""
}

// coerceCell converts an incoming cell value per the column type:
// select cells must be one of the column options, number/date cells use
// native numeric/date coercion, text accepts any string.
func coerceCell(col attribute.TableColumn, value any) (any, bool) {
	if value == nil || value == "" {
		return "", true
	}
	switch col.Type {
	case "select":
		s, ok := value.(string)
		if !ok {
			return nil, false
		}
		for _, opt := range col.Options {
			if opt == s {
				return s, true
			}
		}
		return nil, false
	case "number":
		n, err := attribute.Coerce(attribute.TypeNumber, value)
		if err != nil {
			return nil, false
		}
		return n, true
	case "date":
		d, err := attribute.Coerce(attribute.TypeDate, value)
		if err != nil {
			return nil, false
		}
		return d, true
	default:
		s, err := attribute.Coerce(attribute.TypeText, value)
		if err != nil {
			return nil, false
		}
		return s, true
	}
}
