// Package selection implements the candidate selection workflow for one
// association slot: fetching candidates, cardinality-aware add/remove/
// replace, and submission of the resulting association batch.
package selection

import (
	"context"
	"fmt"
	"sync"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/entity"
)

// CandidateSource fetches candidate entities for a rule. Implemented by
// the catalog store in-process and by remote data access elsewhere.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, targetTypeCode string, filterBy map[string]any, query string, page, pageSize int) (entity.Page, error)
}

// Metadata summarises the association state of a source entity under one
// rule.
type Metadata struct {
	AvailableCount   int    `json:"availableCount"`
	SelectedCount    int    `json:"selectedCount"`
	CanAddMore       bool   `json:"canAddMore"`
	ValidationStatus string `json:"validationStatus"`
}

// MetadataSource fetches association metadata for a source entity.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, sourceEntityID, ruleCode string) (Metadata, error)
}

// Writer performs association mutations.
type Writer interface {
	CreateAssociation(ctx context.Context, sourceEntityID, ruleCode string, targetIDs []string) error
	DeleteRelationship(ctx context.Context, id string) error
	ChangeRelationshipStatus(ctx context.Context, id string, status association.Status) error
}

// Controller drives the selection workflow for a single rule. All state
// is guarded by one mutex: the workflow is event-driven and any goroutine
// serialises through the controller, matching the single-owner model.
type Controller struct {
	mu sync.Mutex

	rule   association.Rule
	source CandidateSource
	meta   MetadataSource
	writer Writer

	selected   []entity.Entity
	pool       []entity.Entity
	total      int
	searchTerm string
	page       int
	pageSize   int

	loading  bool
	fetchSeq uint64 // stale-result guard: only the latest dispatch applies
	warning  string
	metadata Metadata
}

// NewController creates a controller for one association rule.
func NewController(rule association.Rule, source CandidateSource, meta MetadataSource, writer Writer) *Controller {
	return &Controller{
		rule:     rule,
		source:   source,
		meta:     meta,
		writer:   writer,
		pageSize: 20,
	}
}

// Rule returns the rule this controller operates under.
func (c *Controller) Rule() association.Rule { return c.rule }

// Selected returns a snapshot of the current selection.
func (c *Controller) Selected() []entity.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Entity(nil), c.selected...)
}

// Candidates returns a snapshot of the current candidate pool and total.
func (c *Controller) Candidates() ([]entity.Entity, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Entity(nil), c.pool...), c.total
}

// Loading reports whether a candidate fetch is outstanding. Only the
// candidate region is loading; the selection stays editable throughout.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Warning returns and clears the last rejection warning.
func (c *Controller) Warning() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.warning
	c.warning = ""
	return w
}

// Metadata returns the last fetched association metadata.
func (c *Controller) Metadata() Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metadata
}

// SelectionValue renders the selection in engine shape: nil when empty,
// a single ID for to-one rules, a slice of IDs otherwise.
func (c *Controller) SelectionValue() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectionValueLocked()
}

func (c *Controller) selectionValueLocked() any {
	if len(c.selected) == 0 {
		return nil
	}
	if c.rule.Kind.ToOne() {
		return c.selected[0].ID
	}
	ids := make([]string, len(c.selected))
	for i, e := range c.selected {
		ids[i] = e.ID
	}
	return ids
}

// Validate runs the association engine over this controller's rule and
// current selection.
func (c *Controller) Validate() association.Result {
	c.mu.Lock()
	sel := map[string]any{c.rule.Key(): c.selectionValueLocked()}
	c.mu.Unlock()
	return association.Validate([]association.Rule{c.rule}, sel)
}

// Toggle adds, removes, or replaces an entity in the selection. For
// to-one rules a new entity replaces the entire selection. For to-many
// rules an already-selected entity is removed; a new one is appended
// only while under the effective max — otherwise the toggle is rejected,
// a warning is recorded, and the selection is left unchanged.
func (c *Controller) Toggle(e entity.Entity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rule.Kind.ToOne() {
		if len(c.selected) == 1 && c.selected[0].ID == e.ID {
			c.selected = nil
			return true
		}
		c.selected = []entity.Entity{e}
		return true
	}

	for i, sel := range c.selected {
		if sel.ID == e.ID {
			c.selected = append(c.selected[:i:i], c.selected[i+1:]...)
			return true
		}
	}
	if max := c.rule.EffectiveMax(); max != nil && len(c.selected) >= *max {
		c.warning = fmt.Sprintf("maximum of %d selections reached", *max)
		return false
	}
	c.selected = append(c.selected, e)
	return true
}

// SelectAll adds every currently visible candidate that is not already
// selected, stopping silently once the effective max is reached. Partial
// selection is expected, not an error. No-op for to-one rules. Returns
// the number of entities added.
func (c *Controller) SelectAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rule.Kind.ToOne() {
		c.warning = "select all is not available for single-valued associations"
		return 0
	}

	selected := make(map[string]bool, len(c.selected))
	for _, e := range c.selected {
		selected[e.ID] = true
	}

	max := c.rule.EffectiveMax()
	added := 0
	for _, cand := range c.pool {
		if selected[cand.ID] {
			continue
		}
		if max != nil && len(c.selected) >= *max {
			c.warning = fmt.Sprintf("maximum of %d selections reached", *max)
			break
		}
		c.selected = append(c.selected, cand)
		added++
	}
	return added
}

// DeselectAll clears the selection. No-op for to-one rules, matching
// SelectAll availability.
func (c *Controller) DeselectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rule.Kind.ToOne() {
		return
	}
	c.selected = nil
}

// Search updates the search term and fetches the matching candidate
// page. Fetches are guarded by a sequence number: a fetch superseded by
// a newer call is not aborted, its result is simply discarded when it
// completes (last dispatch wins, regardless of completion order).
func (c *Controller) Search(ctx context.Context, term string) error {
	c.mu.Lock()
	c.searchTerm = term
	c.page = 0
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// SetPage moves to a candidate page and fetches it.
func (c *Controller) SetPage(ctx context.Context, page int) error {
	if page < 0 {
		page = 0
	}
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh fetches the candidate pool for the current term and page.
// Safe to call from any goroutine; stale completions are dropped.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	term := c.searchTerm
	page := c.page
	pageSize := c.pageSize
	c.loading = true
	c.mu.Unlock()

	result, err := c.source.FetchCandidates(ctx, c.rule.TargetItemTypeCode, c.rule.FilterBy, term, page, pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.fetchSeq {
		// A newer fetch was dispatched while this one ran; its result
		// owns the pool now.
		return nil
	}
	c.loading = false
	if err != nil {
		// Transport failure: pool is left as-is, fully recoverable by
		// calling Refresh again.
		return fmt.Errorf("fetching candidates for %s: %w", c.rule.TargetItemTypeCode, err)
	}
	c.pool = result.Items
	c.total = result.Total
	return nil
}

// Submit sends the selected target IDs to the association writer. On
// success the selection is cleared and metadata is refreshed; on failure
// the selection is preserved so the user can retry without re-picking.
func (c *Controller) Submit(ctx context.Context, sourceEntityID string) error {
	c.mu.Lock()
	ids := make([]string, len(c.selected))
	for i, e := range c.selected {
		ids[i] = e.ID
	}
	c.mu.Unlock()

	if len(ids) == 0 {
		return fmt.Errorf("nothing selected")
	}

	if err := c.writer.CreateAssociation(ctx, sourceEntityID, c.rule.Code, ids); err != nil {
		return fmt.Errorf("creating association %s: %w", c.rule.Code, err)
	}

	c.mu.Lock()
	c.selected = nil
	c.mu.Unlock()

	if c.meta != nil {
		md, err := c.meta.FetchMetadata(ctx, sourceEntityID, c.rule.Code)
		if err == nil {
			c.mu.Lock()
			c.metadata = md
			c.mu.Unlock()
		}
	}
	return nil
}
