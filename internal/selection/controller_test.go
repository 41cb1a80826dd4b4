package selection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/entity"
)

func intPtr(n int) *int { return &n }

func ent(id string) entity.Entity {
	return entity.Entity{ID: id, TypeCode: "product", Fields: map[string]any{"name": "Entity " + id}}
}

// fakeSource serves a fixed pool, optionally blocking until released so
// tests can interleave fetch completions.
type fakeSource struct {
	mu      sync.Mutex
	pages   map[string]entity.Page // by query term
	err     error
	release chan struct{}
	calls   int
}

func (f *fakeSource) FetchCandidates(_ context.Context, _ string, _ map[string]any, query string, _, _ int) (entity.Page, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	if f.err != nil {
		return entity.Page{}, f.err
	}
	if page, ok := f.pages[query]; ok {
		return page, nil
	}
	return entity.Page{}, nil
}

type fakeWriter struct {
	err      error
	lastIDs  []string
	lastRule string
}

func (f *fakeWriter) CreateAssociation(_ context.Context, _ string, ruleCode string, targetIDs []string) error {
	if f.err != nil {
		return f.err
	}
	f.lastRule = ruleCode
	f.lastIDs = append([]string(nil), targetIDs...)
	return nil
}

func (f *fakeWriter) DeleteRelationship(context.Context, string) error { return nil }

func (f *fakeWriter) ChangeRelationshipStatus(context.Context, string, association.Status) error {
	return nil
}

type fakeMeta struct {
	md    Metadata
	calls int
}

func (f *fakeMeta) FetchMetadata(context.Context, string, string) (Metadata, error) {
	f.calls++
	return f.md, nil
}

func toOneRule() association.Rule {
	return association.Rule{
		Code: "product_brand", TargetItemTypeCode: "brand",
		Kind: association.ManyToOne, IsRequired: true,
	}
}

func toManyRule(max int) association.Rule {
	r := association.Rule{
		Code: "product_categories", TargetItemTypeCode: "category",
		Kind: association.ManyToMany,
	}
	if max > 0 {
		r.Cardinality.Max = intPtr(max)
	}
	return r
}

func TestToggle_ToOneReplaces(t *testing.T) {
	c := NewController(toOneRule(), &fakeSource{}, nil, &fakeWriter{})

	assert.True(t, c.Toggle(ent("A")))
	assert.True(t, c.Toggle(ent("B")))

	sel := c.Selected()
	require.Len(t, sel, 1)
	assert.Equal(t, "B", sel[0].ID)
}

func TestToggle_ToOneSameEntityDeselects(t *testing.T) {
	c := NewController(toOneRule(), &fakeSource{}, nil, &fakeWriter{})
	c.Toggle(ent("A"))
	c.Toggle(ent("A"))
	assert.Empty(t, c.Selected())
}

func TestToggle_ToManyCapRejectsWithWarning(t *testing.T) {
	c := NewController(toManyRule(3), &fakeSource{}, nil, &fakeWriter{})

	for _, id := range []string{"A", "B", "C"} {
		assert.True(t, c.Toggle(ent(id)))
	}
	assert.False(t, c.Toggle(ent("D")))

	sel := c.Selected()
	require.Len(t, sel, 3)
	assert.Equal(t, "C", sel[2].ID)
	assert.Contains(t, c.Warning(), "maximum of 3")
	// Warning is consumed on read.
	assert.Empty(t, c.Warning())
}

func TestToggle_ToManyTogglesOff(t *testing.T) {
	c := NewController(toManyRule(0), &fakeSource{}, nil, &fakeWriter{})
	c.Toggle(ent("A"))
	c.Toggle(ent("B"))
	c.Toggle(ent("A"))

	sel := c.Selected()
	require.Len(t, sel, 1)
	assert.Equal(t, "B", sel[0].ID)
}

func TestSelectAll_CapsAtMax(t *testing.T) {
	src := &fakeSource{pages: map[string]entity.Page{
		"": {Items: []entity.Entity{ent("A"), ent("B"), ent("C"), ent("D"), ent("E")}, Total: 5},
	}}
	c := NewController(toManyRule(3), src, nil, &fakeWriter{})
	require.NoError(t, c.Refresh(context.Background()))

	added := c.SelectAll()
	assert.Equal(t, 3, added)
	assert.Len(t, c.Selected(), 3)
	assert.NotEmpty(t, c.Warning())
}

func TestSelectAll_SkipsAlreadySelected(t *testing.T) {
	src := &fakeSource{pages: map[string]entity.Page{
		"": {Items: []entity.Entity{ent("A"), ent("B")}, Total: 2},
	}}
	c := NewController(toManyRule(0), src, nil, &fakeWriter{})
	require.NoError(t, c.Refresh(context.Background()))

	c.Toggle(ent("A"))
	added := c.SelectAll()
	assert.Equal(t, 1, added)
	assert.Len(t, c.Selected(), 2)
}

func TestSelectAll_ToOneIsNoOp(t *testing.T) {
	c := NewController(toOneRule(), &fakeSource{}, nil, &fakeWriter{})
	assert.Equal(t, 0, c.SelectAll())
	assert.NotEmpty(t, c.Warning())
}

func TestDeselectAll(t *testing.T) {
	c := NewController(toManyRule(0), &fakeSource{}, nil, &fakeWriter{})
	c.Toggle(ent("A"))
	c.Toggle(ent("B"))
	c.DeselectAll()
	assert.Empty(t, c.Selected())
}

func TestSubmit_SuccessClearsAndRefreshesMetadata(t *testing.T) {
	writer := &fakeWriter{}
	meta := &fakeMeta{md: Metadata{SelectedCount: 2, CanAddMore: true}}
	c := NewController(toManyRule(0), &fakeSource{}, meta, writer)

	c.Toggle(ent("A"))
	c.Toggle(ent("B"))
	require.NoError(t, c.Submit(context.Background(), "prod-1"))

	assert.Empty(t, c.Selected())
	assert.Equal(t, []string{"A", "B"}, writer.lastIDs)
	assert.Equal(t, "product_categories", writer.lastRule)
	assert.Equal(t, 1, meta.calls)
	assert.Equal(t, 2, c.Metadata().SelectedCount)
}

func TestSubmit_FailurePreservesSelection(t *testing.T) {
	writer := &fakeWriter{err: errors.New("network down")}
	c := NewController(toManyRule(0), &fakeSource{}, nil, writer)

	c.Toggle(ent("A"))
	err := c.Submit(context.Background(), "prod-1")
	require.Error(t, err)
	assert.Len(t, c.Selected(), 1)

	// Retry after the transport recovers.
	writer.err = nil
	require.NoError(t, c.Submit(context.Background(), "prod-1"))
	assert.Empty(t, c.Selected())
}

func TestSubmit_EmptySelection(t *testing.T) {
	c := NewController(toManyRule(0), &fakeSource{}, nil, &fakeWriter{})
	assert.Error(t, c.Submit(context.Background(), "prod-1"))
}

func TestRefresh_StaleFetchDiscarded(t *testing.T) {
	src := &fakeSource{
		pages: map[string]entity.Page{
			"old": {Items: []entity.Entity{ent("OLD")}, Total: 1},
			"new": {Items: []entity.Entity{ent("NEW")}, Total: 1},
		},
		release: make(chan struct{}),
	}
	c := NewController(toManyRule(0), src, nil, &fakeWriter{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Dispatched first, completes last.
		_ = c.Search(context.Background(), "old")
	}()

	// Wait until the first fetch is in flight, then supersede it.
	for {
		src.mu.Lock()
		inFlight := src.calls == 1
		src.mu.Unlock()
		if inFlight {
			break
		}
	}

	done := make(chan struct{})
	go func() {
		_ = c.Search(context.Background(), "new")
		close(done)
	}()

	// Release both fetches; the second completes in some order but only
	// the latest dispatch may own the pool.
	close(src.release)
	wg.Wait()
	<-done

	pool, total := c.Candidates()
	require.Len(t, pool, 1)
	assert.Equal(t, "NEW", pool[0].ID)
	assert.Equal(t, 1, total)
}

func TestRefresh_ErrorKeepsPool(t *testing.T) {
	src := &fakeSource{pages: map[string]entity.Page{
		"": {Items: []entity.Entity{ent("A")}, Total: 1},
	}}
	c := NewController(toManyRule(0), src, nil, &fakeWriter{})
	require.NoError(t, c.Refresh(context.Background()))

	src.err = errors.New("boom")
	err := c.Refresh(context.Background())
	require.Error(t, err)

	pool, _ := c.Candidates()
	assert.Len(t, pool, 1)
}

func TestSelectionValue(t *testing.T) {
	one := NewController(toOneRule(), &fakeSource{}, nil, &fakeWriter{})
	assert.Nil(t, one.SelectionValue())
	one.Toggle(ent("A"))
	assert.Equal(t, "A", one.SelectionValue())

	many := NewController(toManyRule(0), &fakeSource{}, nil, &fakeWriter{})
	many.Toggle(ent("A"))
	many.Toggle(ent("B"))
	assert.Equal(t, []string{"A", "B"}, many.SelectionValue())
}

func TestValidate_ConsultedOnSelectionState(t *testing.T) {
	c := NewController(toOneRule(), &fakeSource{}, nil, &fakeWriter{})

	res := c.Validate()
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "brand_many-to-one", res.Errors[0].Key)

	c.Toggle(ent("A"))
	assert.True(t, c.Validate().IsValid)
}
