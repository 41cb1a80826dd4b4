package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pimkit/pimkit/internal/entity"
)

// Candidate matching and pagination shared by both store implementations.
// Entity fields are schemaless JSON, so the text match runs in Go rather
// than in SQL.

func matchEntity(e entity.Entity, q EntityQuery) bool {
	if q.TypeCode != "" && e.TypeCode != q.TypeCode {
		return false
	}
	for field, want := range q.FilterBy {
		got, ok := e.Fields[field]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	if strings.TrimSpace(q.Query) == "" {
		return true
	}

	needle := strings.ToLower(strings.TrimSpace(q.Query))
	fields := q.SearchableFields
	if len(fields) == 0 {
		fields = []string{"name"}
	}
	for _, lbl := range e.Labels {
		if strings.Contains(strings.ToLower(lbl), needle) {
			return true
		}
	}
	for _, field := range fields {
		v, ok := e.Fields[field]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func pageEntities(matched []entity.Entity, page, pageSize int) entity.Page {
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if pageSize <= 0 {
		pageSize = 20
	}
	if page < 0 {
		page = 0
	}
	start := page * pageSize
	if start >= total {
		return entity.Page{Items: []entity.Entity{}, Total: total}
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return entity.Page{Items: matched[start:end], Total: total}
}
