package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/attribute"
	"github.com/pimkit/pimkit/internal/entity"
)

// MemoryStore implements Store using in-memory maps.
// Intended for demos and testing — no SQLite required.
type MemoryStore struct {
	mu            sync.RWMutex
	definitions   map[string]attribute.Definition
	rules         map[string]association.Rule
	relTypes      map[string]association.RelationshipType
	relationships map[string]association.Relationship
	entities      map[string]entity.Entity
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		definitions:   make(map[string]attribute.Definition),
		rules:         make(map[string]association.Rule),
		relTypes:      make(map[string]association.RelationshipType),
		relationships: make(map[string]association.Relationship),
		entities:      make(map[string]entity.Entity),
	}
}

func (s *MemoryStore) SaveDefinition(_ context.Context, def attribute.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.definitions[def.Code]; ok && existing.Type != def.Type {
		return ErrTypeImmutable
	}
	s.definitions[def.Code] = def
	return nil
}

func (s *MemoryStore) GetDefinition(_ context.Context, code string) (attribute.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.definitions[code]
	if !ok {
		return attribute.Definition{}, ErrNotFound
	}
	return def, nil
}

func (s *MemoryStore) ListDefinitions(_ context.Context) ([]attribute.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]attribute.Definition, 0, len(s.definitions))
	for _, def := range s.definitions {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *MemoryStore) DeleteDefinition(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definitions[code]; !ok {
		return ErrNotFound
	}
	delete(s.definitions, code)
	return nil
}

func (s *MemoryStore) SaveRule(_ context.Context, rule association.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.Code] = rule
	return nil
}

func (s *MemoryStore) GetRule(_ context.Context, code string) (association.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[code]
	if !ok {
		return association.Rule{}, ErrNotFound
	}
	return rule, nil
}

func (s *MemoryStore) ListRules(_ context.Context, sourceTypeCode string) ([]association.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]association.Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		if sourceTypeCode != "" && rule.SourceItemTypeCode != sourceTypeCode {
			continue
		}
		result = append(result, rule)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *MemoryStore) DeleteRule(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[code]; !ok {
		return ErrNotFound
	}
	delete(s.rules, code)
	return nil
}

func (s *MemoryStore) SaveRelationshipType(_ context.Context, rt association.RelationshipType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relTypes[rt.Code] = rt
	return nil
}

func (s *MemoryStore) GetRelationshipType(_ context.Context, code string) (association.RelationshipType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.relTypes[code]
	if !ok {
		return association.RelationshipType{}, ErrNotFound
	}
	return rt, nil
}

func (s *MemoryStore) ListRelationshipTypes(_ context.Context) ([]association.RelationshipType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]association.RelationshipType, 0, len(s.relTypes))
	for _, rt := range s.relTypes {
		result = append(result, rt)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *MemoryStore) CreateRelationship(_ context.Context, rel association.Relationship) (association.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.Status == "" {
		rel.Status = association.StatusPending
	}
	now := time.Now()
	rel.CreatedAt = now
	rel.UpdatedAt = now
	s.relationships[rel.ID] = rel
	return rel, nil
}

func (s *MemoryStore) GetRelationship(_ context.Context, id string) (association.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, ok := s.relationships[id]
	if !ok {
		return association.Relationship{}, ErrNotFound
	}
	return rel, nil
}

func (s *MemoryStore) ListRelationships(_ context.Context, q RelationshipQuery) ([]association.Relationship, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []association.Relationship
	for _, rel := range s.relationships {
		if q.SourceEntityID != "" && rel.SourceEntityID != q.SourceEntityID {
			continue
		}
		if q.TargetEntityID != "" && rel.TargetEntityID != q.TargetEntityID {
			continue
		}
		if q.AssociationID != "" && rel.AssociationID != q.AssociationID {
			continue
		}
		if q.Status != "" && rel.Status != q.Status {
			continue
		}
		matched = append(matched, rel)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := q.Page
	if page < 0 {
		page = 0
	}
	start := page * pageSize
	if start >= total {
		return []association.Relationship{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) UpdateRelationshipStatus(_ context.Context, id string, status association.Status) (association.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, ok := s.relationships[id]
	if !ok {
		return association.Relationship{}, ErrNotFound
	}
	rel.Status = status
	rel.UpdatedAt = time.Now()
	s.relationships[id] = rel
	return rel, nil
}

func (s *MemoryStore) DeleteRelationship(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.relationships[id]; !ok {
		return ErrNotFound
	}
	delete(s.relationships, id)
	return nil
}

func (s *MemoryStore) DeleteRelationshipsForEntity(_ context.Context, entityType, entityID string) ([]association.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []association.Relationship
	for id, rel := range s.relationships {
		touches := (rel.SourceEntityType == entityType && rel.SourceEntityID == entityID) ||
			(rel.TargetEntityType == entityType && rel.TargetEntityID == entityID)
		if touches {
			deleted = append(deleted, rel)
			delete(s.relationships, id)
		}
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i].ID < deleted[j].ID })
	return deleted, nil
}

func (s *MemoryStore) SaveEntity(_ context.Context, e entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = e
	return nil
}

func (s *MemoryStore) GetEntity(_ context.Context, id string) (entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return entity.Entity{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) DeleteEntity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return ErrNotFound
	}
	delete(s.entities, id)
	return nil
}

func (s *MemoryStore) SearchEntities(_ context.Context, q EntityQuery) (entity.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entity.Entity, 0)
	for _, e := range s.entities {
		if matchEntity(e, q) {
			matched = append(matched, e)
		}
	}
	return pageEntities(matched, q.Page, q.PageSize), nil
}

var _ Store = (*MemoryStore)(nil)
