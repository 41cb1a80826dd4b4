package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/attribute"
	"github.com/pimkit/pimkit/internal/entity"
	"github.com/pimkit/pimkit/internal/event"
	"github.com/pimkit/pimkit/internal/selection"
)

// Publisher sends domain events to downstream consumers. Satisfied by
// eventbus.Bus; nil disables publishing.
type Publisher interface {
	Publish(ctx context.Context, evt event.DomainEvent)
}

// Service is the catalogue's command layer: schema saves with lint,
// link/unlink with cardinality enforcement, status transitions, and
// cascade delete. It is the store-backed implementation of the selection
// workflow's collaborator interfaces.
type Service struct {
	store Store
	bus   Publisher
}

// NewService wraps a store. bus may be nil.
func NewService(store Store, bus Publisher) *Service {
	return &Service{store: store, bus: bus}
}

// Store exposes the underlying store for read paths.
func (s *Service) Store() Store { return s.store }

func (s *Service) publish(ctx context.Context, evt event.DomainEvent) {
	if s.bus != nil {
		s.bus.Publish(ctx, evt)
	}
}

// ── Schema commands ─────────────────────────────────────────────────

// SaveDefinition validates and upserts an attribute definition.
// Structural problems and type changes block the save; lint findings are
// advisory and returned alongside a successful save.
func (s *Service) SaveDefinition(ctx context.Context, def attribute.Definition) ([]attribute.FieldIssue, error) {
	if err := attribute.CheckDefinition(def); err != nil {
		return nil, err
	}
	issues := attribute.Lint(def.Type, def.Rules)
	if err := s.store.SaveDefinition(ctx, def); err != nil {
		return issues, err
	}
	s.publish(ctx, event.NewDefinitionSaved(def.Code, string(def.Type)))
	return issues, nil
}

// SaveRule validates and upserts an association rule.
func (s *Service) SaveRule(ctx context.Context, rule association.Rule) error {
	if err := association.CheckRule(rule); err != nil {
		return err
	}
	return s.store.SaveRule(ctx, rule)
}

// SaveRelationshipType validates and upserts a relationship type.
func (s *Service) SaveRelationshipType(ctx context.Context, rt association.RelationshipType) error {
	if rt.Code == "" {
		return fmt.Errorf("relationship type code is empty")
	}
	return s.store.SaveRelationshipType(ctx, rt)
}

// ── Link commands (selection.Writer) ────────────────────────────────

// CreateAssociation links the source entity to the given targets under a
// rule. To-one rules replace the existing link; to-many rules enforce the
// effective max over existing plus new links. Already-linked targets are
// skipped, not duplicated.
func (s *Service) CreateAssociation(ctx context.Context, sourceEntityID, ruleCode string, targetIDs []string) error {
	rule, err := s.store.GetRule(ctx, ruleCode)
	if err != nil {
		return fmt.Errorf("loading rule %s: %w", ruleCode, err)
	}
	src, err := s.store.GetEntity(ctx, sourceEntityID)
	if err != nil {
		return fmt.Errorf("loading source entity %s: %w", sourceEntityID, err)
	}

	existing, _, err := s.store.ListRelationships(ctx, RelationshipQuery{
		SourceEntityID: sourceEntityID,
		AssociationID:  ruleCode,
		PageSize:       maxLinksPerRule,
	})
	if err != nil {
		return err
	}

	if rule.Kind.ToOne() && len(existing) > 0 {
		// Replace semantics: a to-one slot holds one link at a time.
		for _, rel := range existing {
			if err := s.store.DeleteRelationship(ctx, rel.ID); err != nil {
				return err
			}
			s.publish(ctx, event.NewRelationshipDeleted(rel, false))
		}
		existing = nil
	}

	linked := make(map[string]bool, len(existing))
	for _, rel := range existing {
		linked[rel.TargetEntityID] = true
	}
	fresh := make([]string, 0, len(targetIDs))
	for _, id := range targetIDs {
		if !linked[id] {
			fresh = append(fresh, id)
		}
	}

	if max := rule.EffectiveMax(); max != nil && len(existing)+len(fresh) > *max {
		return fmt.Errorf("rule %s allows at most %d linked entities, have %d and adding %d",
			ruleCode, *max, len(existing), len(fresh))
	}

	for _, targetID := range fresh {
		target, err := s.store.GetEntity(ctx, targetID)
		if err != nil {
			return fmt.Errorf("loading target entity %s: %w", targetID, err)
		}
		if rule.TargetItemTypeCode != "" && target.TypeCode != rule.TargetItemTypeCode {
			return fmt.Errorf("entity %s has type %s, rule %s links %s",
				targetID, target.TypeCode, ruleCode, rule.TargetItemTypeCode)
		}
		rel, err := s.store.CreateRelationship(ctx, association.Relationship{
			AssociationID:    ruleCode,
			SourceEntityID:   src.ID,
			SourceEntityType: src.TypeCode,
			TargetEntityID:   target.ID,
			TargetEntityType: target.TypeCode,
			Status:           association.StatusActive,
		})
		if err != nil {
			return fmt.Errorf("linking %s to %s: %w", src.ID, targetID, err)
		}
		s.publish(ctx, event.NewRelationshipCreated(rel, ruleCode))
	}
	return nil
}

// maxLinksPerRule bounds the existing-links fetch during linking.
const maxLinksPerRule = 10000

// DeleteRelationship removes one link.
func (s *Service) DeleteRelationship(ctx context.Context, id string) error {
	rel, err := s.store.GetRelationship(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRelationship(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, event.NewRelationshipDeleted(rel, false))
	return nil
}

// ErrInvalidTransition is returned for status moves the transition table
// does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// ChangeRelationshipStatus applies a lifecycle transition. Invalid
// transitions (including any move out of archived) are rejected.
func (s *Service) ChangeRelationshipStatus(ctx context.Context, id string, status association.Status) error {
	if !status.Valid() {
		return fmt.Errorf("unknown relationship status %q: %w", status, ErrInvalidTransition)
	}
	rel, err := s.store.GetRelationship(ctx, id)
	if err != nil {
		return err
	}
	if !association.CanTransition(rel.Status, status) {
		return fmt.Errorf("relationship %s cannot move from %s to %s: %w", id, rel.Status, status, ErrInvalidTransition)
	}
	updated, err := s.store.UpdateRelationshipStatus(ctx, id, status)
	if err != nil {
		return err
	}
	s.publish(ctx, event.NewRelationshipStatusChanged(updated, rel.Status))
	return nil
}

// DeleteEntity removes an entity and every relationship touching it.
// When a deleted relationship was created by a rule with CascadeDelete,
// the target entity on the other side is deleted too, recursively.
func (s *Service) DeleteEntity(ctx context.Context, id string) error {
	return s.deleteEntity(ctx, id, map[string]bool{})
}

func (s *Service) deleteEntity(ctx context.Context, id string, visited map[string]bool) error {
	if visited[id] {
		return nil
	}
	visited[id] = true

	e, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteRelationshipsForEntity(ctx, e.TypeCode, e.ID)
	if err != nil {
		return err
	}

	var cascade []string
	for _, rel := range deleted {
		cascaded := false
		if rel.SourceEntityID == e.ID {
			rule, err := s.store.GetRule(ctx, rel.AssociationID)
			if err == nil && rule.CascadeDelete {
				cascade = append(cascade, rel.TargetEntityID)
				cascaded = true
			}
		}
		s.publish(ctx, event.NewRelationshipDeleted(rel, cascaded))
	}

	if err := s.store.DeleteEntity(ctx, e.ID); err != nil {
		return err
	}

	for _, targetID := range cascade {
		if err := s.deleteEntity(ctx, targetID, visited); err != nil && err != ErrNotFound {
			return err
		}
	}
	return nil
}

// ── Selection collaborators ─────────────────────────────────────────

// FetchMetadata summarises the association state of one source entity
// under one rule.
func (s *Service) FetchMetadata(ctx context.Context, sourceEntityID, ruleCode string) (selection.Metadata, error) {
	rule, err := s.store.GetRule(ctx, ruleCode)
	if err != nil {
		return selection.Metadata{}, err
	}

	_, selected, err := s.store.ListRelationships(ctx, RelationshipQuery{
		SourceEntityID: sourceEntityID,
		AssociationID:  ruleCode,
		PageSize:       1,
	})
	if err != nil {
		return selection.Metadata{}, err
	}

	candidates, err := s.store.SearchEntities(ctx, EntityQuery{
		TypeCode: rule.TargetItemTypeCode,
		FilterBy: rule.FilterBy,
		PageSize: 1,
	})
	if err != nil {
		return selection.Metadata{}, err
	}

	md := selection.Metadata{
		AvailableCount: candidates.Total,
		SelectedCount:  selected,
		CanAddMore:     true,
	}
	if max := rule.EffectiveMax(); max != nil && selected >= *max {
		md.CanAddMore = false
	}

	result := association.Validate([]association.Rule{rule},
		map[string]any{rule.Key(): selectionShape(rule, selected)})
	if result.IsValid {
		md.ValidationStatus = "valid"
	} else {
		md.ValidationStatus = "invalid"
	}
	return md, nil
}

// selectionShape renders a link count in the shape the validation engine
// expects: nil when empty, one ID for to-one, a slice otherwise.
func selectionShape(rule association.Rule, count int) any {
	if count == 0 {
		return nil
	}
	if rule.Kind.ToOne() {
		return "linked"
	}
	return make([]string, count)
}

// CandidateSource returns a selection.CandidateSource that searches the
// store using the rule's searchable fields.
func (s *Service) CandidateSource(rule association.Rule) selection.CandidateSource {
	return &storeCandidates{store: s.store, rule: rule}
}

type storeCandidates struct {
	store Store
	rule  association.Rule
}

func (c *storeCandidates) FetchCandidates(ctx context.Context, targetTypeCode string, filterBy map[string]any, query string, page, pageSize int) (entity.Page, error) {
	return c.store.SearchEntities(ctx, EntityQuery{
		TypeCode:         targetTypeCode,
		Query:            query,
		SearchableFields: c.rule.SearchableFields,
		FilterBy:         filterBy,
		Page:             page,
		PageSize:         pageSize,
	})
}

var (
	_ selection.Writer          = (*Service)(nil)
	_ selection.MetadataSource  = (*Service)(nil)
	_ selection.CandidateSource = (*storeCandidates)(nil)
)
