package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/attribute"
	"github.com/pimkit/pimkit/internal/entity"
)

// Open opens the catalogue database at path using the pure-Go SQLite
// driver.
func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

// SQLStore implements Store on gorm/SQLite.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func marshalJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// ── Attribute definitions ───────────────────────────────────────────

func defToColumns(def attribute.Definition) map[string]any {
	return map[string]any{
		"type":        string(def.Type),
		"is_required": def.IsRequired,
		"name":        marshalJSON(def.Name),
		"description": marshalJSON(def.Description),
		"options":     marshalJSON(def.Options),
		"rules":       marshalJSON(def.Rules),
	}
}

func modelToDef(m DefinitionModel) attribute.Definition {
	def := attribute.Definition{
		Code:       m.Code,
		Type:       attribute.Type(m.Type),
		IsRequired: m.IsRequired,
	}
	_ = json.Unmarshal([]byte(m.Name), &def.Name)
	_ = json.Unmarshal([]byte(m.Description), &def.Description)
	_ = json.Unmarshal([]byte(m.Options), &def.Options)
	_ = json.Unmarshal([]byte(m.Rules), &def.Rules)
	return def
}

func (s *SQLStore) SaveDefinition(ctx context.Context, def attribute.Definition) error {
	var existing DefinitionModel
	err := s.db.WithContext(ctx).Where("code = ?", def.Code).First(&existing).Error
	switch {
	case err == nil:
		if existing.Type != string(def.Type) {
			return ErrTypeImmutable
		}
		return s.db.WithContext(ctx).Model(&DefinitionModel{}).
			Where("code = ?", def.Code).
			Updates(defToColumns(def)).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		m := DefinitionModel{
			Code:        def.Code,
			Type:        string(def.Type),
			IsRequired:  def.IsRequired,
			Name:        marshalJSON(def.Name),
			Description: marshalJSON(def.Description),
			Options:     marshalJSON(def.Options),
			Rules:       marshalJSON(def.Rules),
		}
		return s.db.WithContext(ctx).Create(&m).Error
	default:
		return err
	}
}

func (s *SQLStore) GetDefinition(ctx context.Context, code string) (attribute.Definition, error) {
	var m DefinitionModel
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&m).Error; err != nil {
		return attribute.Definition{}, wrapNotFound(err)
	}
	return modelToDef(m), nil
}

func (s *SQLStore) ListDefinitions(ctx context.Context) ([]attribute.Definition, error) {
	rows := make([]DefinitionModel, 0)
	if err := s.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]attribute.Definition, 0, len(rows))
	for _, m := range rows {
		result = append(result, modelToDef(m))
	}
	return result, nil
}

func (s *SQLStore) DeleteDefinition(ctx context.Context, code string) error {
	res := s.db.WithContext(ctx).Where("code = ?", code).Delete(&DefinitionModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Association rules ───────────────────────────────────────────────

func modelToRule(m RuleModel) association.Rule {
	rule := association.Rule{
		Code:               m.Code,
		SourceItemTypeCode: m.SourceItemTypeCode,
		TargetItemTypeCode: m.TargetItemTypeCode,
		Kind:               association.Kind(m.Kind),
		Cardinality:        association.Cardinality{Min: m.CardinalityMin, Max: m.CardinalityMax},
		IsRequired:         m.IsRequired,
		DisplayField:       m.DisplayField,
		CascadeDelete:      m.CascadeDelete,
	}
	_ = json.Unmarshal([]byte(m.SearchableFields), &rule.SearchableFields)
	_ = json.Unmarshal([]byte(m.FilterBy), &rule.FilterBy)
	_ = json.Unmarshal([]byte(m.UIConfig), &rule.UIConfig)
	return rule
}

func (s *SQLStore) SaveRule(ctx context.Context, rule association.Rule) error {
	m := RuleModel{
		Code:               rule.Code,
		SourceItemTypeCode: rule.SourceItemTypeCode,
		TargetItemTypeCode: rule.TargetItemTypeCode,
		Kind:               string(rule.Kind),
		CardinalityMin:     rule.Cardinality.Min,
		CardinalityMax:     rule.Cardinality.Max,
		IsRequired:         rule.IsRequired,
		DisplayField:       rule.DisplayField,
		SearchableFields:   marshalJSON(rule.SearchableFields),
		FilterBy:           marshalJSON(rule.FilterBy),
		UIConfig:           marshalJSON(rule.UIConfig),
		CascadeDelete:      rule.CascadeDelete,
	}
	return s.db.WithContext(ctx).
		Where("code = ?", rule.Code).
		Assign(map[string]any{
			"source_item_type_code": m.SourceItemTypeCode,
			"target_item_type_code": m.TargetItemTypeCode,
			"kind":                  m.Kind,
			"cardinality_min":       m.CardinalityMin,
			"cardinality_max":       m.CardinalityMax,
			"is_required":           m.IsRequired,
			"display_field":         m.DisplayField,
			"searchable_fields":     m.SearchableFields,
			"filter_by":             m.FilterBy,
			"ui_config":             m.UIConfig,
			"cascade_delete":        m.CascadeDelete,
		}).
		FirstOrCreate(&m).Error
}

func (s *SQLStore) GetRule(ctx context.Context, code string) (association.Rule, error) {
	var m RuleModel
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&m).Error; err != nil {
		return association.Rule{}, wrapNotFound(err)
	}
	return modelToRule(m), nil
}

func (s *SQLStore) ListRules(ctx context.Context, sourceTypeCode string) ([]association.Rule, error) {
	q := s.db.WithContext(ctx).Model(&RuleModel{})
	if sourceTypeCode != "" {
		q = q.Where("source_item_type_code = ?", sourceTypeCode)
	}
	rows := make([]RuleModel, 0)
	if err := q.Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]association.Rule, 0, len(rows))
	for _, m := range rows {
		result = append(result, modelToRule(m))
	}
	return result, nil
}

func (s *SQLStore) DeleteRule(ctx context.Context, code string) error {
	res := s.db.WithContext(ctx).Where("code = ?", code).Delete(&RuleModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Relationship types ──────────────────────────────────────────────

func modelToRelType(m RelationshipTypeModel) association.RelationshipType {
	rt := association.RelationshipType{
		Code:          m.Code,
		Name:          m.Name,
		IsDirectional: m.IsDirectional,
	}
	_ = json.Unmarshal([]byte(m.AllowedSourceTypes), &rt.AllowedSourceTypes)
	_ = json.Unmarshal([]byte(m.AllowedTargetTypes), &rt.AllowedTargetTypes)
	return rt
}

func (s *SQLStore) SaveRelationshipType(ctx context.Context, rt association.RelationshipType) error {
	m := RelationshipTypeModel{
		Code:               rt.Code,
		Name:               rt.Name,
		IsDirectional:      rt.IsDirectional,
		AllowedSourceTypes: marshalJSON(rt.AllowedSourceTypes),
		AllowedTargetTypes: marshalJSON(rt.AllowedTargetTypes),
	}
	return s.db.WithContext(ctx).
		Where("code = ?", rt.Code).
		Assign(map[string]any{
			"name":                 m.Name,
			"is_directional":       m.IsDirectional,
			"allowed_source_types": m.AllowedSourceTypes,
			"allowed_target_types": m.AllowedTargetTypes,
		}).
		FirstOrCreate(&m).Error
}

func (s *SQLStore) GetRelationshipType(ctx context.Context, code string) (association.RelationshipType, error) {
	var m RelationshipTypeModel
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&m).Error; err != nil {
		return association.RelationshipType{}, wrapNotFound(err)
	}
	return modelToRelType(m), nil
}

func (s *SQLStore) ListRelationshipTypes(ctx context.Context) ([]association.RelationshipType, error) {
	rows := make([]RelationshipTypeModel, 0)
	if err := s.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]association.RelationshipType, 0, len(rows))
	for _, m := range rows {
		result = append(result, modelToRelType(m))
	}
	return result, nil
}

// ── Relationships ───────────────────────────────────────────────────

func modelToRel(m RelationshipModel) association.Relationship {
	rel := association.Relationship{
		ID:               m.ID,
		AssociationID:    m.AssociationID,
		SourceEntityID:   m.SourceEntityID,
		SourceEntityType: m.SourceEntityType,
		TargetEntityID:   m.TargetEntityID,
		TargetEntityType: m.TargetEntityType,
		Status:           association.Status(m.Status),
		Priority:         m.Priority,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	_ = json.Unmarshal([]byte(m.Attributes), &rel.Attributes)
	return rel
}

func (s *SQLStore) CreateRelationship(ctx context.Context, rel association.Relationship) (association.Relationship, error) {
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.Status == "" {
		rel.Status = association.StatusPending
	}
	m := RelationshipModel{
		ID:               rel.ID,
		AssociationID:    rel.AssociationID,
		SourceEntityID:   rel.SourceEntityID,
		SourceEntityType: rel.SourceEntityType,
		TargetEntityID:   rel.TargetEntityID,
		TargetEntityType: rel.TargetEntityType,
		Status:           string(rel.Status),
		Priority:         rel.Priority,
		Attributes:       marshalJSON(rel.Attributes),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return association.Relationship{}, err
	}
	return modelToRel(m), nil
}

func (s *SQLStore) GetRelationship(ctx context.Context, id string) (association.Relationship, error) {
	var m RelationshipModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return association.Relationship{}, wrapNotFound(err)
	}
	return modelToRel(m), nil
}

func (s *SQLStore) ListRelationships(ctx context.Context, q RelationshipQuery) ([]association.Relationship, int, error) {
	base := s.db.WithContext(ctx).Model(&RelationshipModel{})
	if q.SourceEntityID != "" {
		base = base.Where("source_entity_id = ?", q.SourceEntityID)
	}
	if q.TargetEntityID != "" {
		base = base.Where("target_entity_id = ?", q.TargetEntityID)
	}
	if q.AssociationID != "" {
		base = base.Where("association_id = ?", q.AssociationID)
	}
	if q.Status != "" {
		base = base.Where("status = ?", string(q.Status))
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := q.Page
	if page < 0 {
		page = 0
	}

	rows := make([]RelationshipModel, 0)
	if err := base.Order("created_at ASC, id ASC").
		Offset(page * pageSize).Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	result := make([]association.Relationship, 0, len(rows))
	for _, m := range rows {
		result = append(result, modelToRel(m))
	}
	return result, int(total), nil
}

func (s *SQLStore) UpdateRelationshipStatus(ctx context.Context, id string, status association.Status) (association.Relationship, error) {
	res := s.db.WithContext(ctx).Model(&RelationshipModel{}).
		Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return association.Relationship{}, res.Error
	}
	if res.RowsAffected == 0 {
		return association.Relationship{}, ErrNotFound
	}
	return s.GetRelationship(ctx, id)
}

func (s *SQLStore) DeleteRelationship(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&RelationshipModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteRelationshipsForEntity(ctx context.Context, entityType, entityID string) ([]association.Relationship, error) {
	rows := make([]RelationshipModel, 0)
	err := s.db.WithContext(ctx).
		Where("(source_entity_type = ? AND source_entity_id = ?) OR (target_entity_type = ? AND target_entity_id = ?)",
			entityType, entityID, entityType, entityID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	deleted := make([]association.Relationship, len(rows))
	for i, m := range rows {
		ids[i] = m.ID
		deleted[i] = modelToRel(m)
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&RelationshipModel{}).Error; err != nil {
		return nil, err
	}
	return deleted, nil
}

// ── Entities ────────────────────────────────────────────────────────

func modelToEntity(m EntityModel) entity.Entity {
	e := entity.Entity{ID: m.ID, TypeCode: m.TypeCode}
	_ = json.Unmarshal([]byte(m.Labels), &e.Labels)
	_ = json.Unmarshal([]byte(m.Fields), &e.Fields)
	return e
}

func (s *SQLStore) SaveEntity(ctx context.Context, e entity.Entity) error {
	m := EntityModel{
		ID:       e.ID,
		TypeCode: e.TypeCode,
		Labels:   marshalJSON(e.Labels),
		Fields:   marshalJSON(e.Fields),
	}
	return s.db.WithContext(ctx).
		Where("id = ?", e.ID).
		Assign(map[string]any{
			"type_code": m.TypeCode,
			"labels":    m.Labels,
			"fields":    m.Fields,
		}).
		FirstOrCreate(&m).Error
}

func (s *SQLStore) GetEntity(ctx context.Context, id string) (entity.Entity, error) {
	var m EntityModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return entity.Entity{}, wrapNotFound(err)
	}
	return modelToEntity(m), nil
}

func (s *SQLStore) DeleteEntity(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&EntityModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchEntities narrows by type in SQL and applies the text match in Go:
// entity fields are schemaless JSON blobs the database cannot index.
func (s *SQLStore) SearchEntities(ctx context.Context, q EntityQuery) (entity.Page, error) {
	db := s.db.WithContext(ctx).Model(&EntityModel{})
	if q.TypeCode != "" {
		db = db.Where("type_code = ?", q.TypeCode)
	}
	rows := make([]EntityModel, 0)
	if err := db.Find(&rows).Error; err != nil {
		return entity.Page{}, err
	}

	matched := make([]entity.Entity, 0, len(rows))
	for _, m := range rows {
		e := modelToEntity(m)
		if matchEntity(e, q) {
			matched = append(matched, e)
		}
	}
	return pageEntities(matched, q.Page, q.PageSize), nil
}

var _ Store = (*SQLStore)(nil)
