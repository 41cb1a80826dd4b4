package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/attribute"
	"github.com/pimkit/pimkit/internal/catalog"
	"github.com/pimkit/pimkit/internal/entity"
	"github.com/pimkit/pimkit/internal/event"
	"github.com/pimkit/pimkit/internal/render"
	"github.com/pimkit/pimkit/internal/tablegrid"
)

func (s *Server) language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return s.lang
}

// ── Attribute types ─────────────────────────────────────────────────

type attributeTypeInfo struct {
	Type       string   `json:"type"`
	Category   string   `json:"category"`
	HasOptions bool     `json:"hasOptions"`
	RuleFields []string `json:"ruleFields"`
	EditorInfo string   `json:"editorInfo,omitempty"`
}

func (s *Server) listAttributeTypes(w http.ResponseWriter, _ *http.Request) {
	infos := make([]attributeTypeInfo, 0, len(attribute.AllTypes))
	for _, t := range attribute.AllTypes {
		ed := attribute.EditorFor(t)
		infos = append(infos, attributeTypeInfo{
			Type:       string(t),
			Category:   t.Category().String(),
			HasOptions: t.HasOptions(),
			RuleFields: attribute.RuleFieldsFor(t),
			EditorInfo: ed.Info(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": infos})
}

// listEvents returns recent domain events, newest first. Empty when the
// server runs without an event history.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	events := []event.DomainEvent{}
	if s.history != nil {
		events = s.history.Recent(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// ── Attribute definitions ───────────────────────────────────────────

func (s *Server) listDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := s.svc.Store().ListDefinitions(r.Context())
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"definitions": defs})
}

func (s *Server) saveDefinition(w http.ResponseWriter, r *http.Request) {
	var def attribute.Definition
	if err := decodeJSON(r, &def); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	issues, err := s.svc.SaveDefinition(r.Context(), def)
	if err != nil {
		if errors.Is(err, catalog.ErrTypeImmutable) || errors.Is(err, catalog.ErrNotFound) {
			storeErrorToHTTP(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_DEFINITION", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"definition": def,
		"issues":     issues,
	})
}

func (s *Server) lintDefinition(w http.ResponseWriter, r *http.Request) {
	var def attribute.Definition
	if err := decodeJSON(r, &def); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	resp := map[string]any{"valid": true, "issues": attribute.Lint(def.Type, def.Rules)}
	if err := attribute.CheckDefinition(def); err != nil {
		resp["valid"] = false
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.svc.Store().GetDefinition(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) deleteDefinition(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store().DeleteDefinition(r.Context(), chi.URLParam(r, "code")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// editDefinitionRule applies one validation-rule edit through the rule
// editor: foreign and malformed fields surface as issues, valid edits
// always apply, and lint findings never block the save.
func (s *Server) editDefinitionRule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	def, err := s.svc.Store().GetDefinition(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	ed := attribute.EditorFor(def.Type)
	rules, issues := ed.Set(def.Rules, body.Field, body.Value)
	def.Rules = rules
	if _, err := s.svc.SaveDefinition(r.Context(), def); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  def.Rules,
		"issues": issues,
	})
}

func (s *Server) validateValue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value any `json:"value"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	def, err := s.svc.Store().GetDefinition(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	errs := attribute.ValidateValue(def, body.Value)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

// renderValue previews a value through the render registry. Unknown
// definition types fall back to the text renderer rather than failing.
func (s *Server) renderValue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value    any    `json:"value"`
		Mode     string `json:"mode"`
		Error    string `json:"error"`
		Disabled bool   `json:"disabled"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	def, err := s.svc.Store().GetDefinition(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	lang := s.language(r)
	switch render.Mode(body.Mode) {
	case render.ModeEdit:
		var coerced any
		applied := false
		errs := s.registry.ApplyEdit(string(def.Type), body.Value, func(v any) {
			coerced = v
			applied = true
		}, body.Disabled, def)
		writeJSON(w, http.StatusOK, map[string]any{
			"applied": applied,
			"value":   coerced,
			"errors":  errs,
		})
	case render.ModeDetail:
		writeJSON(w, http.StatusOK, map[string]any{
			"rendered": s.registry.RenderDetail(string(def.Type), body.Value, def, lang, body.Error),
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"rendered": s.registry.RenderCell(string(def.Type), body.Value, def, lang),
		})
	}
}

// tableOp is one grid mutation: "addRow", "deleteRow", or "editCell".
type tableOp struct {
	Op    string `json:"op"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value any    `json:"value"`
}

// editTable applies a sequence of grid operations to a table-typed
// attribute value. Rejected operations report applied=false and leave
// the grid unchanged; the final rows and grid-level error come back
// regardless.
func (s *Server) editTable(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value    [][]any   `json:"value"`
		Disabled bool      `json:"disabled"`
		Ops      []tableOp `json:"ops"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	def, err := s.svc.Store().GetDefinition(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if def.Type != attribute.TypeTable {
		writeError(w, http.StatusBadRequest, "NOT_A_TABLE", "attribute "+def.Code+" is not table-typed")
		return
	}

	grid := tablegrid.New(def.Rules, body.Value)
	grid.SetDisabled(body.Disabled)

	applied := make([]bool, len(body.Ops))
	for i, op := range body.Ops {
		switch op.Op {
		case "addRow":
			applied[i] = grid.AddRow()
		case "deleteRow":
			applied[i] = grid.DeleteRow(op.Row)
		case "editCell":
			applied[i] = grid.EditCell(op.Row, op.Col, op.Value)
		default:
			writeError(w, http.StatusBadRequest, "UNKNOWN_OP", "unknown table operation: "+op.Op)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rows":    grid.Rows(),
		"applied": applied,
		"error":   grid.Error(),
	})
}

// ── Association rules ───────────────────────────────────────────────

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Store().ListRules(r.Context(), r.URL.Query().Get("source_type"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (s *Server) saveRule(w http.ResponseWriter, r *http.Request) {
	var rule association.Rule
	if err := decodeJSON(r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := s.svc.SaveRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RULE", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.svc.Store().GetRule(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store().DeleteRule(r.Context(), chi.URLParam(r, "code")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Relationship types ──────────────────────────────────────────────

func (s *Server) listRelationshipTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.Store().ListRelationshipTypes(r.Context())
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relationshipTypes": types})
}

func (s *Server) saveRelationshipType(w http.ResponseWriter, r *http.Request) {
	var rt association.RelationshipType
	if err := decodeJSON(r, &rt); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := s.svc.SaveRelationshipType(r.Context(), rt); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RELATIONSHIP_TYPE", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func (s *Server) getRelationshipType(w http.ResponseWriter, r *http.Request) {
	rt, err := s.svc.Store().GetRelationshipType(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

// ── Relationships ───────────────────────────────────────────────────

func (s *Server) listRelationships(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)
	q := catalog.RelationshipQuery{
		SourceEntityID: r.URL.Query().Get("source_entity_id"),
		TargetEntityID: r.URL.Query().Get("target_entity_id"),
		AssociationID:  r.URL.Query().Get("association_id"),
		Status:         association.Status(r.URL.Query().Get("status")),
		Page:           p.Page,
		PageSize:       p.PageSize,
	}
	rels, total, err := s.svc.Store().ListRelationships(r.Context(), q)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relationships": rels, "total": total})
}

func (s *Server) createRelationships(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceEntityID string   `json:"sourceEntityId"`
		RuleCode       string   `json:"ruleCode"`
		TargetIDs      []string `json:"targetIds"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := s.svc.CreateAssociation(r.Context(), body.SourceEntityID, body.RuleCode, body.TargetIDs); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			storeErrorToHTTP(w, err)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "LINK_REJECTED", err.Error())
		return
	}

	rels, total, err := s.svc.Store().ListRelationships(r.Context(), catalog.RelationshipQuery{
		SourceEntityID: body.SourceEntityID,
		AssociationID:  body.RuleCode,
	})
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"relationships": rels, "total": total})
}

func (s *Server) getRelationship(w http.ResponseWriter, r *http.Request) {
	rel, err := s.svc.Store().GetRelationship(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (s *Server) deleteRelationship(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteRelationship(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) changeRelationshipStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status association.Status `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	err := s.svc.ChangeRelationshipStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	switch {
	case err == nil:
		rel, err := s.svc.Store().GetRelationship(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeErrorToHTTP(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rel)
	case errors.Is(err, catalog.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	default:
		storeErrorToHTTP(w, err)
	}
}

// ── Entities ────────────────────────────────────────────────────────

func (s *Server) searchEntities(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)
	page, err := s.svc.Store().SearchEntities(r.Context(), catalog.EntityQuery{
		TypeCode: r.URL.Query().Get("type"),
		Query:    r.URL.Query().Get("q"),
		Page:     p.Page,
		PageSize: p.PageSize,
	})
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) saveEntity(w http.ResponseWriter, r *http.Request) {
	var e entity.Entity
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if e.ID == "" || e.TypeCode == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ENTITY", "id and typeCode are required")
		return
	}
	if err := s.svc.Store().SaveEntity(r.Context(), e); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Store().GetEntity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEntity(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) associationMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := s.svc.FetchMetadata(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "rule"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}
