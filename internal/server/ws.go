package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pimkit/pimkit/internal/selection"
)

// serveSelection upgrades to WebSocket and runs the live selection
// workflow for one entity/rule pair. Each connection owns one session;
// the session is removed when the socket closes.
func (s *Server) serveSelection(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entityId")
	ruleCode := r.URL.Query().Get("rule")
	if entityID == "" || ruleCode == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "entityId and rule query parameters are required")
		return
	}

	rule, err := s.svc.Store().GetRule(r.Context(), ruleCode)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if _, err := s.svc.Store().GetEntity(r.Context(), entityID); err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("selection: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctrl := selection.NewController(rule, s.svc.CandidateSource(rule), s.svc, s.svc)
	sess := s.sessions.Create(entityID, ruleCode, ctrl)
	defer s.sessions.Remove(sess.ID)

	ctx := r.Context()

	s.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{
			SessionID:      sess.ID,
			SourceEntityID: entityID,
			Rule:           rule,
		},
	})

	// Initial candidate pool and metadata.
	if err := ctrl.Refresh(ctx); err != nil {
		s.sendError(ctx, conn, "", "fetch_error", err.Error())
	}
	s.sendCandidates(ctx, conn, "", ctrl, 0)
	if md, err := s.svc.FetchMetadata(ctx, entityID, ruleCode); err == nil {
		s.send(ctx, conn, ServerMessage{
			Type: "selection",
			Data: SelectionData{
				Selected: ctrl.Selected(),
				Value:    ctrl.SelectionValue(),
				Metadata: md,
			},
		})
	} else {
		s.sendSelection(ctx, conn, "", ctrl)
	}

	page := 0
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("selection: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}
		sess.Touch()

		switch msg.Type {
		case "search":
			var data SearchData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				s.sendError(ctx, conn, msg.ID, "invalid_data", "invalid search data")
				continue
			}
			page = 0
			if err := ctrl.Search(ctx, data.Query); err != nil {
				s.sendError(ctx, conn, msg.ID, "fetch_error", err.Error())
				continue
			}
			s.sendCandidates(ctx, conn, msg.ID, ctrl, page)

		case "page":
			var data PageData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				s.sendError(ctx, conn, msg.ID, "invalid_data", "invalid page data")
				continue
			}
			page = data.Page
			if page < 0 {
				page = 0
			}
			if err := ctrl.SetPage(ctx, page); err != nil {
				s.sendError(ctx, conn, msg.ID, "fetch_error", err.Error())
				continue
			}
			s.sendCandidates(ctx, conn, msg.ID, ctrl, page)

		case "toggle":
			var data ToggleData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				s.sendError(ctx, conn, msg.ID, "invalid_data", "invalid toggle data")
				continue
			}
			s.handleToggle(ctx, conn, ctrl, msg.ID, data.EntityID)

		case "selectAll":
			ctrl.SelectAll()
			s.flushWarning(ctx, conn, msg.ID, ctrl)
			s.sendSelection(ctx, conn, msg.ID, ctrl)
			s.sendValidation(ctx, conn, msg.ID, ctrl)

		case "deselectAll":
			ctrl.DeselectAll()
			s.sendSelection(ctx, conn, msg.ID, ctrl)
			s.sendValidation(ctx, conn, msg.ID, ctrl)

		case "submit":
			if err := ctrl.Submit(ctx, entityID); err != nil {
				s.sendError(ctx, conn, msg.ID, "submit_error", err.Error())
				continue
			}
			s.send(ctx, conn, ServerMessage{Type: "submitted", RequestID: msg.ID})
			s.sendSelection(ctx, conn, msg.ID, ctrl)

		case "ping":
			s.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})

		default:
			s.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (s *Server) handleToggle(ctx context.Context, conn *websocket.Conn, ctrl *selection.Controller, requestID, entityID string) {
	pool, _ := ctrl.Candidates()
	for _, cand := range pool {
		if cand.ID == entityID {
			ctrl.Toggle(cand)
			s.flushWarning(ctx, conn, requestID, ctrl)
			s.sendSelection(ctx, conn, requestID, ctrl)
			s.sendValidation(ctx, conn, requestID, ctrl)
			return
		}
	}
	// Already-selected entities can be toggled off even after the pool
	// has paged away from them.
	for _, sel := range ctrl.Selected() {
		if sel.ID == entityID {
			ctrl.Toggle(sel)
			s.sendSelection(ctx, conn, requestID, ctrl)
			s.sendValidation(ctx, conn, requestID, ctrl)
			return
		}
	}
	s.sendError(ctx, conn, requestID, "unknown_entity", fmt.Sprintf("entity %s is not a visible candidate", entityID))
}

func (s *Server) sendCandidates(ctx context.Context, conn *websocket.Conn, requestID string, ctrl *selection.Controller, page int) {
	items, total := ctrl.Candidates()
	s.send(ctx, conn, ServerMessage{
		Type:      "candidates",
		RequestID: requestID,
		Data:      CandidatesData{Items: items, Total: total, Page: page},
	})
}

func (s *Server) sendSelection(ctx context.Context, conn *websocket.Conn, requestID string, ctrl *selection.Controller) {
	s.send(ctx, conn, ServerMessage{
		Type:      "selection",
		RequestID: requestID,
		Data: SelectionData{
			Selected: ctrl.Selected(),
			Value:    ctrl.SelectionValue(),
			Metadata: ctrl.Metadata(),
		},
	})
}

func (s *Server) sendValidation(ctx context.Context, conn *websocket.Conn, requestID string, ctrl *selection.Controller) {
	s.send(ctx, conn, ServerMessage{
		Type:      "validation",
		RequestID: requestID,
		Data:      ctrl.Validate(),
	})
}

func (s *Server) flushWarning(ctx context.Context, conn *websocket.Conn, requestID string, ctrl *selection.Controller) {
	if warning := ctrl.Warning(); warning != "" {
		s.send(ctx, conn, ServerMessage{
			Type:      "warning",
			RequestID: requestID,
			Data:      WarningData{Message: warning},
		})
	}
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("selection: write error: %v", err)
	}
}

func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	s.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
