package server

import (
	"encoding/json"

	"github.com/pimkit/pimkit/internal/association"
	"github.com/pimkit/pimkit/internal/entity"
	"github.com/pimkit/pimkit/internal/selection"
)

// ClientMessage is a message from the selection client.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is a message to the selection client.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// SessionData is sent once after the socket is accepted.
type SessionData struct {
	SessionID      string           `json:"sessionId"`
	SourceEntityID string           `json:"sourceEntityId"`
	Rule           association.Rule `json:"rule"`
}

// SearchData carries a candidate search request.
type SearchData struct {
	Query string `json:"query"`
}

// PageData carries a candidate page request.
type PageData struct {
	Page int `json:"page"`
}

// ToggleData carries a selection toggle request.
type ToggleData struct {
	EntityID string `json:"entityId"`
}

// CandidatesData carries one page of candidates.
type CandidatesData struct {
	Items []entity.Entity `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
}

// SelectionData carries the current selection state.
type SelectionData struct {
	Selected []entity.Entity    `json:"selected"`
	Value    any                `json:"value"`
	Metadata selection.Metadata `json:"metadata"`
}

// WarningData carries a non-fatal rejection notice.
type WarningData struct {
	Message string `json:"message"`
}

// ErrorData carries a structured error.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
