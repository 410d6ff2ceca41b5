// Package models defines state management structures for LifeTracker conversations.
package models

import (
	"encoding/json"
	"time"
)

// FlowField is a single slot in a form-like question sequence.
// Parser names a field parser registered with the flow package; an empty
// Parser stores the trimmed raw answer under Key.
type FlowField struct {
	Key      string   `json:"key"`
	Label    string   `json:"label,omitempty"` // button label when offered for editing; defaults to Key
	Question string   `json:"question"`
	Optional bool     `json:"optional,omitempty"`
	Options  []string `json:"options,omitempty"`
	Parser   string   `json:"parser,omitempty"`
}

// DisplayLabel returns the label used when the field is offered as a quick reply.
func (f FlowField) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// TargetMatch is a resolved reference to a concrete stored entity.
type TargetMatch struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Item Data   `json:"item,omitempty"` // raw stored record, opaque to the engine
}

// AllTargetID marks the synthetic "every habit" target.
const AllTargetID = "__all__"

// PendingFlow is the working memory for exactly one in-flight multi-turn operation.
type PendingFlow struct {
	Action       Action       `json:"action"`
	Entity       Entity       `json:"entity"`
	Stage        Stage        `json:"stage"`
	Data         Data         `json:"data"`
	Fields       []FlowField  `json:"fields,omitempty"`
	FieldIndex   int          `json:"field_index"`
	Target       *TargetMatch `json:"target,omitempty"`
	EditFieldKey string       `json:"edit_field_key,omitempty"`
	Step         int          `json:"step,omitempty"` // number of questions asked so far in this flow
}

// EntityRef is the session's memory of the most recently touched entity.
type EntityRef struct {
	Type Entity `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Data Data   `json:"data,omitempty"`
}

// DeletedRef holds the full payload of the last deleted entity for a single undo.
type DeletedRef struct {
	Type Entity `json:"type"`
	Data Data   `json:"data"`
}

// Session is the unit of conversational memory, one per user or device.
type Session struct {
	Pending     *PendingFlow `json:"pending"`
	LastEntity  *EntityRef   `json:"last_entity"`
	LastDeleted *DeletedRef  `json:"last_deleted"`
}

// Clone returns a deep copy of the session so a turn can be computed without
// touching the caller's value.
func (s Session) Clone() Session {
	raw, err := json.Marshal(s)
	if err != nil {
		return s
	}
	var out Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return s
	}
	return out
}

// SessionState is a persisted session together with its bookkeeping columns.
type SessionState struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	Session   Session   `json:"session"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
