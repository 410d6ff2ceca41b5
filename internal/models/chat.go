package models

import "time"

// ChatAction is a suggested quick reply. Choosing it re-submits Value as if typed.
type ChatAction struct {
	ID      string        `json:"id"`
	Label   string        `json:"label"`
	Value   string        `json:"value"`
	Kind    ActionKind    `json:"kind"`
	Variant ActionVariant `json:"variant,omitempty"`
}

// ChatMessage is the externally visible reply unit.
type ChatMessage struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"created_at"`
	Actions   []ChatAction `json:"actions,omitempty"`
}

// ActionResult is what every handler verb returns.
// Entity refreshes the session's last entity; Deleted overwrites the undo slot.
type ActionResult struct {
	Message  string       `json:"message"`
	Actions  []ChatAction `json:"actions,omitempty"`
	Entity   *EntityRef   `json:"entity,omitempty"`
	Deleted  *DeletedRef  `json:"deleted,omitempty"`
	FollowUp string       `json:"follow_up,omitempty"`
}

// UserContext identifies who is asking. Both fields may be empty.
type UserContext struct {
	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// Record is the stored shape of every entity kind.
type Record struct {
	ID        string    `json:"id"`
	Kind      Entity    `json:"kind"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Data      Data      `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AsData flattens the record into a payload suitable for TargetMatch.Item or undo.
func (r Record) AsData() Data {
	out := r.Data.Clone()
	out["id"] = r.ID
	out["name"] = r.Name
	out["created_at"] = r.CreatedAt.Format(time.RFC3339)
	return out
}
