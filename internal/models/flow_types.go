// Package models defines flow type definitions to avoid circular imports.
package models

// Entity is one of the domain nouns the assistant can manage.
type Entity string

// Entity kinds. AllEntities fixes their iteration order.
const (
	EntityHabit       Entity = "habit"
	EntityReminder    Entity = "reminder"
	EntityTask        Entity = "task"
	EntityProtocol    Entity = "protocol"
	EntityKnowledge   Entity = "knowledge"
	EntitySchedule    Entity = "schedule"
	EntityAcademy     Entity = "academy"
	EntityRecall      Entity = "recall"
	EntityMetrics     Entity = "metrics"
	EntityLibrary     Entity = "library"
	EntityNetwork     Entity = "network"
	EntityAchievement Entity = "achievement"
	EntitySettings    Entity = "settings"
)

// AllEntities lists every entity kind in intent-scoring order.
var AllEntities = []Entity{
	EntityHabit,
	EntityReminder,
	EntityTask,
	EntityProtocol,
	EntityKnowledge,
	EntitySchedule,
	EntityAcademy,
	EntityRecall,
	EntityMetrics,
	EntityLibrary,
	EntityNetwork,
	EntityAchievement,
	EntitySettings,
}

// IsValidEntity reports whether e is a known entity kind.
func IsValidEntity(e Entity) bool {
	for _, known := range AllEntities {
		if e == known {
			return true
		}
	}
	return false
}

// Action is what the user wants to do with an entity.
type Action string

// Actions recognized by the intent detector.
const (
	ActionCreate   Action = "create"
	ActionEdit     Action = "edit"
	ActionComplete Action = "complete"
	ActionDelete   Action = "delete"
	ActionView     Action = "view"
	ActionSnooze   Action = "snooze"
	ActionExport   Action = "export"
	ActionShare    Action = "share"
	ActionEnroll   Action = "enroll"
	ActionProgress Action = "progress"
	ActionUpdate   Action = "update"
)

// Stage is the position of a pending flow within its state machine.
type Stage string

// Flow stages.
const (
	StageCollect       Stage = "collect"
	StageConfirm       Stage = "confirm"
	StageEditField     Stage = "edit-field"
	StageEditValue     Stage = "edit-value"
	StageResolveTarget Stage = "resolve-target"
)

// IsValidStage reports whether s is a known stage.
func IsValidStage(s Stage) bool {
	switch s {
	case StageCollect, StageConfirm, StageEditField, StageEditValue, StageResolveTarget:
		return true
	default:
		return false
	}
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ActionKind tells a UI how a quick reply behaves.
type ActionKind string

const (
	ActionKindReply   ActionKind = "reply"
	ActionKindConfirm ActionKind = "confirm"
	ActionKindCancel  ActionKind = "cancel"
)

// ActionVariant is the visual style of a quick reply.
type ActionVariant string

const (
	VariantPrimary   ActionVariant = "primary"
	VariantSecondary ActionVariant = "secondary"
	VariantDanger    ActionVariant = "danger"
)
