// Package entities implements the chat engine's handlers for every LifeTracker entity
// kind: habits, reminders, tasks, protocols, notes, schedule events, courses, journal
// entries, metrics, library items, contacts, achievements and settings.
//
// Every handler keeps its entities as models.Record values in a store.Records
// collaborator. Kinds differ only in their questions, parsing and completion rules,
// which are described by a kindDef registered from each kind's file.
package entities

import (
	"log/slog"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/util"
)

// Opts holds configuration shared by every handler.
type Opts struct {
	IDs   flow.IDGenerator
	Clock func() time.Time
}

// Option defines a configuration option for the handlers.
type Option func(*Opts)

// WithIDGenerator sets the generator used for new record IDs.
func WithIDGenerator(ids flow.IDGenerator) Option {
	return func(o *Opts) {
		o.IDs = ids
	}
}

// WithClock sets the time source for record timestamps, completions and relative dates.
func WithClock(clock func() time.Time) Option {
	return func(o *Opts) {
		o.Clock = clock
	}
}

var kinds = make(map[models.Entity]kindDef)

// register makes a kind available to NewHandlers. Called from init functions.
func register(def kindDef) {
	kinds[def.entity] = def
}

// NewHandlers builds one handler per entity kind, in models.AllEntities order.
func NewHandlers(records store.Records, opts ...Option) []flow.Handler {
	cfg := Opts{
		IDs:   util.NewUUIDGenerator(),
		Clock: time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make([]flow.Handler, 0, len(models.AllEntities))
	for _, entity := range models.AllEntities {
		if entity == models.EntitySettings {
			out = append(out, newSettingsHandler(records, cfg))
			continue
		}
		def, ok := kinds[entity]
		if !ok {
			slog.Warn("entities.NewHandlers: no definition registered", "entity", entity)
			continue
		}
		out = append(out, newHandler(def, records, cfg))
	}
	slog.Debug("entities.NewHandlers: handlers built", "count", len(out))
	return out
}
