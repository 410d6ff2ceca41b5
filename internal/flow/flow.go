// Package flow implements the chat engine: the entity handler protocol, the registry of
// field parsers, the per-session dialogue state machine and the host-side conversation
// wrapper that loads and persists sessions around each turn.
package flow

import (
	"log/slog"
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// ParseContext is what a field parser may look at besides the raw answer.
type ParseContext struct {
	Key     string      // key of the field being answered
	Data    models.Data // data collected so far; a copy, never written back
	Options []string    // the field's suggested answers
	Now     time.Time
}

// ParserFunc converts a raw answer into a partial update. It must not modify
// pc.Data and returns nil or an empty map when the answer is unusable.
type ParserFunc func(input string, pc ParseContext) models.Data

var parsers = make(map[string]ParserFunc)

// RegisterParser associates a parser name with its implementation.
func RegisterParser(name string, fn ParserFunc) {
	parsers[name] = fn
}

// LookupParser retrieves the parser registered under name.
func LookupParser(name string) (ParserFunc, bool) {
	fn, ok := parsers[name]
	return fn, ok
}

// ApplyField runs the field's parser over input. A field without a parser stores the
// trimmed answer under its key.
func ApplyField(field models.FlowField, input string, data models.Data, now time.Time) models.Data {
	input = strings.TrimSpace(input)
	if field.Parser != "" {
		if fn, ok := LookupParser(field.Parser); ok {
			return fn(input, ParseContext{Key: field.Key, Data: data.Clone(), Options: field.Options, Now: now})
		}
		slog.Warn("ApplyField: no parser registered, storing raw text", "parser", field.Parser, "key", field.Key)
	}
	if input == "" {
		return nil
	}
	return models.Data{field.Key: input}
}

// Register built-in parsers
func init() {
	RegisterParser("text", parseText)
	RegisterParser("name", parseName)
	RegisterParser("time", parseTime)
	RegisterParser("timeofday", parseTimeOfDay)
	RegisterParser("frequency", parseFrequency)
	RegisterParser("date", parseDate)
	RegisterParser("priority", parsePriority)
	RegisterParser("category", parseCategory)
	RegisterParser("yesno", parseYesNo)
	RegisterParser("minutes", parseMinutes)
	RegisterParser("number", parseNumber)
	RegisterParser("list", parseList)
	RegisterParser("choice", parseChoice)
}
