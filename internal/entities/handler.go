package entities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

// kindDef describes what sets one entity kind apart. Hooks left nil fall back to
// the shared behavior in handler.
type kindDef struct {
	entity  models.Entity
	label   string // singular noun used in questions
	plural  string
	nameKey string   // data key holding the record name
	textKey string   // data key set by "change it to ..." when nothing else matches
	strip   []string // domain words dropped before extracting a name
	verbs   []flow.Verb

	// defaultEdit leaves the field picker to the engine's fixed fallback.
	defaultEdit bool
	// completeAll lets the synthetic "all" target complete every record.
	completeAll bool
	// latestFirst makes name lookups prefer the newest record, for log-like kinds.
	latestFirst bool

	fields  func(data models.Data) []models.FlowField
	parse   func(text string, now time.Time) models.Data
	update  func(value string, now time.Time) models.Data
	details func(d models.Data) []string

	title    func(d models.Data) string
	prepare  func(data models.Data, now time.Time) models.Data
	complete func(rec *models.Record, now time.Time) (msg string, changed bool)
	// confirmComplete phrases the confirmation card of a complete flow.
	confirmComplete func(name string, item models.Data) string
	// viewAll renders a record together with every record of the same name.
	viewAll func(rec models.Record, same []models.Record) string
}

// baseVerbs are supported by every record-backed kind.
var baseVerbs = []flow.Verb{
	flow.VerbParseUpdate,
	flow.VerbFindTarget,
	flow.VerbCreate,
	flow.VerbRemove,
	flow.VerbView,
	flow.VerbList,
	flow.VerbRestore,
}

// handler implements flow.Handler for one record-backed kind.
type handler struct {
	def     kindDef
	verbs   map[flow.Verb]bool
	records store.Records
	ids     flow.IDGenerator
	now     func() time.Time
}

// Compile-time check that handler implements flow.Handler.
var _ flow.Handler = (*handler)(nil)

func newHandler(def kindDef, records store.Records, cfg Opts) *handler {
	verbs := make(map[flow.Verb]bool)
	for _, v := range baseVerbs {
		verbs[v] = true
	}
	for _, v := range def.verbs {
		verbs[v] = true
	}
	if verbs[flow.VerbUpdate] && !def.defaultEdit {
		verbs[flow.VerbEditFields] = true
	}
	return &handler{
		def:     def,
		verbs:   verbs,
		records: records,
		ids:     cfg.IDs,
		now:     cfg.Clock,
	}
}

func (h *handler) Entity() models.Entity     { return h.def.entity }
func (h *handler) Label() string             { return h.def.label }
func (h *handler) Supports(v flow.Verb) bool { return h.verbs[v] }

// signIn is answered instead of any mutation when the user is anonymous.
func (h *handler) signIn() models.ActionResult {
	return models.ActionResult{Message: fmt.Sprintf("Please sign in to save your %s.", h.def.plural)}
}

func (h *handler) notFound() models.ActionResult {
	return models.ActionResult{Message: fmt.Sprintf("I couldn't find that %s anymore.", h.def.label)}
}

func (h *handler) ParseInput(text string, uc models.UserContext) models.Data {
	data := h.def.parse(text, h.now())
	if data == nil {
		data = models.Data{}
	}
	return data
}

// ParseUpdate reads "rename to X" style renames and, for everything else, the value
// after the last " to " (or the whole text) through the kind's update parser.
func (h *handler) ParseUpdate(text string, uc models.UserContext) models.Data {
	n := textutil.NormalizeText(text)
	value, hasTo := afterTo(text)
	if hasTo && (textutil.ContainsWord(n, "rename") || textutil.ContainsWord(n, "name") || textutil.ContainsWord(n, "title") || textutil.ContainsWord(n, "call it")) {
		name := strings.TrimSpace(strings.Trim(value, "\"'“”. "))
		if name == "" {
			return nil
		}
		return models.Data{h.def.nameKey: textutil.TitleCase(name)}
	}
	var out models.Data
	if h.def.update != nil {
		if hasTo {
			out = h.def.update(value, h.now())
		} else {
			out = h.def.update(text, h.now())
		}
	}
	if len(out) == 0 && hasTo && value != "" && h.def.textKey != "" {
		out = models.Data{h.def.textKey: value}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// afterTo returns the text following the last " to ".
func afterTo(text string) (string, bool) {
	idx := strings.LastIndex(strings.ToLower(text), " to ")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(text[idx+len(" to "):]), true
}

func (h *handler) CreateFields(data models.Data, uc models.UserContext) []models.FlowField {
	return h.def.fields(data)
}

func (h *handler) EditFields(target *models.TargetMatch, uc models.UserContext) []models.FlowField {
	if h.def.defaultEdit {
		return nil
	}
	var item models.Data
	if target != nil {
		item = target.Item
	}
	fields := h.def.fields(item.Clone())
	for i := range fields {
		fields[i].Optional = false
	}
	return fields
}

func (h *handler) Summary(action models.Action, data models.Data, target *models.TargetMatch) string {
	var item models.Data
	name := ""
	if target != nil {
		item = target.Item.Clone()
		name = target.Name
	}
	merged := item.Merge(data)
	label := h.def.label

	switch action {
	case models.ActionCreate:
		return fmt.Sprintf("Create %s %q%s?", label, h.title(merged), suffix(h.details(merged)))
	case models.ActionEdit:
		var parts []string
		if renamed := h.title(data); renamed != "" && renamed != name {
			parts = append(parts, fmt.Sprintf("new name %q", renamed))
		}
		parts = append(parts, h.details(merged)...)
		return fmt.Sprintf("Update %s %q%s?", label, name, suffix(parts))
	case models.ActionDelete:
		return fmt.Sprintf("Delete %s %q?", label, name)
	case models.ActionComplete:
		if target != nil && target.ID == models.AllTargetID {
			return fmt.Sprintf("Mark all of today's %s as done?", h.def.plural)
		}
		if h.def.confirmComplete != nil {
			return h.def.confirmComplete(name, item)
		}
		return fmt.Sprintf("Mark %s %q as done?", label, name)
	default:
		return fmt.Sprintf("%s %s %q?", textutil.TitleCase(string(action)), label, name)
	}
}

func suffix(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func (h *handler) details(d models.Data) []string {
	if h.def.details == nil {
		return nil
	}
	return h.def.details(d)
}

// title returns the record name carried by d.
func (h *handler) title(d models.Data) string {
	if h.def.title != nil {
		return h.def.title(d)
	}
	if v := d.String(h.def.nameKey); v != "" {
		return v
	}
	return d.String("name")
}

func (h *handler) ref(rec models.Record) *models.EntityRef {
	return &models.EntityRef{Type: rec.Kind, ID: rec.ID, Name: rec.Name, Data: rec.AsData()}
}

// FindTarget prefers an exact name, then a stored name containing the query, then a
// query containing the stored name. Within a tier the oldest record wins, or the
// newest for log-like kinds.
func (h *handler) FindTarget(ctx context.Context, name string, uc models.UserContext) (*models.TargetMatch, error) {
	queries := h.targetQueries(name)
	if len(queries) == 0 {
		return nil, nil
	}
	recs, err := h.records.ListRecords(ctx, h.def.entity, uc.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", h.def.plural, err)
	}
	if h.def.latestFirst {
		slices.Reverse(recs)
	}

	tiers := []func(stored, q string) bool{
		func(stored, q string) bool { return stored == q },
		func(stored, q string) bool { return strings.Contains(stored, q) },
		func(stored, q string) bool { return strings.Contains(q, stored) },
	}
	for _, match := range tiers {
		for _, q := range queries {
			for _, rec := range recs {
				for _, stored := range storedForms(rec.Name) {
					if match(stored, q) {
						slog.Debug("handler.FindTarget: matched", "entity", h.def.entity, "query", q, "id", rec.ID)
						return &models.TargetMatch{ID: rec.ID, Name: rec.Name, Item: rec.AsData()}, nil
					}
				}
			}
		}
	}
	return nil, nil
}

// storedForms returns the normalized stored name and, when different, the name
// without stop words, so "Walk All Dogs" still matches a query of "walk dogs".
func storedForms(name string) []string {
	stored := textutil.NormalizeText(name)
	if stored == "" {
		return nil
	}
	if bare := textutil.StripStopWords(stored); bare != "" && bare != stored {
		return []string{stored, bare}
	}
	return []string{stored}
}

// targetQueries returns the normalized query and, when different, the query with
// filler and domain words removed.
func (h *handler) targetQueries(name string) []string {
	q := textutil.NormalizeText(name)
	if q == "" {
		return nil
	}
	out := []string{q}
	if stripped, ok := textutil.ExtractName(name, h.def.strip); ok {
		if s := textutil.NormalizeText(stripped); s != q {
			out = append(out, s)
		}
	}
	return out
}

// owned loads a record of this kind belonging to the user.
func (h *handler) owned(ctx context.Context, id string, uc models.UserContext) (*models.Record, error) {
	rec, err := h.records.GetRecord(ctx, h.def.entity, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != uc.UserID {
		return nil, store.ErrNotFound
	}
	if rec.Data == nil {
		rec.Data = models.Data{}
	}
	return rec, nil
}

func (h *handler) Create(ctx context.Context, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	if uc.UserID == "" {
		return h.signIn(), nil
	}
	now := h.now()
	data = data.Clone()
	if h.def.prepare != nil {
		data = h.def.prepare(data, now)
	}
	rec := models.Record{
		ID:        h.ids.NewID(),
		Kind:      h.def.entity,
		UserID:    uc.UserID,
		Name:      h.title(data),
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rec.Name == "" {
		rec.Name = textutil.TitleCase(h.def.label)
	}
	if err := h.records.CreateRecord(ctx, rec); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to create %s: %w", h.def.label, err)
	}
	slog.Info("handler.Create: record created", "entity", h.def.entity, "id", rec.ID, "userID", uc.UserID)
	return models.ActionResult{
		Message: fmt.Sprintf("Created %s %q%s.", h.def.label, rec.Name, suffix(h.details(rec.Data))),
		Entity:  h.ref(rec),
	}, nil
}

func (h *handler) Update(ctx context.Context, target *models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	if !h.verbs[flow.VerbUpdate] || target == nil {
		return models.ActionResult{}, flow.ErrUnsupported
	}
	if uc.UserID == "" {
		return h.signIn(), nil
	}
	rec, err := h.owned(ctx, target.ID, uc)
	if errors.Is(err, store.ErrNotFound) {
		return h.notFound(), nil
	}
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to load %s: %w", h.def.label, err)
	}

	h.apply(rec, data)
	rec.UpdatedAt = h.now()
	if err := h.records.UpdateRecord(ctx, *rec); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to update %s: %w", h.def.label, err)
	}
	slog.Info("handler.Update: record updated", "entity", h.def.entity, "id", rec.ID, "fields", len(data))
	return models.ActionResult{
		Message: fmt.Sprintf("Updated %s %q%s.", h.def.label, rec.Name, suffix(h.details(rec.Data))),
		Entity:  h.ref(*rec),
	}, nil
}

// apply merges collected changes into rec. The generic "name" key renames the record.
func (h *handler) apply(rec *models.Record, data models.Data) {
	changes := data.Clone()
	delete(changes, "id")
	delete(changes, "created_at")
	if v := changes.String("name"); v != "" && h.def.nameKey != "name" {
		changes[h.def.nameKey] = v
		delete(changes, "name")
	}
	rec.Data = rec.Data.Merge(changes)
	if name := h.title(rec.Data); name != "" {
		rec.Name = name
	}
}

func (h *handler) Remove(ctx context.Context, target models.TargetMatch, uc models.UserContext) (models.ActionResult, error) {
	if uc.UserID == "" {
		return h.signIn(), nil
	}
	rec, err := h.owned(ctx, target.ID, uc)
	if errors.Is(err, store.ErrNotFound) {
		return h.notFound(), nil
	}
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to load %s: %w", h.def.label, err)
	}
	if err := h.records.DeleteRecord(ctx, h.def.entity, rec.ID); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to delete %s: %w", h.def.label, err)
	}
	slog.Info("handler.Remove: record deleted", "entity", h.def.entity, "id", rec.ID, "userID", uc.UserID)
	return models.ActionResult{
		Message: fmt.Sprintf("Deleted %s %q. Say \"undo\" to bring it back.", h.def.label, rec.Name),
		Deleted: &models.DeletedRef{Type: h.def.entity, Data: rec.AsData()},
	}, nil
}

// Restore recreates a record from the payload Remove handed out.
func (h *handler) Restore(ctx context.Context, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	if uc.UserID == "" {
		return h.signIn(), nil
	}
	now := h.now()
	rec := models.Record{
		ID:        data.String("id"),
		Kind:      h.def.entity,
		UserID:    uc.UserID,
		Name:      data.String("name"),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rec.ID == "" {
		rec.ID = h.ids.NewID()
	}
	if created, err := time.Parse(time.RFC3339, data.String("created_at")); err == nil {
		rec.CreatedAt = created
	}
	rec.Data = data.Clone()
	delete(rec.Data, "id")
	delete(rec.Data, "created_at")
	if h.def.nameKey != "name" {
		delete(rec.Data, "name")
	}
	if rec.Name == "" {
		rec.Name = h.title(rec.Data)
	}

	if err := h.records.CreateRecord(ctx, rec); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to restore %s: %w", h.def.label, err)
	}
	slog.Info("handler.Restore: record restored", "entity", h.def.entity, "id", rec.ID, "userID", uc.UserID)
	return models.ActionResult{
		Message: fmt.Sprintf("Restored %s %q.", h.def.label, rec.Name),
		Entity:  h.ref(rec),
	}, nil
}

func (h *handler) Complete(ctx context.Context, target models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	if h.def.complete == nil {
		return models.ActionResult{}, flow.ErrUnsupported
	}
	if uc.UserID == "" {
		return h.signIn(), nil
	}
	if target.ID == models.AllTargetID && h.def.completeAll {
		return h.completeEverything(ctx, uc)
	}

	rec, err := h.owned(ctx, target.ID, uc)
	if errors.Is(err, store.ErrNotFound) {
		return h.notFound(), nil
	}
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to load %s: %w", h.def.label, err)
	}

	now := h.now()
	msg, changed := h.def.complete(rec, now)
	if changed {
		rec.UpdatedAt = now
		if err := h.records.UpdateRecord(ctx, *rec); err != nil {
			return models.ActionResult{}, fmt.Errorf("failed to complete %s: %w", h.def.label, err)
		}
		slog.Info("handler.Complete: record completed", "entity", h.def.entity, "id", rec.ID)
	}
	return models.ActionResult{Message: msg, Entity: h.ref(*rec)}, nil
}

func (h *handler) completeEverything(ctx context.Context, uc models.UserContext) (models.ActionResult, error) {
	recs, err := h.records.ListRecords(ctx, h.def.entity, uc.UserID)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to list %s: %w", h.def.plural, err)
	}
	if len(recs) == 0 {
		return models.ActionResult{Message: h.emptyMessage()}, nil
	}

	now := h.now()
	var done []string
	for i := range recs {
		rec := &recs[i]
		if rec.Data == nil {
			rec.Data = models.Data{}
		}
		if _, changed := h.def.complete(rec, now); !changed {
			continue
		}
		rec.UpdatedAt = now
		if err := h.records.UpdateRecord(ctx, *rec); err != nil {
			return models.ActionResult{}, fmt.Errorf("failed to complete %s %q: %w", h.def.label, rec.Name, err)
		}
		done = append(done, rec.Name)
	}
	slog.Info("handler.completeEverything: records completed", "entity", h.def.entity, "count", len(done), "userID", uc.UserID)
	if len(done) == 0 {
		return models.ActionResult{Message: fmt.Sprintf("All your %s are already done for today.", h.def.plural)}, nil
	}
	noun := h.def.plural
	if len(done) == 1 {
		noun = h.def.label
	}
	return models.ActionResult{Message: fmt.Sprintf("Completed %d %s for today: %s.", len(done), noun, strings.Join(done, ", "))}, nil
}

func (h *handler) Snooze(ctx context.Context, target models.TargetMatch, minutes int, uc models.UserContext) (models.ActionResult, error) {
	if !h.verbs[flow.VerbSnooze] {
		return models.ActionResult{}, flow.ErrUnsupported
	}
	if uc.UserID == "" {
		return h.signIn(), nil
	}
	rec, err := h.owned(ctx, target.ID, uc)
	if errors.Is(err, store.ErrNotFound) {
		return h.notFound(), nil
	}
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to load %s: %w", h.def.label, err)
	}

	now := h.now()
	until := now.Add(time.Duration(minutes) * time.Minute)
	rec.Data["snoozedUntil"] = until.UTC().Format(time.RFC3339)
	rec.UpdatedAt = now
	if err := h.records.UpdateRecord(ctx, *rec); err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to snooze %s: %w", h.def.label, err)
	}
	slog.Info("handler.Snooze: record snoozed", "entity", h.def.entity, "id", rec.ID, "minutes", minutes)
	return models.ActionResult{
		Message: fmt.Sprintf("Snoozed %q for %d minutes. I'll remind you again at %s.", rec.Name, minutes, textutil.FormatClock(until.Hour(), until.Minute())),
		Entity:  h.ref(*rec),
	}, nil
}

// View shows one record with follow-up quick replies, or the whole list.
func (h *handler) View(ctx context.Context, target *models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	if target == nil {
		return h.List(ctx, uc)
	}
	rec, err := h.owned(ctx, target.ID, uc)
	if errors.Is(err, store.ErrNotFound) {
		return h.notFound(), nil
	}
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to load %s: %w", h.def.label, err)
	}

	msg := fmt.Sprintf("%s %q%s.", textutil.TitleCase(h.def.label), rec.Name, suffix(h.details(rec.Data)))
	if h.def.viewAll != nil {
		all, err := h.records.ListRecords(ctx, h.def.entity, uc.UserID)
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("failed to list %s: %w", h.def.plural, err)
		}
		var same []models.Record
		for _, r := range all {
			if textutil.NormalizeText(r.Name) == textutil.NormalizeText(rec.Name) {
				same = append(same, r)
			}
		}
		msg = h.def.viewAll(*rec, same)
	}
	return models.ActionResult{Message: msg, Actions: h.recordActions(rec.Name), Entity: h.ref(*rec)}, nil
}

// recordActions offers the verbs that apply to a shown record.
func (h *handler) recordActions(name string) []models.ChatAction {
	var actions []models.ChatAction
	add := func(label, verb string, variant models.ActionVariant) {
		actions = append(actions, models.ChatAction{
			Label:   label,
			Value:   fmt.Sprintf("%s %s %s", verb, h.def.label, name),
			Kind:    models.ActionKindReply,
			Variant: variant,
		})
	}
	if h.def.complete != nil {
		add("Complete", "complete", models.VariantPrimary)
	}
	if h.verbs[flow.VerbUpdate] {
		add("Edit", "edit", models.VariantSecondary)
	}
	add("Delete", "delete", models.VariantDanger)
	return actions
}

func (h *handler) emptyMessage() string {
	return fmt.Sprintf("You don't have any %s yet. Say \"create %s\" to add one.", h.def.plural, h.def.label)
}

func (h *handler) List(ctx context.Context, uc models.UserContext) (models.ActionResult, error) {
	recs, err := h.records.ListRecords(ctx, h.def.entity, uc.UserID)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to list %s: %w", h.def.plural, err)
	}
	if len(recs) == 0 {
		return models.ActionResult{Message: h.emptyMessage()}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s:", h.def.plural)
	for i, rec := range recs {
		fmt.Fprintf(&b, "\n%d. %s%s", i+1, rec.Name, suffix(h.details(rec.Data)))
	}
	return models.ActionResult{Message: b.String()}, nil
}
