package entities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

// Settings defaults for users who never changed anything.
const (
	DefaultTheme         = "system"
	DefaultNotifications = true
)

// settingsHandler manages the per-user settings singleton. It has no targets: edits
// apply to the caller's own record, created on first use.
type settingsHandler struct {
	records store.Records
	now     func() time.Time
}

// Compile-time check that settingsHandler implements flow.Handler.
var _ flow.Handler = (*settingsHandler)(nil)

func newSettingsHandler(records store.Records, cfg Opts) *settingsHandler {
	return &settingsHandler{records: records, now: cfg.Clock}
}

// SettingsID returns the record ID of a user's settings.
func SettingsID(userID string) string {
	return "settings-" + userID
}

func (h *settingsHandler) Entity() models.Entity { return models.EntitySettings }
func (h *settingsHandler) Label() string         { return "setting" }

func (h *settingsHandler) Supports(v flow.Verb) bool {
	return v == flow.VerbUpdate || v == flow.VerbView || v == flow.VerbParseUpdate
}

func (h *settingsHandler) ParseInput(text string, uc models.UserContext) models.Data {
	n := textutil.NormalizeText(text)
	data := models.Data{}
	switch {
	case textutil.ContainsWord(n, "dark"):
		data["theme"] = "dark"
	case textutil.ContainsWord(n, "light"):
		data["theme"] = "light"
	case textutil.ContainsWord(n, "system theme"), textutil.ContainsWord(n, "system mode"):
		data["theme"] = "system"
	}
	if textutil.ContainsWord(n, "notifications") || textutil.ContainsWord(n, "notification") {
		switch {
		case textutil.ContainsWord(n, "off"), textutil.ContainsWord(n, "disable"), textutil.ContainsWord(n, "mute"):
			data["notifications"] = false
		case textutil.ContainsWord(n, "on"), textutil.ContainsWord(n, "enable"), textutil.ContainsWord(n, "unmute"):
			data["notifications"] = true
		}
	}
	return data
}

func (h *settingsHandler) ParseUpdate(text string, uc models.UserContext) models.Data {
	data := h.ParseInput(text, uc)
	if len(data) == 0 {
		return nil
	}
	return data
}

func (h *settingsHandler) CreateFields(data models.Data, uc models.UserContext) []models.FlowField {
	return []models.FlowField{
		{Key: "theme", Label: "Theme", Question: "Which theme would you like?", Options: []string{"Dark", "Light", "System"}, Parser: "choice"},
		{Key: "notifications", Label: "Notifications", Question: "Should I send you notifications?", Optional: true, Options: []string{"Yes", "No"}, Parser: "yesno"},
	}
}

func (h *settingsHandler) EditFields(target *models.TargetMatch, uc models.UserContext) []models.FlowField {
	return nil
}

func describeSettings(d models.Data) string {
	var parts []string
	if theme := d.String("theme"); theme != "" {
		parts = append(parts, "theme "+theme)
	}
	if on, ok := d.Bool("notifications"); ok {
		state := "off"
		if on {
			state = "on"
		}
		parts = append(parts, "notifications "+state)
	}
	return strings.Join(parts, ", ")
}

func (h *settingsHandler) Summary(action models.Action, data models.Data, target *models.TargetMatch) string {
	if desc := describeSettings(data); desc != "" {
		return fmt.Sprintf("Update your settings (%s)?", desc)
	}
	return "Update your settings?"
}

func (h *settingsHandler) FindTarget(ctx context.Context, name string, uc models.UserContext) (*models.TargetMatch, error) {
	return nil, nil
}

// load returns the user's settings record, or a fresh one holding the defaults.
func (h *settingsHandler) load(ctx context.Context, userID string) (models.Record, bool, error) {
	rec, err := h.records.GetRecord(ctx, models.EntitySettings, SettingsID(userID))
	if errors.Is(err, store.ErrNotFound) {
		now := h.now()
		return models.Record{
			ID:        SettingsID(userID),
			Kind:      models.EntitySettings,
			UserID:    userID,
			Name:      "Settings",
			Data:      models.Data{"theme": DefaultTheme, "notifications": DefaultNotifications},
			CreatedAt: now,
			UpdatedAt: now,
		}, false, nil
	}
	if err != nil {
		return models.Record{}, false, fmt.Errorf("failed to load settings: %w", err)
	}
	if rec.Data == nil {
		rec.Data = models.Data{}
	}
	return *rec, true, nil
}

func (h *settingsHandler) Update(ctx context.Context, target *models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	if uc.UserID == "" {
		return models.ActionResult{Message: "Please sign in to save your settings."}, nil
	}
	rec, exists, err := h.load(ctx, uc.UserID)
	if err != nil {
		return models.ActionResult{}, err
	}
	rec.Data = rec.Data.Merge(data)
	rec.UpdatedAt = h.now()
	if exists {
		err = h.records.UpdateRecord(ctx, rec)
	} else {
		err = h.records.CreateRecord(ctx, rec)
	}
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to save settings: %w", err)
	}
	slog.Info("settingsHandler.Update: settings saved", "userID", uc.UserID, "fields", len(data))
	return models.ActionResult{
		Message: fmt.Sprintf("Settings updated: %s.", describeSettings(rec.Data)),
		Entity:  &models.EntityRef{Type: models.EntitySettings, ID: rec.ID, Name: rec.Name},
	}, nil
}

func (h *settingsHandler) View(ctx context.Context, target *models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	rec, _, err := h.load(ctx, uc.UserID)
	if err != nil {
		return models.ActionResult{}, err
	}
	return models.ActionResult{
		Message: fmt.Sprintf("Your settings: %s.", describeSettings(rec.Data)),
		Actions: []models.ChatAction{
			{Label: "Dark mode", Value: "dark mode", Kind: models.ActionKindReply, Variant: models.VariantSecondary},
			{Label: "Light mode", Value: "light mode", Kind: models.ActionKindReply, Variant: models.VariantSecondary},
		},
	}, nil
}

func (h *settingsHandler) Create(ctx context.Context, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	return models.ActionResult{}, flow.ErrUnsupported
}

func (h *settingsHandler) Remove(ctx context.Context, target models.TargetMatch, uc models.UserContext) (models.ActionResult, error) {
	return models.ActionResult{}, flow.ErrUnsupported
}

func (h *settingsHandler) Complete(ctx context.Context, target models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	return models.ActionResult{}, flow.ErrUnsupported
}

func (h *settingsHandler) List(ctx context.Context, uc models.UserContext) (models.ActionResult, error) {
	return h.View(ctx, nil, nil, uc)
}

func (h *settingsHandler) Snooze(ctx context.Context, target models.TargetMatch, minutes int, uc models.UserContext) (models.ActionResult, error) {
	return models.ActionResult{}, flow.ErrUnsupported
}

func (h *settingsHandler) Restore(ctx context.Context, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	return models.ActionResult{}, flow.ErrUnsupported
}
