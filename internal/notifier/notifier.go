// Package notifier turns due reminders into outgoing chat messages.
//
// Sweep runs once a minute from the scheduler and queues each due reminder in the
// store's outbox. The outbox sender then delivers queued messages through a
// messaging.Service, retrying failures and surviving restarts.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/entities"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/messaging"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
)

// OutboxKind tags reminder messages in the outbox.
const OutboxKind = "reminder"

// Option configures a ReminderNotifier.
type Option func(*ReminderNotifier)

// WithLocation sets the time zone reminder times are read in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(n *ReminderNotifier) { n.loc = loc }
}

// ReminderNotifier finds reminders due in the current minute.
type ReminderNotifier struct {
	records store.Records
	outbox  store.OutboxRepo
	loc     *time.Location
}

// NewReminderNotifier creates a notifier reading reminders from records and queueing into outbox.
func NewReminderNotifier(records store.Records, outbox store.OutboxRepo, opts ...Option) *ReminderNotifier {
	n := &ReminderNotifier{records: records, outbox: outbox, loc: time.Local}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Sweep queues every reminder due at now's minute and returns how many were queued.
// Running it twice in the same minute queues nothing new.
func (n *ReminderNotifier) Sweep(ctx context.Context, now time.Time) (int, error) {
	now = now.In(n.loc).Truncate(time.Minute)
	recs, err := n.records.ListRecordsByKind(ctx, models.EntityReminder)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminders: %w", err)
	}

	queued := 0
	for _, rec := range recs {
		if rec.UserID == "" {
			continue
		}
		snoozed, due := n.due(rec, now)
		if !due {
			continue
		}
		key := fmt.Sprintf("reminder:%s:%s", rec.ID, now.Format("200601021504"))
		id, created, err := n.outbox.EnqueueOutboxMessage(rec.UserID, OutboxKind, Message(rec), key)
		if err != nil {
			slog.Error("ReminderNotifier.Sweep: failed to queue reminder", "id", rec.ID, "error", err)
			continue
		}
		if !created {
			continue
		}
		queued++
		slog.Info("ReminderNotifier.Sweep: reminder queued", "id", rec.ID, "userID", rec.UserID, "outboxID", id, "snoozed", snoozed)

		if err := n.settle(ctx, rec, snoozed); err != nil {
			slog.Error("ReminderNotifier.Sweep: failed to update reminder", "id", rec.ID, "error", err)
		}
	}
	return queued, nil
}

// RecoverMissedSnoozes queues reminders whose snooze ran out before now's minute,
// typically while the process was down. It returns how many were queued.
func (n *ReminderNotifier) RecoverMissedSnoozes(ctx context.Context, now time.Time) (int, error) {
	now = now.In(n.loc).Truncate(time.Minute)
	recs, err := n.records.ListRecordsByKind(ctx, models.EntityReminder)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminders: %w", err)
	}

	queued := 0
	for _, rec := range recs {
		s := rec.Data.String("snoozedUntil")
		if rec.UserID == "" || s == "" {
			continue
		}
		until, err := time.Parse(time.RFC3339, s)
		if err != nil || !until.In(n.loc).Truncate(time.Minute).Before(now) {
			continue
		}
		key := fmt.Sprintf("reminder:%s:%s", rec.ID, until.In(n.loc).Format("200601021504"))
		if _, created, err := n.outbox.EnqueueOutboxMessage(rec.UserID, OutboxKind, Message(rec), key); err != nil {
			slog.Error("ReminderNotifier.RecoverMissedSnoozes: failed to queue reminder", "id", rec.ID, "error", err)
			continue
		} else if created {
			queued++
		}
		if err := n.settle(ctx, rec, true); err != nil {
			slog.Error("ReminderNotifier.RecoverMissedSnoozes: failed to update reminder", "id", rec.ID, "error", err)
		}
	}
	if queued > 0 {
		slog.Info("ReminderNotifier.RecoverMissedSnoozes: queued missed reminders", "count", queued)
	}
	return queued, nil
}

// due reports whether rec fires at now, and whether it does so because a snooze ran out.
func (n *ReminderNotifier) due(rec models.Record, now time.Time) (snoozed bool, due bool) {
	if s := rec.Data.String("snoozedUntil"); s != "" {
		if until, err := time.Parse(time.RFC3339, s); err == nil && until.In(n.loc).Truncate(time.Minute).Equal(now) {
			return true, true
		}
	}
	if rec.Data.String("time24") != now.Format("15:04") {
		return false, false
	}
	if rec.Data.String("frequency") == entities.FrequencyOnce {
		fired, _ := rec.Data.Bool("fired")
		return false, !fired
	}
	days := rec.Data.Ints("days")
	if len(days) == 0 {
		return false, true
	}
	return false, slices.Contains(days, int(now.Weekday()))
}

// settle clears an expired snooze and retires a one-off reminder.
func (n *ReminderNotifier) settle(ctx context.Context, rec models.Record, snoozed bool) error {
	changed := false
	if snoozed {
		delete(rec.Data, "snoozedUntil")
		changed = true
	}
	if !snoozed && rec.Data.String("frequency") == entities.FrequencyOnce {
		rec.Data["fired"] = true
		changed = true
	}
	if !changed {
		return nil
	}
	return n.records.UpdateRecord(ctx, rec)
}

// Message is the chat text sent for rec.
func Message(rec models.Record) string {
	return "Reminder: " + rec.Name
}

// SendFunc delivers outbox messages through svc.
func SendFunc(svc messaging.Service) store.OutboxSendFunc {
	return func(ctx context.Context, msg store.OutboxMessage) error {
		return svc.SendMessage(ctx, msg.Recipient, msg.Body)
	}
}
