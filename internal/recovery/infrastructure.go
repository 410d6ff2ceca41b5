package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/notifier"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
)

// OutboxRecovery requeues outbox messages left in the sending state by a crash.
func OutboxRecovery(sender *store.OutboxSender) Recoverable {
	return RecoverFunc(func(ctx context.Context) error {
		if err := sender.RecoverStaleMessages(); err != nil {
			return fmt.Errorf("failed to requeue stale outbox messages: %w", err)
		}
		return nil
	})
}

// ReminderRecovery queues reminders whose snooze expired while the process was down.
func ReminderRecovery(n *notifier.ReminderNotifier, now func() time.Time) Recoverable {
	return RecoverFunc(func(ctx context.Context) error {
		if _, err := n.RecoverMissedSnoozes(ctx, now()); err != nil {
			return fmt.Errorf("failed to recover snoozed reminders: %w", err)
		}
		return nil
	})
}
