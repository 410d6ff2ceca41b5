package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/api"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/app"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/config"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/lockfile"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/messaging"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/notifier"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/recovery"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/scheduler"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/twiliowhatsapp"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/whatsapp"
)

// run wires every component and blocks until ctx is cancelled or the API fails.
func run(ctx context.Context, cfg *config.Config) error {
	lock, err := lockfile.AcquireLock(cfg.StateDir, "lifetracker")
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	conv := app.NewConversation(st, cfg)

	svc, apiOpts, cleanup, err := startTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	apiOpts = append(apiOpts, api.WithAddr(cfg.APIAddr))

	if svc != nil {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start messaging service: %w", err)
		}
		defer svc.Stop()
		messaging.NewChatBridge(svc, conv, st).Start(ctx)

		sched, err := startReminders(ctx, cfg, st, svc)
		if err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	} else {
		slog.Info("run: no chat transport configured, reminders will not be delivered")
	}

	return api.NewServer(conv, apiOpts...).Run(ctx)
}

// startTransport connects the configured chat transport. It returns a nil service
// for the "none" transport.
func startTransport(ctx context.Context, cfg *config.Config) (messaging.Service, []api.Option, func(), error) {
	noop := func() {}
	switch cfg.Transport {
	case config.TransportWhatsApp:
		client, err := whatsapp.NewClient(ctx, buildWhatsAppOptions(cfg)...)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("failed to start WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil, client.Disconnect, nil

	case config.TransportTwilio:
		client, err := twiliowhatsapp.NewClient(
			twiliowhatsapp.WithAccountSID(cfg.Twilio.AccountSID),
			twiliowhatsapp.WithAuthToken(cfg.Twilio.AuthToken),
			twiliowhatsapp.WithFrom(cfg.Twilio.FromNumber),
		)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		var opts []messaging.TwilioOption
		if cfg.Twilio.WebhookURL != "" {
			opts = append(opts, messaging.WithSignatureCheck(twiliowhatsapp.NewSignatureValidator(cfg.Twilio.AuthToken), cfg.Twilio.WebhookURL))
		} else {
			slog.Warn("startTransport: TWILIO_WEBHOOK_URL not set, webhook signatures are not checked")
		}
		svc := messaging.NewTwilioService(client, opts...)
		return svc, []api.Option{api.WithTwilioWebhook(svc.WebhookHandler)}, noop, nil

	default:
		return nil, nil, noop, nil
	}
}

func buildWhatsAppOptions(cfg *config.Config) []whatsapp.Option {
	var opts []whatsapp.Option
	if cfg.WhatsApp.DSN != "" {
		opts = append(opts, whatsapp.WithDBDSN(cfg.WhatsApp.DSN))
	}
	if cfg.WhatsApp.QROutput != "" {
		opts = append(opts, whatsapp.WithQRCodeOutput(cfg.WhatsApp.QROutput))
	}
	if cfg.WhatsApp.NumericCode {
		opts = append(opts, whatsapp.WithNumericCode())
	}
	return opts
}

// startReminders schedules the reminder sweep and starts the outbox sender that
// delivers what it queues.
func startReminders(ctx context.Context, cfg *config.Config, st store.Store, svc messaging.Service) (*scheduler.Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	sender := store.NewOutboxSender(st, notifier.SendFunc(svc), cfg.Reminders.OutboxPoll)
	n := notifier.NewReminderNotifier(st, st, notifier.WithLocation(loc))

	rm := recovery.NewRecoveryManager()
	rm.RegisterRecoverable("outbox", recovery.OutboxRecovery(sender))
	rm.RegisterRecoverable("reminders", recovery.ReminderRecovery(n, time.Now))
	if err := rm.RecoverAll(ctx); err != nil {
		slog.Error("startReminders: startup recovery incomplete", "error", err)
	}
	go sender.Run(ctx)

	sched := scheduler.NewScheduler(scheduler.WithLocation(loc))
	if _, err := sched.AddJob("reminders", cfg.Reminders.Cron, func() {
		if _, err := n.Sweep(ctx, time.Now()); err != nil {
			slog.Error("startReminders: reminder sweep failed", "error", err)
		}
	}); err != nil {
		sched.Stop(ctx)
		return nil, err
	}
	return sched, nil
}
