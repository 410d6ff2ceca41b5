package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/export"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/messaging"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long:  "Reads one message per line. Numbered quick replies can be chosen by typing their number. Type \"quit\" or send EOF to leave.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEnv(func(e *env) error {
				return runChat(cmd, e, opts)
			})
		},
	}
}

func runChat(cmd *cobra.Command, e *env, opts *rootOptions) error {
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	sessionID, uc := opts.session(), opts.user()
	var offered []string

	fmt.Fprintf(out, "Chatting as %q in session %q. Type \"quit\" to leave.\n", uc.UserID, sessionID)
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		text := strings.TrimSpace(in.Text())
		switch strings.ToLower(text) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}
		text = messaging.ResolveChoice(offered, text)

		msgs, err := e.conv.Process(cmd.Context(), sessionID, uc, text)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		offered = messaging.QuickReplyValues(msgs)
		fmt.Fprintln(out, messaging.RenderText(msgs))
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the session transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEnv(func(e *env) error {
				msgs, err := e.conv.History(cmd.Context(), opts.session(), limit)
				if err != nil {
					return err
				}
				printHistory(cmd.OutOrStdout(), msgs)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of most recent messages to show")
	return cmd
}

func printHistory(w io.Writer, msgs []models.ChatMessage) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, m := range msgs {
		who := "you"
		if m.Role == models.RoleAssistant {
			who = "bot"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), who, m.Text)
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the session's pending flow, memory and transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEnv(func(e *env) error {
				if err := e.conv.Reset(cmd.Context(), opts.session()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %q reset.\n", opts.session())
				return nil
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the user's metrics to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEnv(func(e *env) error {
				if opts.userID == "" {
					return fmt.Errorf("export needs a user; pass --user")
				}
				if dir == "" {
					dir = e.cfg.Export.Dir
				}
				res, err := export.NewCSVExporter(e.store, dir).ExportMetrics(cmd.Context(), opts.user())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory to write to (defaults to the configured export dir)")
	return cmd
}
