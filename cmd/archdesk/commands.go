package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/archdesk/archdesk/internal/action"
	"github.com/archdesk/archdesk/internal/config"
	"github.com/archdesk/archdesk/internal/orchestrator"
	"github.com/archdesk/archdesk/internal/provider"
	"github.com/archdesk/archdesk/internal/scheduler"
	"github.com/archdesk/archdesk/internal/session"
	"github.com/archdesk/archdesk/internal/tools"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return chatLoop(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}

var autoApprove bool

var askCmd = &cobra.Command{
	Use:   "ask [request]",
	Short: "Send one request and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			out := cmd.OutOrStdout()
			resp, err := a.runner.Process(ctx, sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printResponse(out, resp)
			if !resp.HasPending() {
				return exitOnError(resp)
			}
			if !autoApprove {
				fmt.Fprintln(out, "Nothing was run. Re-run with --yes to approve, or use chat to pick actions.")
				return nil
			}
			resp, err = a.runner.Resolve(ctx, sessionID, action.ApproveAll(resp.Actions))
			if err != nil {
				return err
			}
			printResponse(out, resp)
			return exitOnError(resp)
		})
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the assistant can use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(_ context.Context, a *app) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tAPPROVAL\tDESCRIPTION")
			for _, def := range a.registry.All() {
				approval := "auto"
				switch {
				case def.Destructive:
					approval = "destructive"
				case def.RequiresApproval:
					approval = "required"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.Name, def.Category, approval, def.Description)
			}
			return w.Flush()
		})
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and clean up stored conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored session ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			ids, err := a.sessions.List(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tTURNS\tUPDATED\tLAST REQUEST")
			for _, id := range ids {
				sess, err := a.sessions.Load(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", id, len(sess.Turns),
					sess.UpdatedAt.Format("2006-01-02 15:04"), tools.Clip(sess.LastText(provider.RoleUser), 60))
			}
			return w.Flush()
		})
	},
}

var pruneMaxAge string

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions idle for longer than --max-age",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			maxAge := a.cfg.Scheduler.SessionMaxAge
			if pruneMaxAge != "" {
				maxAge = pruneMaxAge
			}
			n, err := scheduler.PruneSessions(a.sessions, config.Duration(maxAge))(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d session(s).\n", n)
			return nil
		})
	},
}

var historyLimit int

var sessionsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent action status changes for --session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			entries, err := a.actionLog.Recent(ctx, sessionID, historyLimit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTOOL\tSTATUS\tPLAN")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.RecordedAt.Format("2006-01-02 15:04:05"), e.ToolName, e.Status, e.PlanID)
			}
			return w.Flush()
		})
	},
}

var exportPath string

var sessionsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a stored session as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			sess, err := a.sessions.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if exportPath == "" || exportPath == "-" {
				return session.WriteYAML(cmd.OutOrStdout(), sess)
			}
			f, err := os.Create(exportPath)
			if err != nil {
				return err
			}
			if err := session.WriteYAML(f, sess); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		})
	},
}

var sessionsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a session exported as YAML into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			sess, err := session.ReadYAML(f)
			if err != nil {
				return err
			}
			if err := a.sessions.Save(ctx, sess); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported session %s (%d turns).\n", sess.ID, len(sess.Turns))
			return nil
		})
	},
}

func init() {
	askCmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "approve every proposed action")
	sessionsPruneCmd.Flags().StringVar(&pruneMaxAge, "max-age", "", "idle time before a session is deleted (default from config)")
	sessionsHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
	sessionsExportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "file to write (default stdout)")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsPruneCmd, sessionsHistoryCmd, sessionsExportCmd, sessionsImportCmd)
}

func exitOnError(resp orchestrator.Response) error {
	if resp.Type == orchestrator.TypeError {
		return errors.New(resp.Error)
	}
	return nil
}

func printResponse(w io.Writer, resp orchestrator.Response) {
	switch resp.Type {
	case orchestrator.TypeError:
		fmt.Fprintf(w, "error: %s\n", resp.Error)
	case orchestrator.TypeActions:
		fmt.Fprintln(w, resp.Message)
		for i, p := range resp.Actions {
			fmt.Fprintf(w, "  [%d] %s %s%s\n", i+1, p.ToolName, formatInput(p.Input), planFlags(p))
		}
	default:
		fmt.Fprintln(w, resp.TextResponse)
	}
}

func planFlags(p action.Plan) string {
	switch {
	case p.Status != action.StatusPending:
		return " (" + string(p.Status) + ")"
	case p.Destructive:
		return " (destructive)"
	}
	return ""
}

func formatInput(in map[string]any) string {
	if len(in) == 0 {
		return ""
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, in[k]))
	}
	return strings.Join(parts, " ")
}

// chatLoop reads requests line by line. When a batch needs approval the user
// answers with "y" (all), "n" (none) or the numbers to approve.
func chatLoop(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Archdesk ready. Type /help for commands, /quit to leave.")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, "/context  show what the assistant sees\n/clear    forget cached classifications\n/quit     leave")
			continue
		case "/context":
			fmt.Fprintln(out, a.appContext.ContextForAI())
			continue
		case "/clear":
			if err := a.classifier.ClearCache(ctx); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			continue
		}

		resp, err := a.runner.Process(ctx, sessionID, text)
		if err != nil {
			return err
		}
		printResponse(out, resp)

		for resp.HasPending() {
			fmt.Fprint(out, "Approve? [y/n/numbers] ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			plans := applyAnswer(resp.Actions, scanner.Text())
			resp, err = a.runner.Resolve(ctx, sessionID, plans)
			if err != nil {
				return err
			}
			printResponse(out, resp)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// applyAnswer turns an approval answer into resolved plans. Numbers are
// 1-based positions; unlisted plans are rejected.
func applyAnswer(plans []action.Plan, answer string) []action.Plan {
	answer = strings.ToLower(strings.TrimSpace(answer))
	switch answer {
	case "y", "yes", "a", "all":
		return action.ApproveAll(plans)
	case "", "n", "no", "none":
		return rejectPending(plans)
	}

	chosen := map[int]bool{}
	for _, f := range strings.FieldsFunc(answer, func(r rune) bool { return r == ',' || r == ' ' }) {
		var n int
		if _, err := fmt.Sscanf(f, "%d", &n); err == nil {
			chosen[n] = true
		}
	}
	for i, p := range plans {
		if chosen[i+1] {
			plans = action.Approve(plans, p.ID)
		}
	}
	return rejectPending(plans)
}

func rejectPending(plans []action.Plan) []action.Plan {
	for _, p := range action.Pending(plans) {
		plans = action.Reject(plans, p.ID)
	}
	return plans
}
