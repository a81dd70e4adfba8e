package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/theo/internal/analytics"
	"github.com/user/theo/internal/collection"
	"github.com/user/theo/internal/config"
	"github.com/user/theo/internal/intake"
	"github.com/user/theo/internal/types"
	"github.com/user/theo/internal/workspace"
)

func init() {
	rootCmd.AddCommand(eventCmd, ideaCmd, messageCmd, contactCmd)

	eventCmd.AddCommand(eventAddCmd, listCommand(types.KindEvent, printEvents), removeCommand(types.KindEvent))
	eventAddCmd.Flags().String("title", "", "event title (required)")
	eventAddCmd.Flags().String("date", "", "date as YYYY-MM-DD")
	eventAddCmd.Flags().String("time", "", "time of day")
	eventAddCmd.Flags().String("theme", "", "theme label")
	eventAddCmd.Flags().String("notes", "", "free-form notes")
	_ = eventAddCmd.MarkFlagRequired("title")

	ideaCmd.AddCommand(ideaAddCmd, listCommand(types.KindIdea, printIdeas), removeCommand(types.KindIdea))
	ideaAddCmd.Flags().String("title", "", "idea title (required)")
	ideaAddCmd.Flags().String("priority", "", "low, medium or high")
	ideaAddCmd.Flags().String("description", "", "longer description")
	_ = ideaAddCmd.MarkFlagRequired("title")

	messageCmd.AddCommand(messageAddCmd, listCommand(types.KindMessage, printMessages), removeCommand(types.KindMessage))

	contactCmd.AddCommand(contactAddCmd, listCommand(types.KindContact, printContacts), removeCommand(types.KindContact))
	contactAddCmd.Flags().String("phone", "", "phone number (required)")
	contactAddCmd.Flags().String("profile", "", "profile label")
	contactAddCmd.Flags().String("notes", "", "free-form notes")
	_ = contactAddCmd.MarkFlagRequired("phone")
}

var eventCmd = &cobra.Command{Use: "event", Short: "Manage events"}
var ideaCmd = &cobra.Command{Use: "idea", Short: "Manage ideas"}
var messageCmd = &cobra.Command{Use: "message", Short: "Manage logged promo messages"}
var contactCmd = &cobra.Command{Use: "contact", Short: "Manage contact profiles"}

var eventAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an event",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		form := intake.EventForm{}
		form.Title, _ = cmd.Flags().GetString("title")
		form.Date, _ = cmd.Flags().GetString("date")
		form.Time, _ = cmd.Flags().GetString("time")
		form.Theme, _ = cmd.Flags().GetString("theme")
		form.Notes, _ = cmd.Flags().GetString("notes")
		return withWorkspace(cmd, func(ctx context.Context, _ *config.Config, ws *workspace.Workspace) error {
			ev, err := ws.AddEvent(ctx, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Event %s added.\n", ev.ID)
			return nil
		})
	},
}

var ideaAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an idea",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		form := intake.IdeaForm{}
		form.Title, _ = cmd.Flags().GetString("title")
		form.Priority, _ = cmd.Flags().GetString("priority")
		form.Description, _ = cmd.Flags().GetString("description")
		return withWorkspace(cmd, func(ctx context.Context, _ *config.Config, ws *workspace.Workspace) error {
			idea, err := ws.AddIdea(ctx, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Idea %s added.\n", idea.ID)
			return nil
		})
	},
}

var messageAddCmd = &cobra.Command{
	Use:   "add <text>...",
	Short: "Log a promo message and show the themes it matched",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form := intake.MessageForm{Text: strings.Join(args, " ")}
		return withWorkspace(cmd, func(ctx context.Context, _ *config.Config, ws *workspace.Workspace) error {
			msg, err := ws.LogMessage(ctx, form)
			if err != nil {
				return err
			}
			themes := analytics.Themes(msg.Text, ws.Analytics().Rules())
			if len(themes) == 0 {
				fmt.Fprintf(os.Stdout, "Message %s logged. No themes matched.\n", msg.ID)
				return nil
			}
			fmt.Fprintf(os.Stdout, "Message %s logged. Themes: %s\n", msg.ID, strings.Join(themes, ", "))
			return nil
		})
	},
}

var contactAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a contact profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		form := intake.ContactForm{}
		form.Phone, _ = cmd.Flags().GetString("phone")
		form.Profile, _ = cmd.Flags().GetString("profile")
		form.Notes, _ = cmd.Flags().GetString("notes")
		return withWorkspace(cmd, func(ctx context.Context, _ *config.Config, ws *workspace.Workspace) error {
			c, err := ws.AddContact(ctx, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Contact %s added.\n", c.ID)
			return nil
		})
	},
}

// listOptions selects the order and size of a listing.
type listOptions struct {
	recent bool
	limit  int
}

// ordered returns items in the requested order, truncated to the limit.
func ordered[T any](items []T, opts listOptions) []T {
	if opts.recent {
		return collection.Newest(items, opts.limit)
	}
	if opts.limit > 0 && opts.limit < len(items) {
		return items[:opts.limit]
	}
	return items
}

type printer func(w *tabwriter.Writer, ws *workspace.Workspace, opts listOptions) int

func listCommand(kind types.Kind, show printer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + string(kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts listOptions
			opts.recent, _ = cmd.Flags().GetBool("recent")
			opts.limit, _ = cmd.Flags().GetInt("limit")
			return withWorkspace(cmd, func(ctx context.Context, _ *config.Config, ws *workspace.Workspace) error {
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				if show(w, ws, opts) == 0 {
					fmt.Fprintf(os.Stdout, "No %s yet.\n", kind)
					return nil
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().Bool("recent", false, "most recent first")
	cmd.Flags().Int("limit", 0, "show at most this many (0 = all)")
	return cmd
}

func removeCommand(kind types.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one of the " + string(kind) + " by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, _ *config.Config, ws *workspace.Workspace) error {
				if err := ws.Remove(ctx, kind, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Removed %s.\n", args[0])
				return nil
			})
		},
	}
}

func printEvents(w *tabwriter.Writer, ws *workspace.Workspace, opts listOptions) int {
	items := ordered(ws.Events().List(), opts)
	if len(items) == 0 {
		return 0
	}
	fmt.Fprintln(w, "ID\tTITLE\tDATE\tTIME\tTHEME")
	for _, e := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Title, e.Date, e.Time, e.Theme)
	}
	return len(items)
}

func printIdeas(w *tabwriter.Writer, ws *workspace.Workspace, opts listOptions) int {
	items := ordered(ws.Ideas().List(), opts)
	if len(items) == 0 {
		return 0
	}
	fmt.Fprintln(w, "ID\tTITLE\tPRIORITY")
	for _, i := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", i.ID, i.Title, i.Priority)
	}
	return len(items)
}

func printMessages(w *tabwriter.Writer, ws *workspace.Workspace, opts listOptions) int {
	items := ordered(ws.Messages().List(), opts)
	if len(items) == 0 {
		return 0
	}
	fmt.Fprintln(w, "ID\tCREATED\tTEXT")
	for _, m := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.CreatedAt.Format("2006-01-02 15:04"), truncate(m.Text, 60))
	}
	return len(items)
}

func printContacts(w *tabwriter.Writer, ws *workspace.Workspace, opts listOptions) int {
	items := ordered(ws.Contacts().List(), opts)
	if len(items) == 0 {
		return 0
	}
	fmt.Fprintln(w, "ID\tPHONE\tPROFILE")
	for _, c := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Phone, c.Profile)
	}
	return len(items)
}

// truncate shortens s to at most n runes, flattening newlines.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
