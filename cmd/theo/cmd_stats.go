package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/theo/internal/config"
	"github.com/user/theo/internal/report"
	"github.com/user/theo/internal/scheduler"
	"github.com/user/theo/internal/workspace"
)

func init() {
	rootCmd.AddCommand(statsCmd, digestCmd)
	statsCmd.AddCommand(statsThemesCmd, statsWeeklyCmd, statsDigestCmd)
	statsCmd.PersistentFlags().Bool("json", false, "print JSON instead of text")
	digestCmd.AddCommand(digestListCmd, digestSendCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show message analytics",
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var statsThemesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Theme counts, highest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withWorkspace(cmd, func(ctx context.Context, _ *config.Config, ws *workspace.Workspace) error {
			themes := ws.Analytics().ThemeView()
			if asJSON {
				return printJSON(themes)
			}
			fmt.Fprint(os.Stdout, report.Themes(themes))
			return nil
		})
	},
}

var statsWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Messages per weekday, Monday first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withWorkspace(cmd, func(ctx context.Context, _ *config.Config, ws *workspace.Workspace) error {
			bars := ws.Analytics().WeeklyView()
			if asJSON {
				return printJSON(bars)
			}
			fmt.Fprint(os.Stdout, report.Weekly(bars))
			return nil
		})
	},
}

var statsDigestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Total, themes and weekly bars together",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withWorkspace(cmd, func(ctx context.Context, _ *config.Config, ws *workspace.Workspace) error {
			snap := ws.Analytics().Snapshot()
			if asJSON {
				return printJSON(snap)
			}
			fmt.Fprint(os.Stdout, report.Digest(snap))
			return nil
		})
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Inspect and send scheduled digests",
}

var digestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured digests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if len(cfg.Digests) == 0 {
			fmt.Println("No digests configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSCHEDULE\tTARGET\tENABLED\tVALID")
		for _, d := range cfg.Digests {
			valid := "yes"
			if err := scheduler.Validate(d.Schedule); err != nil {
				valid = "no"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", d.Name, d.Schedule, d.Target, d.Enabled, valid)
		}
		return w.Flush()
	},
}

var digestSendCmd = &cobra.Command{
	Use:   "send <name>",
	Short: "Deliver a configured digest now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, cfg *config.Config, ws *workspace.Workspace) error {
			var target string
			for _, d := range cfg.Digests {
				if d.Name == args[0] {
					target = d.Target
					break
				}
			}
			if target == "" {
				return fmt.Errorf("digest not found: %s", args[0])
			}

			registry, _, err := buildDelivery(cfg, ws)
			if err != nil {
				return err
			}
			if err := sendDigest(ctx, registry, ws, target); err != nil {
				return fmt.Errorf("deliver digest: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Digest %q sent to %s.\n", args[0], target)
			return nil
		})
	},
}
