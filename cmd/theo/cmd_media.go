package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/theo/internal/config"
	"github.com/user/theo/internal/media"
	"github.com/user/theo/internal/types"
	"github.com/user/theo/internal/workspace"
)

func init() {
	rootCmd.AddCommand(mediaCmd)
	mediaCmd.AddCommand(mediaAddCmd, listCommand(types.KindMedia, printMedia), removeCommand(types.KindMedia))
}

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Manage stored images",
}

var mediaAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Store image files; other files are skipped",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, cfg *config.Config, ws *workspace.Workspace) error {
			stored, err := media.NewIngester(ws, cfg.Media.MaxBytes).IngestFiles(ctx, args)
			for _, asset := range stored {
				fmt.Fprintf(os.Stdout, "Stored %s as %s.\n", asset.Name, asset.ID)
			}
			if err != nil {
				return err
			}
			if skipped := len(args) - len(stored); skipped > 0 {
				fmt.Fprintf(os.Stdout, "Skipped %d non-image file(s).\n", skipped)
			}
			return nil
		})
	},
}

func printMedia(w *tabwriter.Writer, ws *workspace.Workspace, opts listOptions) int {
	items := ordered(ws.Media().List(), opts)
	if len(items) == 0 {
		return 0
	}
	fmt.Fprintln(w, "ID\tNAME\tDATA URL SIZE")
	for _, m := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\n", m.ID, m.Name, len(m.DataURL))
	}
	return len(items)
}
