package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/tanq16/rominator/internal/output"
	"github.com/tanq16/rominator/internal/sources/catalog"
	"github.com/tanq16/rominator/internal/sources/gdrive"
)

func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List content sources and switch them on or off",
		Args:  cobra.NoArgs,
		RunE:  runSourcesList,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known sources",
		Args:  cobra.NoArgs,
		RunE:  runSourcesList,
	})
	cmd.AddCommand(newSourceSwitchCmd("enable", "Enable a source", func(enabled bool) bool { return true }))
	cmd.AddCommand(newSourceSwitchCmd("disable", "Disable a source", func(enabled bool) bool { return false }))
	cmd.AddCommand(newSourceSwitchCmd("toggle", "Flip a source on or off", func(enabled bool) bool { return !enabled }))
	cmd.AddCommand(&cobra.Command{
		Use:   "auth gdrive",
		Short: "Authorize Google Drive access with the configured credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != gdrive.ID {
				return fmt.Errorf("source %q does not need authorization", args[0])
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g := cfg.Sources.GDrive
			if g == nil || g.Credentials == "" {
				return fmt.Errorf("sources.gdrive.credentials is not configured")
			}
			tokenPath := catalog.GDriveTokenPath(cfg)
			if err := gdrive.Authorize(cmd.Context(), g.Credentials, tokenPath, os.Stdin, os.Stdout); err != nil {
				return err
			}
			output.PrintSuccess(fmt.Sprintf("Token saved to %s", tokenPath))
			return nil
		},
	})
	return cmd
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	output.PrintHeader("Sources")
	output.PrintSources(a.registry.ListAll(), a.registry.IsEnabled)
	for _, id := range catalog.KnownIDs {
		if _, ok := a.registry.Get(id); ok {
			continue
		}
		if err, skipped := a.catalog.Skipped[id]; skipped {
			output.PrintWarning(fmt.Sprintf("  %-10s unavailable: %v", id, err))
		} else {
			fmt.Println(output.FDebug(fmt.Sprintf("  %-10s not configured", id)))
		}
	}
	return nil
}

func newSourceSwitchCmd(use, short string, next func(enabled bool) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SOURCE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !slices.Contains(catalog.KnownIDs, id) {
				return fmt.Errorf("unknown source %q (known: %v)", id, catalog.KnownIDs)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enabled := next(cfg.IsSourceEnabled(id))
			if err := cfg.SetSourceEnabled(id, enabled); err != nil {
				return err
			}
			state := "disabled"
			if enabled {
				state = "enabled"
			}
			output.PrintSuccess(fmt.Sprintf("%s %s", id, state))
			return nil
		},
	}
}
