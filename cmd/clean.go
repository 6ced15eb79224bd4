package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/rominator/internal/output"
	"github.com/tanq16/rominator/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [PATH]",
		Short: "Remove partial files left by interrupted downloads",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				root = args[0]
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				root = cfg.DownloadsRoot()
			}
			n, err := utils.CleanTree(root)
			if err != nil {
				return fmt.Errorf("error cleaning up temporary files: %v", err)
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d temporary folder(s) below %s", n, root))
			return nil
		},
	}
}
