package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tanq16/rominator/internal/output"
	"github.com/tanq16/rominator/internal/platforms"
)

func newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the platform ids accepted by --platform",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			output.PrintPlatforms(platforms.All())
		},
	}
}
