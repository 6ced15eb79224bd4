package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rominator/internal/output"
)

func newGetCmd() *cobra.Command {
	var platforms, tags []string
	var pick string
	var all bool
	var stall time.Duration

	cmd := &cobra.Command{
		Use:   "get QUERY [-p PLATFORM]... [-t TAG]... [--pick 1,3-5 | --all]",
		Short: "Search, then download the selected results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && pick != "" {
				return fmt.Errorf("--pick and --all cannot be combined")
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			results, err := a.search(cmd.Context(), args[0], platforms, tags, false)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				output.PrintWarning("No results")
				return nil
			}

			var picks []int
			switch {
			case all:
				picks, err = parsePicks("all", len(results))
			case pick != "":
				picks, err = parsePicks(pick, len(results))
			case output.IsTerminal():
				picks, err = promptPicks(os.Stdin, os.Stdout, len(results))
			default:
				err = fmt.Errorf("no terminal to prompt on; use --pick or --all")
			}
			if err != nil {
				return err
			}
			fmt.Println()
			return a.download(cmd.Context(), pickResults(results, picks), stall)
		},
	}

	cmd.Flags().StringArrayVarP(&platforms, "platform", "p", nil, "Only this platform id; can be specified multiple times")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Only results with this tag; can be specified multiple times")
	cmd.Flags().StringVar(&pick, "pick", "", "Results to download (e.g. 1,3-5)")
	cmd.Flags().BoolVar(&all, "all", false, "Download every result")
	cmd.Flags().DurationVar(&stall, "stall-timeout", defaultStallTimeout, "Fail a download after this long without progress (0 disables)")
	return cmd
}
