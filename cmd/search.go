package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/rominator/internal/output"
	"gopkg.in/yaml.v3"
)

func newSearchCmd() *cobra.Command {
	var platforms, tags []string
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "search QUERY [-p PLATFORM]... [-t TAG]...",
		Short: "Search every enabled source and stream the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			if !asYAML {
				output.PrintHeader(fmt.Sprintf("Searching %d source(s) for %q", len(a.aggregator.Candidates(platforms)), args[0]))
			}
			results, err := a.search(cmd.Context(), args[0], platforms, tags, asYAML)
			if err != nil {
				return err
			}
			if asYAML {
				enc := yaml.NewEncoder(os.Stdout)
				defer enc.Close()
				return enc.Encode(results)
			}
			if len(results) == 0 {
				output.PrintWarning("No results")
				return nil
			}
			output.PrintSuccess(fmt.Sprintf("%d result(s)", len(results)))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&platforms, "platform", "p", nil, "Only this platform id; can be specified multiple times")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Only results with this tag; can be specified multiple times")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print results as YAML once the search finished")
	return cmd
}
