package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rominator/internal/output"
	"github.com/tanq16/rominator/internal/sources"
	"gopkg.in/yaml.v3"
)

type BatchEntry struct {
	Query     string   `yaml:"query"`
	Platforms []string `yaml:"platforms,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
	Pick      string   `yaml:"pick,omitempty"` // defaults to the first result
	All       bool     `yaml:"all,omitempty"`
}

func readBatchFile(path string) ([]BatchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %v", err)
	}
	var entries []BatchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("error parsing YAML file: %v", err)
	}
	return entries, nil
}

func entryPicks(entry BatchEntry, n int) ([]int, error) {
	switch {
	case entry.All:
		return parsePicks("all", n)
	case entry.Pick != "":
		return parsePicks(entry.Pick, n)
	default:
		return []int{1}, nil
	}
}

func newBatchCmd() *cobra.Command {
	var stall time.Duration

	cmd := &cobra.Command{
		Use:   "batch YAML_FILE",
		Short: "Run several searches from a YAML file and download the picks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readBatchFile(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			var selected []sources.SearchResult
			for _, entry := range entries {
				if entry.Query == "" {
					output.PrintWarning("Warning: entry without query, skipping...")
					continue
				}
				results, err := a.search(cmd.Context(), entry.Query, entry.Platforms, entry.Tags, true)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					output.PrintWarning(fmt.Sprintf("Warning: no results for %q, skipping...", entry.Query))
					continue
				}
				picks, err := entryPicks(entry, len(results))
				if err != nil {
					output.PrintWarning(fmt.Sprintf("Warning: %q: %v, skipping...", entry.Query, err))
					continue
				}
				for _, r := range pickResults(results, picks) {
					output.PrintInfo(fmt.Sprintf("  %s %s %s", entry.Query, output.StyleSymbols["arrow"], r.Name))
					selected = append(selected, r)
				}
			}
			if len(selected) == 0 {
				return fmt.Errorf("no valid jobs found in the batch file")
			}
			fmt.Println()
			return a.download(cmd.Context(), selected, stall)
		},
	}

	cmd.Flags().DurationVar(&stall, "stall-timeout", defaultStallTimeout, "Fail a download after this long without progress (0 disables)")
	return cmd
}
