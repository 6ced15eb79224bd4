package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tanq16/rominator/internal/sources"
)

// parsePicks reads 1-based selections like "1,3-5" or "all" against n results.
func parsePicks(spec string, n int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty selection")
	}
	if strings.EqualFold(spec, "all") {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}
	seen := make(map[int]bool)
	var out []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if a, b, ok := strings.Cut(part, "-"); ok {
			lo, hi = strings.TrimSpace(a), strings.TrimSpace(b)
		}
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", part)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", part)
		}
		if start < 1 || end > n || start > end {
			return nil, fmt.Errorf("selection %q out of range 1-%d", part, n)
		}
		for i := start; i <= end; i++ {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty selection")
	}
	return out, nil
}

func pickResults(results []sources.SearchResult, picks []int) []sources.SearchResult {
	out := make([]sources.SearchResult, 0, len(picks))
	for _, p := range picks {
		out = append(out, results[p-1])
	}
	return out
}

// promptPicks asks for a selection on in until one parses.
func promptPicks(in io.Reader, out io.Writer, n int) ([]int, error) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "Select results to download (e.g. 1,3-5 or all): ")
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			picks, perr := parsePicks(line, n)
			if perr == nil {
				return picks, nil
			}
			fmt.Fprintln(out, perr)
		}
		if err != nil {
			return nil, fmt.Errorf("no selection made")
		}
	}
}
