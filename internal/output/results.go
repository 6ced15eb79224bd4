package output

import (
	"fmt"
	"strings"

	"github.com/tanq16/rominator/internal/platforms"
	"github.com/tanq16/rominator/internal/sources"
)

// FormatResult renders one numbered search result on a single line.
func FormatResult(index int, r sources.SearchResult) string {
	parts := []string{FDetail(fmt.Sprintf("[%d]", index)), r.Name}
	meta := []string{}
	if r.Platform != "" {
		if p, ok := platforms.Get(r.Platform); ok {
			meta = append(meta, p.ShortName)
		} else {
			meta = append(meta, r.Platform)
		}
	}
	meta = append(meta, r.SourceID)
	if len(r.Tags) > 0 {
		meta = append(meta, strings.Join(r.Tags, ","))
	}
	if r.Meta.Rating != nil {
		meta = append(meta, fmt.Sprintf("%.0f%%", *r.Meta.Rating*100))
	}
	parts = append(parts, FDebug(strings.Join(meta, " "+StyleSymbols["dot"]+" ")))
	return strings.Repeat(" ", 2) + strings.Join(parts, " ")
}

// PrintResults numbers results starting at offset+1.
func PrintResults(results []sources.SearchResult, offset int) {
	for i, r := range results {
		fmt.Fprintln(Out, FormatResult(offset+i+1, r))
	}
}

func PrintSources(srcs []sources.Source, enabled func(id string) bool) {
	for _, s := range srcs {
		state := FSuccess(StyleSymbols["pass"] + " enabled")
		if !enabled(s.ID()) {
			state = FDebug(StyleSymbols["dot"] + " disabled")
		}
		scope := "all platforms"
		if ps := s.Platforms(); len(ps) > 0 {
			scope = strings.Join(ps, ", ")
		}
		fmt.Fprintf(Out, "  %-10s %s %s\n      %s\n", s.ID(), s.Name(), state, FDebug(scope))
	}
}

func PrintPlatforms(ps []platforms.Platform) {
	vendor := ""
	for _, p := range ps {
		if p.Vendor != vendor {
			vendor = p.Vendor
			PrintHeader(vendor)
		}
		fmt.Fprintf(Out, "  %-10s %-10s %s\n", p.ID, p.ShortName, FDebug(p.Name))
	}
}
