package sources

import "slices"

// SourceMatches reports whether src should be queried for the requested
// platforms. A source without a platform list serves every platform.
func SourceMatches(src Source, platforms []string) bool {
	if len(platforms) == 0 {
		return true
	}
	declared := src.Platforms()
	if len(declared) == 0 {
		return true
	}
	return intersects(platforms, declared)
}

// MatchesFilter applies the platform and tag post-filter to a single result.
func MatchesFilter(r SearchResult, platforms, tags []string) bool {
	if len(platforms) > 0 && !slices.Contains(platforms, r.Platform) {
		return false
	}
	if len(tags) > 0 && !intersects(tags, r.Tags) {
		return false
	}
	return true
}

func FilterResults(batch []SearchResult, platforms, tags []string) []SearchResult {
	out := make([]SearchResult, 0, len(batch))
	for _, r := range batch {
		if MatchesFilter(r, platforms, tags) {
			out = append(out, r)
		}
	}
	return out
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if slices.Contains(b, v) {
			return true
		}
	}
	return false
}
