package sources

import "sync"

// ResultSet accumulates streamed batches for a caller. Results are keyed by
// ID; the first copy of an id wins and later copies are dropped even when
// their metadata differs. Arrival order is preserved.
type ResultSet struct {
	mu    sync.Mutex
	order []string
	byID  map[string]SearchResult
}

func NewResultSet() *ResultSet {
	return &ResultSet{byID: make(map[string]SearchResult)}
}

// Add merges batch and returns the results that were not seen before.
func (s *ResultSet) Add(batch []SearchResult) []SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var added []SearchResult
	for _, r := range batch {
		if _, seen := s.byID[r.ID]; seen {
			continue
		}
		s.byID[r.ID] = r
		s.order = append(s.order, r.ID)
		added = append(added, r)
	}
	return added
}

func (s *ResultSet) All() []SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SearchResult, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *ResultSet) Get(id string) (SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	return r, ok
}

func (s *ResultSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
