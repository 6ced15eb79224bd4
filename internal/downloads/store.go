package downloads

import "sync"

// store is the job collection. Every read-modify-write of one job happens
// under the lock, and iteration follows insertion order.
type store struct {
	mu    sync.RWMutex
	order []string
	jobs  map[string]*Job
}

func newStore() *store {
	return &store{jobs: make(map[string]*Job)}
}

func (s *store) insert(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return
	}
	s.order = append(s.order, job.ID)
	s.jobs[job.ID] = &job
}

func (s *store) get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.clone(), true
}

// update applies fn to the stored job and reports whether the id was known.
func (s *store) update(id string, fn func(*Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(j)
	return true
}

// scan runs fn over every stored job in insertion order while holding the
// write lock, giving the caller a consistent view of all statuses.
func (s *store) scan(fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		fn(s.jobs[id])
	}
}

func (s *store) snapshot() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id].clone())
	}
	return out
}

func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
