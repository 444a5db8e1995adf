package ruleset

import (
	"sort"
	"sync"
)

// Repository holds the current source of every deployed rule set, keyed by
// name. It only grows: a put with an existing name replaces the entry and
// there is no delete. It is safe for concurrent use.
type Repository struct {
	mu       sync.RWMutex
	sources  map[string]string
	revision uint64
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		sources: make(map[string]string),
	}
}

// Put inserts or replaces a rule set. Every put advances the revision, even
// when the source is unchanged.
func (r *Repository) Put(name, source string) error {
	if name == "" {
		return &RepositoryError{
			Operation: "put",
			Message:   "rule set name cannot be empty",
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources[name] = source
	r.revision++
	return nil
}

// Get returns the source of a rule set.
func (r *Repository) Get(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, ok := r.sources[name]
	return source, ok
}

// Snapshot returns a copy of all sources. Later puts do not affect it.
func (r *Repository) Snapshot() map[string]string {
	snapshot, _ := r.SnapshotRevision()
	return snapshot
}

// SnapshotRevision returns a copy of all sources and the revision it was
// taken at.
func (r *Repository) SnapshotRevision() (map[string]string, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]string, len(r.sources))
	for name, source := range r.sources {
		snapshot[name] = source
	}
	return snapshot, r.revision
}

// Size returns the number of rule sets.
func (r *Repository) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// Names returns the rule-set names in sorted order.
func (r *Repository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Revision returns the number of puts applied so far.
func (r *Repository) Revision() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}
