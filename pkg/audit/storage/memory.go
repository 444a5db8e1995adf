package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/b3ckham/Orchestrator/pkg/audit"
)

// MemoryStorage implements audit.Storage using an in-memory map.
type MemoryStorage struct {
	events map[string]*audit.Event
	mu     sync.RWMutex
}

var _ audit.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		events: make(map[string]*audit.Event),
	}
}

// Store persists an event to memory.
func (s *MemoryStorage) Store(ctx context.Context, event *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.ID] = copyEvent(event)
	return nil
}

// Query retrieves events matching the query filters, newest first.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*audit.Event{}
	for _, event := range s.events {
		if matchesQuery(event, query) {
			results = append(results, copyEvent(event))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].ID < results[j].ID
		}
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	if query == nil {
		return results, nil
	}

	start := query.Offset
	if start > len(results) {
		return []*audit.Event{}, nil
	}
	results = results[start:]

	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}

	return results, nil
}

// Count returns the number of events matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, event := range s.events {
		if matchesQuery(event, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes events matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, event := range s.events {
		if matchesQuery(event, query) {
			delete(s.events, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = make(map[string]*audit.Event)
	return nil
}

// matchesQuery checks if an event matches the query filters.
func matchesQuery(event *audit.Event, query *audit.Query) bool {
	if query == nil {
		return true
	}

	if query.StartTime != nil && event.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && event.Timestamp.After(*query.EndTime) {
		return false
	}

	if query.Type != "" && event.Type != query.Type {
		return false
	}
	if query.RuleSet != "" && event.RuleSet != query.RuleSet {
		return false
	}
	if query.Success != nil && event.Success != *query.Success {
		return false
	}

	return true
}

func copyEvent(event *audit.Event) *audit.Event {
	c := *event
	c.Reasons = append([]string(nil), event.Reasons...)
	c.Diagnostics = append([]string(nil), event.Diagnostics...)
	return &c
}
