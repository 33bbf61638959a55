package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
)

// AuditStore is an append-only in-memory audit log.
type AuditStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, *entry)
	return nil
}

// List returns matching entries newest first.
func (s *AuditStore) List(_ context.Context, f audit.Filters, offset, limit int) ([]audit.Entry, int64, error) {
	s.mu.RLock()
	matched := make([]audit.Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if f.UserName != "" && !strings.Contains(strings.ToLower(e.UserName), strings.ToLower(f.UserName)) {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Entity != "" && e.Entity != f.Entity {
			continue
		}
		if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.CreatedAt.After(f.To) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	total := int64(len(matched))
	if offset >= len(matched) {
		return []audit.Entry{}, total, nil
	}
	end := len(matched)
	if limit > 0 {
		end = min(offset+limit, len(matched))
	}
	return matched[offset:end], total, nil
}

func (s *AuditStore) DistinctActions(_ context.Context) ([]string, error) {
	return s.distinct(func(e audit.Entry) string { return e.Action }), nil
}

func (s *AuditStore) DistinctEntities(_ context.Context) ([]string, error) {
	return s.distinct(func(e audit.Entry) string { return e.Entity }), nil
}

func (s *AuditStore) distinct(field func(audit.Entry) string) []string {
	s.mu.RLock()
	seen := make(map[string]struct{})
	for _, e := range s.entries {
		if v := field(e); v != "" {
			seen[v] = struct{}{}
		}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
