package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
)

type materialEntry struct {
	mu       sync.Mutex
	material materials.Material
	deleted  bool
}

// MaterialStore keeps materials in process memory. The store lock guards the
// maps; each row carries its own mutex so claims on different ids never contend.
type MaterialStore struct {
	mu           sync.RWMutex
	nextID       int64
	entries      map[int64]*materialEntry
	byIdentifier map[string]int64
	users        *UserStore
	now          func() time.Time
}

// NewMaterialStore returns an empty store. users may be nil; it only feeds holder display names.
func NewMaterialStore(users *UserStore) *MaterialStore {
	return &MaterialStore{
		entries:      make(map[int64]*materialEntry),
		byIdentifier: make(map[string]int64),
		users:        users,
		now:          time.Now,
	}
}

func (s *MaterialStore) FindByID(_ context.Context, id int64) (*materials.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, materials.ErrNotFound
	}
	m, ok := s.snapshot(entry)
	if !ok {
		return nil, materials.ErrNotFound
	}
	return &m, nil
}

func (s *MaterialStore) FindByIdentifier(ctx context.Context, identifier string) (*materials.Material, error) {
	s.mu.RLock()
	id, ok := s.byIdentifier[identifier]
	s.mu.RUnlock()
	if !ok {
		return nil, materials.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *MaterialStore) Query(_ context.Context, q materials.Query) ([]materials.Material, int64, error) {
	q.Normalize()

	s.mu.RLock()
	matched := make([]materials.Material, 0, len(s.entries))
	for _, entry := range s.entries {
		m, ok := s.snapshot(entry)
		if !ok || !materials.Visible(m, q.Viewer) || !matches(m, q.Filters) {
			continue
		}
		matched = append(matched, m)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.Sort == materials.SortClaimedAt && !a.ClaimedAt.Equal(b.ClaimedAt) {
			return a.ClaimedAt.After(b.ClaimedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	total := int64(len(matched))
	start := q.Offset()
	if start >= len(matched) {
		return []materials.Material{}, total, nil
	}
	end := min(start+q.PageSize, len(matched))
	return matched[start:end], total, nil
}

func (s *MaterialStore) Insert(_ context.Context, m *materials.Material) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentifier[m.Identifier]; exists {
		return 0, materials.ErrDuplicateIdentifier
	}

	s.nextID++
	now := s.now().UTC()
	stored := *m
	stored.ID = s.nextID
	stored.HolderName = ""
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Status == "" {
		stored.Status = materials.StatusIdle
	}

	s.entries[stored.ID] = &materialEntry{material: stored}
	s.byIdentifier[stored.Identifier] = stored.ID
	return stored.ID, nil
}

func (s *MaterialStore) TransitionToInUse(_ context.Context, id int64, holder string, at time.Time) (*materials.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, materials.ErrNotFound
	}

	entry.mu.Lock()
	if entry.deleted {
		entry.mu.Unlock()
		return nil, materials.ErrNotFound
	}
	if entry.material.Status != materials.StatusIdle {
		entry.mu.Unlock()
		return nil, materials.ErrAlreadyClaimed
	}
	entry.material.Status = materials.StatusInUse
	entry.material.Holder = holder
	entry.material.ClaimedAt = at
	entry.material.UpdatedAt = s.now().UTC()
	m := entry.material
	entry.mu.Unlock()

	m.HolderName = s.displayName(m.Holder)
	return &m, nil
}

func (s *MaterialStore) Update(_ context.Context, m *materials.Material, from materials.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[m.ID]
	if !ok {
		return materials.ErrNotFound
	}
	if owner, exists := s.byIdentifier[m.Identifier]; exists && owner != m.ID {
		return materials.ErrDuplicateIdentifier
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return materials.ErrNotFound
	}
	if entry.material.Status != from {
		return materials.ErrAlreadyClaimed
	}

	previous := entry.material.Identifier
	entry.material.Status = m.Status
	entry.material.Category = m.Category
	entry.material.Identifier = m.Identifier
	entry.material.Description = m.Description
	entry.material.Holder = m.Holder
	entry.material.ClaimedAt = m.ClaimedAt
	entry.material.UpdatedAt = s.now().UTC()

	if previous != m.Identifier {
		delete(s.byIdentifier, previous)
		s.byIdentifier[m.Identifier] = m.ID
	}
	return nil
}

func (s *MaterialStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return materials.ErrNotFound
	}

	entry.mu.Lock()
	entry.deleted = true
	identifier := entry.material.Identifier
	entry.mu.Unlock()

	delete(s.entries, id)
	delete(s.byIdentifier, identifier)
	return nil
}

func (s *MaterialStore) Categories(_ context.Context, status materials.Status) ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]struct{})
	for _, entry := range s.entries {
		m, ok := s.snapshot(entry)
		if !ok || m.Category == "" || (status != "" && m.Status != status) {
			continue
		}
		seen[m.Category] = struct{}{}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// all returns a consistent copy of every live row for aggregation.
func (s *MaterialStore) all() []materials.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]materials.Material, 0, len(s.entries))
	for _, entry := range s.entries {
		if m, ok := s.snapshot(entry); ok {
			out = append(out, m)
		}
	}
	return out
}

// snapshot copies the entry under its row lock. Callers hold s.mu.
func (s *MaterialStore) snapshot(entry *materialEntry) (materials.Material, bool) {
	entry.mu.Lock()
	m := entry.material
	deleted := entry.deleted
	entry.mu.Unlock()
	if deleted {
		return materials.Material{}, false
	}
	m.HolderName = s.displayName(m.Holder)
	return m, true
}

func (s *MaterialStore) displayName(holder string) string {
	if s.users == nil || holder == "" {
		return ""
	}
	return s.users.displayName(holder)
}

func matches(m materials.Material, f materials.Filters) bool {
	if f.Category != "" && !containsFold(m.Category, f.Category) {
		return false
	}
	if f.Identifier != "" && !containsFold(m.Identifier, f.Identifier) {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Holder != "" && !containsFold(m.Holder, f.Holder) {
		return false
	}
	if f.HolderName != "" && !containsFold(m.HolderName, f.HolderName) {
		return false
	}
	if !f.From.IsZero() && (m.ClaimedAt.IsZero() || m.ClaimedAt.Before(f.From)) {
		return false
	}
	if !f.To.IsZero() && (m.ClaimedAt.IsZero() || m.ClaimedAt.After(f.To)) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
