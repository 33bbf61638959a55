package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
)

func seed(t *testing.T, s *MaterialStore, ms ...materials.Material) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(ms))
	for i := range ms {
		id, err := s.Insert(context.Background(), &ms[i])
		if err != nil {
			t.Fatalf("Insert(%q) error = %v", ms[i].Identifier, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestMaterialStore_TransitionToInUse_Exclusive(t *testing.T) {
	s := NewMaterialStore(nil)
	ids := seed(t, s, materials.Material{Category: "G1", Identifier: "acc-1", Status: materials.StatusIdle})

	const workers = 64
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
		winner    atomic.Value
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			holder := fmt.Sprintf("user-%d", i)
			_, err := s.TransitionToInUse(context.Background(), ids[0], holder, time.Now().UTC())
			switch {
			case err == nil:
				successes.Add(1)
				winner.Store(holder)
			case errors.Is(err, materials.ErrAlreadyClaimed):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if got := successes.Load(); got != 1 {
		t.Fatalf("successes = %d, want 1", got)
	}
	if got := conflicts.Load(); got != workers-1 {
		t.Errorf("conflicts = %d, want %d", got, workers-1)
	}

	m, err := s.FindByID(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if m.Holder != winner.Load().(string) {
		t.Errorf("holder = %q, want %q", m.Holder, winner.Load())
	}
	if !m.Consistent() {
		t.Errorf("material %+v is not consistent", m)
	}
}

func TestMaterialStore_TransitionToInUse_Errors(t *testing.T) {
	s := NewMaterialStore(nil)
	ids := seed(t, s, materials.Material{
		Category:   "G1",
		Identifier: "taken",
		Status:     materials.StatusInUse,
		Holder:     "alice",
		ClaimedAt:  time.Now().UTC(),
	})

	tests := []struct {
		name string
		id   int64
		want error
	}{
		{name: "missing", id: 999, want: materials.ErrNotFound},
		{name: "in use", id: ids[0], want: materials.ErrAlreadyClaimed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.TransitionToInUse(context.Background(), tt.id, "bob", time.Now())
			if !errors.Is(err, tt.want) {
				t.Errorf("TransitionToInUse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMaterialStore_Uniqueness(t *testing.T) {
	s := NewMaterialStore(nil)
	ids := seed(t, s,
		materials.Material{Category: "G1", Identifier: "one", Status: materials.StatusIdle},
		materials.Material{Category: "G1", Identifier: "two", Status: materials.StatusIdle},
	)

	_, err := s.Insert(context.Background(), &materials.Material{Category: "G2", Identifier: "one", Status: materials.StatusIdle})
	if !errors.Is(err, materials.ErrDuplicateIdentifier) {
		t.Errorf("Insert() error = %v, want ErrDuplicateIdentifier", err)
	}

	second, _ := s.FindByID(context.Background(), ids[1])
	second.Identifier = "one"
	if err := s.Update(context.Background(), second, materials.StatusIdle); !errors.Is(err, materials.ErrDuplicateIdentifier) {
		t.Errorf("Update() error = %v, want ErrDuplicateIdentifier", err)
	}

	second.Identifier = "three"
	if err := s.Update(context.Background(), second, materials.StatusIdle); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := s.FindByIdentifier(context.Background(), "two"); !errors.Is(err, materials.ErrNotFound) {
		t.Errorf("old identifier still indexed: %v", err)
	}
	if _, err := s.Insert(context.Background(), &materials.Material{Category: "G1", Identifier: "two", Status: materials.StatusIdle}); err != nil {
		t.Errorf("Insert() of released identifier error = %v", err)
	}
}

func TestMaterialStore_UpdateStatusChanged(t *testing.T) {
	s := NewMaterialStore(nil)
	ids := seed(t, s, materials.Material{Category: "G1", Identifier: "acc", Status: materials.StatusIdle})

	stale, _ := s.FindByID(context.Background(), ids[0])
	if _, err := s.TransitionToInUse(context.Background(), ids[0], "alice", time.Now().UTC()); err != nil {
		t.Fatalf("TransitionToInUse() error = %v", err)
	}

	stale.Description = "edited"
	if err := s.Update(context.Background(), stale, materials.StatusIdle); !errors.Is(err, materials.ErrAlreadyClaimed) {
		t.Errorf("Update() error = %v, want ErrAlreadyClaimed", err)
	}
}

func TestMaterialStore_UpdateAssigns(t *testing.T) {
	s := NewMaterialStore(nil)
	ids := seed(t, s, materials.Material{Category: "G1", Identifier: "acc", Status: materials.StatusIdle})
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	next, _ := s.FindByID(context.Background(), ids[0])
	next.Identifier = "acc-renamed"
	next.Status = materials.StatusInUse
	next.Holder = "bob"
	next.ClaimedAt = at
	if err := s.Update(context.Background(), next, materials.StatusIdle); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := s.FindByID(context.Background(), ids[0])
	if got.Status != materials.StatusInUse || got.Holder != "bob" || got.Identifier != "acc-renamed" || !got.ClaimedAt.Equal(at) {
		t.Errorf("stored = %+v", got)
	}

	// a second assignment expecting idle finds the row taken
	if err := s.Update(context.Background(), next, materials.StatusIdle); !errors.Is(err, materials.ErrAlreadyClaimed) {
		t.Errorf("second Update() error = %v, want ErrAlreadyClaimed", err)
	}
}

func TestMaterialStore_Query(t *testing.T) {
	userStore := NewUserStore()
	_ = userStore.Create(context.Background(), &users.User{Email: "a@x", Username: "alice", DisplayName: "Alice Liddell"})

	s := NewMaterialStore(userStore)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seed(t, s,
		materials.Material{Category: "Genshin", Identifier: "idle-1", Status: materials.StatusIdle},
		materials.Material{Category: "Genshin", Identifier: "alice-1", Status: materials.StatusInUse, Holder: "alice", ClaimedAt: now},
		materials.Material{Category: "Honkai", Identifier: "bob-1", Status: materials.StatusInUse, Holder: "bob", ClaimedAt: now.Add(time.Hour)},
	)

	tests := []struct {
		name      string
		query     materials.Query
		wantTotal int64
	}{
		{name: "admin sees all", query: materials.Query{Viewer: &materials.Viewer{Username: "root", Admin: true}}, wantTotal: 3},
		{name: "user sees idle and own", query: materials.Query{Viewer: &materials.Viewer{Username: "alice"}}, wantTotal: 2},
		{name: "category substring", query: materials.Query{Filters: materials.Filters{Category: "gensh"}}, wantTotal: 2},
		{name: "status exact", query: materials.Query{Filters: materials.Filters{Status: materials.StatusInUse}}, wantTotal: 2},
		{name: "holder display name", query: materials.Query{Filters: materials.Filters{HolderName: "liddell"}}, wantTotal: 1},
		{name: "usage range", query: materials.Query{Filters: materials.Filters{From: now.Add(30 * time.Minute)}}, wantTotal: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := s.Query(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if total != tt.wantTotal || int64(len(items)) != tt.wantTotal {
				t.Errorf("Query() total = %d, items = %d, want %d", total, len(items), tt.wantTotal)
			}
		})
	}

	items, _, _ := s.Query(context.Background(), materials.Query{Sort: materials.SortClaimedAt, PageSize: 1})
	if len(items) != 1 || items[0].Identifier != "bob-1" {
		t.Errorf("sort by usage time first = %+v, want bob-1", items)
	}

	items, _, _ = s.Query(context.Background(), materials.Query{Filters: materials.Filters{Holder: "alice"}})
	if len(items) != 1 || items[0].HolderName != "Alice Liddell" {
		t.Errorf("holder name join = %+v", items)
	}
}

func TestMaterialStore_Stats(t *testing.T) {
	s := NewMaterialStore(nil)
	day := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	seed(t, s,
		materials.Material{Category: "A", Identifier: "1", Status: materials.StatusIdle},
		materials.Material{Category: "A", Identifier: "2", Status: materials.StatusInUse, Holder: "alice", ClaimedAt: day},
		materials.Material{Category: "B", Identifier: "3", Status: materials.StatusInUse, Holder: "alice", ClaimedAt: day.Add(time.Hour)},
		materials.Material{Category: "B", Identifier: "4", Status: materials.StatusInUse, Holder: "bob", ClaimedAt: day.Add(time.Hour)},
	)
	ctx := context.Background()

	counts, _ := s.StatusCounts(ctx, "")
	if counts[materials.StatusIdle] != 1 || counts[materials.StatusInUse] != 3 {
		t.Errorf("StatusCounts() = %v", counts)
	}

	daily, _ := s.DailyUsage(ctx, "alice", day.Add(-time.Hour), day.Add(2*time.Hour))
	want := []materials.DailyCount{{Date: "2024-05-01", Count: 1}, {Date: "2024-05-02", Count: 1}}
	if len(daily) != len(want) || daily[0] != want[0] || daily[1] != want[1] {
		t.Errorf("DailyUsage() = %v, want %v", daily, want)
	}

	top, _ := s.TopHolders(ctx, time.Time{}, time.Time{}, 1)
	if len(top) != 1 || top[0].Holder != "alice" || top[0].Count != 2 {
		t.Errorf("TopHolders() = %v", top)
	}

	categories, _ := s.CategoryCounts(ctx, "", "", 0)
	if len(categories) != 2 || categories[0].Category != "A" {
		t.Errorf("CategoryCounts() = %v", categories)
	}
}
