package materials_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/domain/materials/mock"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/memory"
	"go.uber.org/mock/gomock"
)

var errStorage = errors.New("connection reset")

func TestReconciler_Reconcile(t *testing.T) {
	claimedAt := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		existing     []materials.Material
		rows         []materials.ImportRow
		known        materials.IdentitySet
		wantInserted int
		wantIdle     int
		wantSkipped  map[materials.SkipReason]int
	}{
		{
			name: "invalid holder",
			rows: []materials.ImportRow{
				{Category: "原神", Identifier: "alice_01", Status: materials.LabelInUse, Holder: "nonexistent_user"},
			},
			known:       materials.NewIdentitySet("bob", "carol"),
			wantSkipped: map[materials.SkipReason]int{materials.SkipInvalidHolder: 1},
		},
		{
			name:        "duplicate of stored identifier",
			existing:    []materials.Material{{Category: "原神", Identifier: "dup", Status: materials.StatusIdle}},
			rows:        []materials.ImportRow{{Category: "原神", Identifier: "dup", Status: "idle"}},
			wantSkipped: map[materials.SkipReason]int{materials.SkipDuplicate: 1},
		},
		{
			name: "blank category does not abort the batch",
			rows: []materials.ImportRow{
				{Category: "A", Identifier: "a1"},
				{Category: " ", Identifier: "a2"},
				{Category: "A", Identifier: "a3"},
				{Category: "B", Identifier: "b1"},
			},
			wantInserted: 3,
			wantIdle:     3,
			wantSkipped:  map[materials.SkipReason]int{materials.SkipMissingFields: 1},
		},
		{
			name: "duplicate inside one batch",
			rows: []materials.ImportRow{
				{Category: "A", Identifier: "same"},
				{Category: "A", Identifier: "same"},
			},
			wantInserted: 1,
			wantIdle:     1,
			wantSkipped:  map[materials.SkipReason]int{materials.SkipDuplicate: 1},
		},
		{
			name: "mixed statuses",
			rows: []materials.ImportRow{
				{Category: "A", Identifier: "x1", Status: "空闲", Holder: "bob", ClaimedAt: claimedAt},
				{Category: "A", Identifier: "x2", Status: "in_use", Holder: "bob", ClaimedAt: claimedAt},
				{Category: "A", Identifier: "x3", Status: "in_use", Holder: "bob"},
				{Category: "A", Identifier: "x4", Status: "lost"},
			},
			known:        materials.NewIdentitySet("bob"),
			wantInserted: 3,
			wantIdle:     1,
			wantSkipped:  map[materials.SkipReason]int{materials.SkipInvalidStatus: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewMaterialStore(nil)
			for i := range tt.existing {
				if _, err := store.Insert(context.Background(), &tt.existing[i]); err != nil {
					t.Fatalf("seed error = %v", err)
				}
			}

			summary, err := materials.NewReconciler(store).Reconcile(context.Background(), tt.rows, tt.known)
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if summary.Total != len(tt.rows) {
				t.Errorf("Total = %d, want %d", summary.Total, len(tt.rows))
			}
			if summary.Inserted != tt.wantInserted {
				t.Errorf("Inserted = %d, want %d", summary.Inserted, tt.wantInserted)
			}
			if summary.InsertedIdle != tt.wantIdle {
				t.Errorf("InsertedIdle = %d, want %d", summary.InsertedIdle, tt.wantIdle)
			}
			for reason, want := range tt.wantSkipped {
				if got := summary.SkippedCount(reason); got != want {
					t.Errorf("SkippedCount(%s) = %d, want %d", reason, got, want)
				}
			}
			if got, want := summary.SkippedTotal(), len(tt.rows)-tt.wantInserted; got != want {
				t.Errorf("SkippedTotal() = %d, want %d", got, want)
			}

			all, total, _ := store.Query(context.Background(), materials.Query{PageSize: materials.MaxPageSize})
			if int(total) != len(tt.existing)+tt.wantInserted {
				t.Errorf("store holds %d rows, want %d", total, len(tt.existing)+tt.wantInserted)
			}
			for _, m := range all {
				if !m.Consistent() {
					t.Errorf("stored material %+v breaks the idle/holder invariant", m)
				}
			}
		})
	}
}

func TestReconciler_IdleForcesNullHolder(t *testing.T) {
	store := memory.NewMaterialStore(nil)
	rows := []materials.ImportRow{
		{Category: "A", Identifier: "idle-with-holder", Status: "idle", Holder: "bob", ClaimedAt: time.Now()},
	}

	if _, err := materials.NewReconciler(store).Reconcile(context.Background(), rows, materials.NewIdentitySet("bob")); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	m, err := store.FindByIdentifier(context.Background(), "idle-with-holder")
	if err != nil {
		t.Fatalf("FindByIdentifier() error = %v", err)
	}
	if m.Holder != "" || !m.ClaimedAt.IsZero() {
		t.Errorf("idle material kept holder %q / time %v", m.Holder, m.ClaimedAt)
	}
}

func TestReconciler_SampleCap(t *testing.T) {
	rows := []materials.ImportRow{
		{Identifier: "m1"},
		{Identifier: "m2"},
		{Identifier: ""},
		{Identifier: "m4"},
		{Identifier: "m5"},
	}

	summary, err := materials.NewReconciler(memory.NewMaterialStore(nil)).Reconcile(context.Background(), rows, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	tally := summary.Skipped[materials.SkipMissingFields]
	if tally == nil || tally.Count != 5 {
		t.Fatalf("missing_fields tally = %+v, want count 5", tally)
	}
	want := []string{"m1", "m2", "row 3"}
	if len(tally.Samples) != len(want) {
		t.Fatalf("Samples = %v, want %v", tally.Samples, want)
	}
	for i := range want {
		if tally.Samples[i] != want[i] {
			t.Errorf("Samples[%d] = %q, want %q", i, tally.Samples[i], want[i])
		}
	}
}

func TestReconciler_StorageErrorStopsBatch(t *testing.T) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	gomock.InOrder(
		repo.EXPECT().FindByIdentifier(gomock.Any(), "ok").Return(nil, materials.ErrNotFound),
		repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(1), nil),
		repo.EXPECT().FindByIdentifier(gomock.Any(), "boom").Return(nil, materials.ErrNotFound),
		repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(0), errStorage),
	)

	rows := []materials.ImportRow{
		{Category: "A", Identifier: "ok"},
		{Category: "A", Identifier: "boom"},
		{Category: "A", Identifier: "never"},
	}
	summary, err := materials.NewReconciler(repo).Reconcile(context.Background(), rows, nil)
	if !errors.Is(err, errStorage) {
		t.Fatalf("Reconcile() error = %v, want %v", err, errStorage)
	}
	if summary == nil || summary.Inserted != 1 {
		t.Errorf("partial summary = %+v, want 1 inserted", summary)
	}
}

func TestImportSummary_Message(t *testing.T) {
	summary := materials.NewImportSummary()
	summary.Total = 3
	summary.Inserted = 1
	summary.InsertedIdle = 1
	summary.InsertedByCategory["原神"] = 1
	summary.Skipped[materials.SkipDuplicate] = &materials.SkipTally{Count: 2, Samples: []string{"a", "b"}}

	want := "imported 1 of 3 rows (1 idle); by category [原神: 1]; duplicate: 2 (a, b)"
	if got := summary.Message(); got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}
