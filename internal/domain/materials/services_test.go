package materials_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/domain/materials/mock"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/memory"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	store    *memory.MaterialStore
	identity *mock.MockIdentityDirectory
	recorder *mock.MockAuditRecorder
	service  materials.Service
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		store:    memory.NewMaterialStore(nil),
		identity: mock.NewMockIdentityDirectory(ctrl),
		recorder: mock.NewMockAuditRecorder(ctrl),
	}
	f.service = materials.NewService(f.store, f.store, f.identity, f.recorder)
	return f
}

func (f *fixture) insert(t *testing.T, m materials.Material) int64 {
	t.Helper()
	id, err := f.store.Insert(context.Background(), &m)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return id
}

func TestService_ClaimScenario(t *testing.T) {
	f := newFixture(t)
	id := f.insert(t, materials.Material{Category: "原神", Identifier: "alice_01", Status: materials.StatusIdle})

	f.recorder.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Entry) error {
			if e.Action != audit.ActionClaim || e.Entity != audit.EntityMaterial || e.Details != "alice_01" {
				t.Errorf("unexpected audit entry %+v", e)
			}
			return nil
		}).
		Times(1)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[string]error{}
		winners []*materials.Material
	)
	for _, holder := range []string{"bob", "carol"} {
		wg.Add(1)
		go func(holder string) {
			defer wg.Done()
			m, err := f.service.Claim(context.Background(), materials.Actor{Username: holder}, id)
			mu.Lock()
			defer mu.Unlock()
			results[holder] = err
			if err == nil {
				winners = append(winners, m)
			}
		}(holder)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("winners = %d, want 1 (%v)", len(winners), results)
	}
	if winners[0].Identifier != "alice_01" {
		t.Errorf("claimed identifier = %q, want unmasked alice_01", winners[0].Identifier)
	}
	for holder, err := range results {
		if err != nil && !errors.Is(err, materials.ErrAlreadyClaimed) {
			t.Errorf("%s got %v, want ErrAlreadyClaimed", holder, err)
		}
	}
}

func TestService_ClaimNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Claim(context.Background(), materials.Actor{Username: "bob"}, 99999)
	if !errors.Is(err, materials.ErrNotFound) {
		t.Errorf("Claim() error = %v, want ErrNotFound", err)
	}
}

func TestService_ClaimSurvivesAuditFailure(t *testing.T) {
	f := newFixture(t)
	id := f.insert(t, materials.Material{Category: "A", Identifier: "acc-1", Status: materials.StatusIdle})

	f.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("audit table locked"))

	m, err := f.service.Claim(context.Background(), materials.Actor{Username: "bob"}, id)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if m.Holder != "bob" || m.Status != materials.StatusInUse {
		t.Errorf("Claim() = %+v", m)
	}
}

func TestService_ListMasksAndScopes(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	f.insert(t, materials.Material{Category: "A", Identifier: "ab12cd", Status: materials.StatusIdle})
	f.insert(t, materials.Material{Category: "A", Identifier: "bob-acc", Status: materials.StatusInUse, Holder: "bob", ClaimedAt: now})
	f.insert(t, materials.Material{Category: "A", Identifier: "carol-acc", Status: materials.StatusInUse, Holder: "carol", ClaimedAt: now})

	tests := []struct {
		name   string
		viewer materials.Viewer
		want   map[string]bool
	}{
		{
			name:   "user",
			viewer: materials.Viewer{Username: "bob"},
			want:   map[string]bool{"ab****cd": true, "bob-acc": true},
		},
		{
			name:   "admin",
			viewer: materials.Viewer{Username: "root", Admin: true},
			want:   map[string]bool{"ab****cd": true, "bob-acc": true, "carol-acc": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.service.List(context.Background(), tt.viewer, materials.Query{})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if int(page.Total) != len(tt.want) || len(page.Items) != len(tt.want) {
				t.Fatalf("List() total = %d, items = %d, want %d", page.Total, len(page.Items), len(tt.want))
			}
			for _, m := range page.Items {
				if !tt.want[m.Identifier] {
					t.Errorf("unexpected identifier %q", m.Identifier)
				}
			}
			if page.Page != 1 || page.PageSize != materials.DefaultPageSize {
				t.Errorf("paging = %d/%d", page.Page, page.PageSize)
			}
		})
	}

	stored, _ := f.store.FindByIdentifier(context.Background(), "ab12cd")
	if stored.Identifier != "ab12cd" {
		t.Errorf("masking altered stored identifier: %q", stored.Identifier)
	}
}

func TestService_GetHidesOthersClaims(t *testing.T) {
	f := newFixture(t)
	id := f.insert(t, materials.Material{Category: "A", Identifier: "carol-acc", Status: materials.StatusInUse, Holder: "carol", ClaimedAt: time.Now().UTC()})

	if _, err := f.service.Get(context.Background(), materials.Viewer{Username: "bob"}, id); !errors.Is(err, materials.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	m, err := f.service.Get(context.Background(), materials.Viewer{Username: "carol"}, id)
	if err != nil || m.Identifier != "carol-acc" {
		t.Errorf("Get() = %+v, %v", m, err)
	}
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name    string
		input   materials.Input
		setup   func(t *testing.T, f *fixture)
		wantErr error
		wantID  string
	}{
		{
			name:   "idle",
			input:  materials.Input{Category: "A", Identifier: "new-acc"},
			setup:  func(t *testing.T, f *fixture) { f.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil) },
			wantID: "ne****cc",
		},
		{
			name:  "in use with known holder",
			input: materials.Input{Category: "A", Identifier: "held", Status: "已使用", Holder: "bob"},
			setup: func(t *testing.T, f *fixture) {
				f.identity.EXPECT().IsKnown(gomock.Any(), "bob").Return(true, nil)
				f.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantID: "held",
		},
		{
			name:  "unknown holder",
			input: materials.Input{Category: "A", Identifier: "held", Status: "in_use", Holder: "ghost"},
			setup: func(t *testing.T, f *fixture) {
				f.identity.EXPECT().IsKnown(gomock.Any(), "ghost").Return(false, nil)
			},
			wantErr: materials.ErrInvalidHolder,
		},
		{
			name:    "bad status",
			input:   materials.Input{Category: "A", Identifier: "x", Status: "gone"},
			setup:   func(t *testing.T, f *fixture) {},
			wantErr: materials.ErrInvalidStatus,
		},
		{
			name:    "missing category",
			input:   materials.Input{Identifier: "x"},
			setup:   func(t *testing.T, f *fixture) {},
			wantErr: materials.ErrInvalidMaterial,
		},
		{
			name:  "duplicate",
			input: materials.Input{Category: "A", Identifier: "dup"},
			setup: func(t *testing.T, f *fixture) {
				f.insert(t, materials.Material{Category: "A", Identifier: "dup", Status: materials.StatusIdle})
			},
			wantErr: materials.ErrDuplicateIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)

			got, err := f.service.Create(context.Background(), materials.Actor{Username: "root", Admin: true}, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Identifier != tt.wantID {
				t.Errorf("Create().Identifier = %q, want %q", got.Identifier, tt.wantID)
			}
			if !got.Consistent() {
				t.Errorf("Create() returned inconsistent material %+v", got)
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	admin := materials.Actor{Username: "root", Admin: true}
	str := func(s string) *string { return &s }

	t.Run("in use cannot return to idle", func(t *testing.T) {
		f := newFixture(t)
		id := f.insert(t, materials.Material{Category: "A", Identifier: "held", Status: materials.StatusInUse, Holder: "bob", ClaimedAt: time.Now().UTC()})

		_, err := f.service.Update(context.Background(), admin, id, materials.Patch{Status: str("idle")})
		if !errors.Is(err, materials.ErrInvalidStatus) {
			t.Errorf("Update() error = %v, want ErrInvalidStatus", err)
		}
	})

	t.Run("assign idle to known holder", func(t *testing.T) {
		f := newFixture(t)
		id := f.insert(t, materials.Material{Category: "A", Identifier: "free-acc", Status: materials.StatusIdle})
		f.identity.EXPECT().IsKnown(gomock.Any(), "bob").Return(true, nil)
		f.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil)

		got, err := f.service.Update(context.Background(), admin, id, materials.Patch{
			Description: str("vip"),
			Status:      str("in_use"),
			Holder:      str("bob"),
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Status != materials.StatusInUse || got.Holder != "bob" || got.Description != "vip" || got.Identifier != "free-acc" {
			t.Errorf("Update() = %+v", got)
		}
	})

	t.Run("assign loses race to a claim", func(t *testing.T) {
		f := newFixture(t)
		id := f.insert(t, materials.Material{Category: "A", Identifier: "old-acc", Status: materials.StatusIdle})
		f.identity.EXPECT().IsKnown(gomock.Any(), "bob").Return(true, nil)

		racing := &claimBeforeWrite{MaterialStore: f.store, holder: "carol"}
		svc := materials.NewService(racing, f.store, f.identity, f.recorder)

		_, err := svc.Update(context.Background(), admin, id, materials.Patch{
			Identifier: str("new-acc"),
			Status:     str("in_use"),
			Holder:     str("bob"),
		})
		if !errors.Is(err, materials.ErrAlreadyClaimed) {
			t.Fatalf("Update() error = %v, want ErrAlreadyClaimed", err)
		}

		stored, err := f.store.FindByID(context.Background(), id)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if stored.Identifier != "old-acc" || stored.Holder != "carol" {
			t.Errorf("stored = %+v, want untouched identifier held by carol", stored)
		}
	})

	t.Run("assign requires holder", func(t *testing.T) {
		f := newFixture(t)
		id := f.insert(t, materials.Material{Category: "A", Identifier: "free-acc", Status: materials.StatusIdle})

		_, err := f.service.Update(context.Background(), admin, id, materials.Patch{Status: str("in_use")})
		if !errors.Is(err, materials.ErrInvalidHolder) {
			t.Errorf("Update() error = %v, want ErrInvalidHolder", err)
		}
	})

	t.Run("rename to taken identifier", func(t *testing.T) {
		f := newFixture(t)
		f.insert(t, materials.Material{Category: "A", Identifier: "one", Status: materials.StatusIdle})
		id := f.insert(t, materials.Material{Category: "A", Identifier: "two", Status: materials.StatusIdle})

		_, err := f.service.Update(context.Background(), admin, id, materials.Patch{Identifier: str("one")})
		if !errors.Is(err, materials.ErrDuplicateIdentifier) {
			t.Errorf("Update() error = %v, want ErrDuplicateIdentifier", err)
		}
	})

	t.Run("correct holder of in use row", func(t *testing.T) {
		f := newFixture(t)
		id := f.insert(t, materials.Material{Category: "A", Identifier: "held", Status: materials.StatusInUse, Holder: "bob", ClaimedAt: time.Now().UTC()})
		f.identity.EXPECT().IsKnown(gomock.Any(), "carol").Return(true, nil)
		f.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil)

		got, err := f.service.Update(context.Background(), admin, id, materials.Patch{Holder: str("carol")})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Holder != "carol" || !got.Consistent() {
			t.Errorf("Update() = %+v", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Update(context.Background(), admin, 42, materials.Patch{Category: str("B")})
		if !errors.Is(err, materials.ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	id := f.insert(t, materials.Material{Category: "A", Identifier: "gone", Status: materials.StatusIdle})
	f.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil)

	actor := materials.Actor{Username: "root", Admin: true}
	if err := f.service.Delete(context.Background(), actor, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := f.service.Delete(context.Background(), actor, id); !errors.Is(err, materials.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestService_Import(t *testing.T) {
	f := newFixture(t)
	f.identity.EXPECT().KnownUsernames(gomock.Any()).Return([]string{"bob", "carol"}, nil)
	f.recorder.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Entry) error {
			if e.Action != audit.ActionImport {
				t.Errorf("audit action = %q, want import", e.Action)
			}
			return nil
		})

	rows := []materials.ImportRow{
		{Category: "原神", Identifier: "alice_01", Status: "已使用", Holder: "nonexistent_user"},
		{Category: "原神", Identifier: "bob_01", Status: "已使用", Holder: "bob"},
		{Category: "原神", Identifier: "free_01"},
	}
	summary, err := f.service.Import(context.Background(), materials.Actor{Username: "root", Admin: true}, rows)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if summary.Inserted != 2 || summary.SkippedCount(materials.SkipInvalidHolder) != 1 {
		t.Errorf("Import() summary = %+v", summary)
	}
	if summary.InsertedByCategory["原神"] != 2 {
		t.Errorf("InsertedByCategory = %v", summary.InsertedByCategory)
	}
}

func TestService_SuggestCategories(t *testing.T) {
	f := newFixture(t)
	for i, c := range []string{"Genshin Impact", "Honkai Star Rail", "Zenless Zone Zero", "Wuthering Waves"} {
		f.insert(t, materials.Material{Category: c, Identifier: fmt.Sprintf("acc-%d", i), Status: materials.StatusIdle})
	}

	got, err := f.service.SuggestCategories(context.Background(), "hsr", 5)
	if err != nil {
		t.Fatalf("SuggestCategories() error = %v", err)
	}
	if len(got) == 0 || got[0] != "Honkai Star Rail" {
		t.Errorf("SuggestCategories(hsr) = %v", got)
	}

	all, _ := f.service.SuggestCategories(context.Background(), "", 2)
	if len(all) != 2 || all[0] != "Genshin Impact" {
		t.Errorf("SuggestCategories(\"\") = %v", all)
	}
}

func TestService_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	stats := mock.NewMockStatsRepository(ctrl)
	svc := materials.NewService(mock.NewMockRepository(ctrl), stats, mock.NewMockIdentityDirectory(ctrl), nil)

	stats.EXPECT().StatusCounts(gomock.Any(), "bob").
		Return(map[materials.Status]int64{materials.StatusIdle: 0, materials.StatusInUse: 4}, nil)
	stats.EXPECT().CategoryCounts(gomock.Any(), materials.Status(""), "bob", gomock.Any()).
		Return([]materials.CategoryCount{{Category: "A", Count: 4}}, nil)
	stats.EXPECT().CategoryCounts(gomock.Any(), materials.StatusIdle, "", gomock.Any()).
		Return(nil, nil)
	stats.EXPECT().DailyUsage(gomock.Any(), "bob", gomock.Any(), gomock.Any()).
		Return([]materials.DailyCount{{Date: "2024-05-01", Count: 4}}, nil)

	got, err := svc.Stats(context.Background(), materials.Viewer{Username: "bob"}, materials.StatsQuery{})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if got.Total != 4 || got.Holder != "bob" || got.TopHolders != nil {
		t.Errorf("Stats() = %+v", got)
	}
	if !got.From.Before(got.To) {
		t.Errorf("Stats() window %v..%v", got.From, got.To)
	}
}

// claimBeforeWrite lets another user claim the row right before the service writes it.
type claimBeforeWrite struct {
	*memory.MaterialStore
	holder string
}

func (c *claimBeforeWrite) Update(ctx context.Context, m *materials.Material, from materials.Status) error {
	if _, err := c.MaterialStore.TransitionToInUse(ctx, m.ID, c.holder, time.Now().UTC()); err != nil {
		return err
	}
	return c.MaterialStore.Update(ctx, m, from)
}
