package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/ellavondegurechaff/materialpool/internal/domain/audit/mock"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/memory"
	"go.uber.org/mock/gomock"
)

func TestService_RecordAndList(t *testing.T) {
	svc := audit.NewService(memory.NewAuditStore())
	ctx := context.Background()

	entries := []audit.Entry{
		{UserName: "bob", Action: audit.ActionClaim, Entity: audit.EntityMaterial, EntityID: "1"},
		{UserName: "carol", Action: audit.ActionClaim, Entity: audit.EntityMaterial, EntityID: "2"},
		{UserName: "root", Action: audit.ActionImport, Entity: audit.EntityMaterial},
		{UserName: "bob", Action: audit.ActionLogin, Entity: audit.EntitySession},
	}
	for _, e := range entries {
		if err := svc.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filters   audit.Filters
		page      int
		limit     int
		wantTotal int64
		wantItems int
		wantFirst string
	}{
		{name: "all newest first", wantTotal: 4, wantItems: 4, wantFirst: audit.ActionLogin},
		{name: "by action", filters: audit.Filters{Action: audit.ActionClaim}, wantTotal: 2, wantItems: 2, wantFirst: audit.ActionClaim},
		{name: "by user substring", filters: audit.Filters{UserName: "BO"}, wantTotal: 2, wantItems: 2, wantFirst: audit.ActionLogin},
		{name: "second page", page: 2, limit: 3, wantTotal: 4, wantItems: 1, wantFirst: audit.ActionClaim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(ctx, tt.filters, tt.page, tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if page.Total != tt.wantTotal || len(page.Items) != tt.wantItems {
				t.Fatalf("List() total = %d, items = %d", page.Total, len(page.Items))
			}
			if page.Items[0].Action != tt.wantFirst {
				t.Errorf("first action = %q, want %q", page.Items[0].Action, tt.wantFirst)
			}
			if page.Items[0].CreatedAt.IsZero() {
				t.Errorf("entry has no timestamp")
			}
		})
	}

	options, err := svc.FilterOptions(ctx)
	if err != nil {
		t.Fatalf("FilterOptions() error = %v", err)
	}
	if len(options.Actions) != 3 || len(options.Entities) != 2 {
		t.Errorf("FilterOptions() = %+v", options)
	}
}

func TestService_RecordValidation(t *testing.T) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	svc := audit.NewService(repo)

	if err := svc.Record(context.Background(), audit.Entry{Action: audit.ActionClaim}); !errors.Is(err, audit.ErrInvalidEntry) {
		t.Errorf("Record() error = %v, want ErrInvalidEntry", err)
	}

	failure := errors.New("disk full")
	repo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(failure)
	if err := svc.Record(context.Background(), audit.Entry{Action: audit.ActionClaim, Entity: audit.EntityMaterial}); !errors.Is(err, failure) {
		t.Errorf("Record() error = %v, want %v", err, failure)
	}
}

func TestService_ListClampsLimit(t *testing.T) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	repo.EXPECT().List(gomock.Any(), audit.Filters{}, 0, 200).Return(nil, int64(0), nil)

	page, err := audit.NewService(repo).List(context.Background(), audit.Filters{}, 0, 5000)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Page != 1 || page.Limit != 200 {
		t.Errorf("List() page = %d, limit = %d", page.Page, page.Limit)
	}
}
